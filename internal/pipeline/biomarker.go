package pipeline

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/units"
)

// Biomarkers converts readings to canonical units and upserts them. Points
// have distinct keys, so writes fan out. Non-finite values are skipped.
func (b *Batch) Biomarkers(ctx context.Context, readings []models.Reading) error {
	points := make([]models.BiomarkerPoint, 0, len(readings))
	skipped := 0
	for _, r := range readings {
		if r.RecordedAt.IsZero() || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			skipped++
			continue
		}
		value, unit := units.Convert(r.Value, r.Unit, r.Type)
		points = append(points, models.BiomarkerPoint{
			UserID:     b.userID,
			Type:       r.Type,
			Value:      value,
			Unit:       unit,
			Source:     b.source,
			RecordedAt: r.RecordedAt,
		})
	}
	b.Skip(skipped)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.p.opts.Concurrency)
	for _, pt := range points {
		g.Go(func() error {
			if err := b.p.store.UpsertBiomarker(gctx, pt); err != nil {
				return fmt.Errorf("upserting %s biomarker: %w", pt.Type, err)
			}
			b.recordBiomarker(pt)
			return nil
		})
	}
	return g.Wait()
}

func (b *Batch) recordBiomarker(pt models.BiomarkerPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.BiomarkersCount++
	if prev, ok := b.newest[pt.Type]; !ok || pt.RecordedAt.After(prev.RecordedAt) {
		b.newest[pt.Type] = pt
	}
}
