package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/units"
)

type bodyComposition struct {
	weight *models.BiomarkerPoint
	lean   *models.BiomarkerPoint
	hasFat bool
}

// BodyFatPercentage derives body fat from same-day weight and lean mass,
// rounded to one decimal. It returns false when the result is outside [0,100].
func BodyFatPercentage(weight, lean float64) (float64, bool) {
	if weight <= 0 {
		return 0, false
	}
	pct := units.Round((weight-lean)/weight*100, 1)
	if pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}

// deriveBodyFat stores a calculated body-fat point for every date in the
// lookback window that has weight and lean mass but no body-fat point yet.
// Either input may have arrived in an earlier batch, so the window is scanned
// regardless of what this batch carried.
func (p *Pipeline) deriveBodyFat(ctx context.Context, userID int, now time.Time) (int, error) {
	types := []models.BiomarkerType{
		models.BiomarkerWeight,
		models.BiomarkerLeanBodyMass,
		models.BiomarkerBodyFatPercentage,
	}
	points, err := p.store.QueryBiomarkers(ctx, userID, types, now.Add(-p.opts.DerivedLookback), now)
	if err != nil {
		return 0, fmt.Errorf("querying body composition: %w", err)
	}

	days := make(map[time.Time]*bodyComposition)
	for i := range points {
		pt := &points[i]
		day := p.dateOf(pt.RecordedAt)
		bc, ok := days[day]
		if !ok {
			bc = &bodyComposition{}
			days[day] = bc
		}
		switch pt.Type {
		case models.BiomarkerWeight:
			if bc.weight == nil || pt.RecordedAt.After(bc.weight.RecordedAt) {
				bc.weight = pt
			}
		case models.BiomarkerLeanBodyMass:
			if bc.lean == nil || pt.RecordedAt.After(bc.lean.RecordedAt) {
				bc.lean = pt
			}
		case models.BiomarkerBodyFatPercentage:
			bc.hasFat = true
		}
	}

	stored := 0
	for day, bc := range days {
		if bc.hasFat || bc.weight == nil || bc.lean == nil {
			continue
		}
		pct, ok := BodyFatPercentage(bc.weight.Value, bc.lean.Value)
		if !ok {
			p.log.Debug("derived body fat out of range", "user_id", userID, "date", day.Format(time.DateOnly))
			continue
		}
		pt := models.BiomarkerPoint{
			UserID:     userID,
			Type:       models.BiomarkerBodyFatPercentage,
			Value:      pct,
			Unit:       units.CanonicalUnit(models.BiomarkerBodyFatPercentage),
			Source:     models.SourceCalculated,
			RecordedAt: bc.weight.RecordedAt,
		}
		if err := p.store.UpsertBiomarker(ctx, pt); err != nil {
			return stored, fmt.Errorf("storing derived body fat for %s: %w", day.Format(time.DateOnly), err)
		}
		stored++
	}
	return stored, nil
}
