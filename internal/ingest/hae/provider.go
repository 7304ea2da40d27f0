// Package hae ingests Health Auto Export style webhook payloads, whose shape
// varies between exporter versions and third-party senders.
package hae

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/pipeline"
)

const classifyConcurrency = 16

// Provider processes export webhook payloads.
type Provider struct {
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// NewProvider creates a new export webhook provider.
func NewProvider(p *pipeline.Pipeline, log *slog.Logger) *Provider {
	return &Provider{pipeline: p, log: log}
}

// Ingest resolves, classifies and stores a raw payload. A payload whose shape
// cannot be resolved returns a *ShapeError and writes nothing.
func (p *Provider) Ingest(ctx context.Context, body []byte, userID int) (*ingest.Result, error) {
	res, err := Resolve(body)
	if err != nil {
		return nil, err
	}
	entries := ClassifyAll(res.Entries)

	batch := p.pipeline.Begin(userID, models.SourceExportWebhook)
	batch.SetShape(res.Strategy)
	batch.Skip(res.Malformed)

	var sleep []models.SleepSegment
	for _, e := range entries {
		batch.Skip(e.Malformed)
		switch e.Kind {
		case models.EntryBiomarker:
			if err := batch.Biomarkers(ctx, e.Readings); err != nil {
				return nil, fmt.Errorf("processing %s: %w", e.Name, err)
			}
		case models.EntryWorkout:
			if err := batch.Workouts(ctx, e.Workouts); err != nil {
				return nil, fmt.Errorf("processing %s: %w", e.Name, err)
			}
		case models.EntrySleep:
			sleep = append(sleep, e.Sleep...)
		default:
			p.log.Debug("skipping unrecognized metric", "name", e.Name)
			batch.Unrecognized(e.Name)
		}
	}

	if len(sleep) > 0 {
		if err := batch.Sleep(ctx, sleep); err != nil {
			return nil, fmt.Errorf("processing sleep: %w", err)
		}
	}
	return batch.Finish(ctx), nil
}

// ClassifyAll classifies entries concurrently, preserving order.
func ClassifyAll(raw []map[string]any) []models.Entry {
	entries := make([]models.Entry, len(raw))
	var g errgroup.Group
	g.SetLimit(classifyConcurrency)
	for i, r := range raw {
		g.Go(func() error {
			entries[i] = Classify(r)
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

// EntrySummary describes how one entry was classified.
type EntrySummary struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Points    int    `json:"points"`
	Malformed int    `json:"malformed"`
}

// Diagnosis reports how a payload would be ingested without storing it.
type Diagnosis struct {
	Strategy  string         `json:"strategy"`
	Malformed int            `json:"malformed"`
	Entries   []EntrySummary `json:"entries"`
}

// Diagnose resolves and classifies body without writing anything.
func Diagnose(body []byte) (*Diagnosis, error) {
	res, err := Resolve(body)
	if err != nil {
		return nil, err
	}
	d := &Diagnosis{Strategy: res.Strategy, Malformed: res.Malformed}
	for _, e := range ClassifyAll(res.Entries) {
		d.Entries = append(d.Entries, EntrySummary{
			Name:      e.Name,
			Kind:      e.Kind.String(),
			Points:    len(e.Readings) + len(e.Workouts) + len(e.Sleep),
			Malformed: e.Malformed,
		})
	}
	return d, nil
}
