// Package native ingests the on-device sync call, which delivers values
// already bucketed per metric kind.
package native

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/pipeline"
)

// Provider processes native sync payloads.
type Provider struct {
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// NewProvider creates a new native sync provider.
func NewProvider(p *pipeline.Pipeline, log *slog.Logger) *Provider {
	return &Provider{pipeline: p, log: log}
}

// Decode parses a sync body. Unknown fields are ignored so older servers
// accept newer clients. A non-numeric value only invalidates its own sample;
// a body whose structure is wrong fails as a whole.
func Decode(body []byte) (*SyncPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var p SyncPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrMalformedPayload, err)
	}
	return &p, nil
}

// Ingest decodes and stores a sync payload.
func (p *Provider) Ingest(ctx context.Context, body []byte, userID int) (*ingest.Result, error) {
	payload, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return p.IngestPayload(ctx, payload, userID)
}

// IngestPayload stores an already decoded sync payload.
func (p *Provider) IngestPayload(ctx context.Context, payload *SyncPayload, userID int) (*ingest.Result, error) {
	batch := p.pipeline.Begin(userID, models.SourceNativeSync)

	series := []struct {
		typ     models.BiomarkerType
		samples []Sample
	}{
		{models.BiomarkerSteps, payload.Steps},
		{models.BiomarkerHRV, payload.HRV},
		{models.BiomarkerRestingHeartRate, payload.RestingHR},
		{models.BiomarkerWeight, payload.Weight},
		{models.BiomarkerBodyFatPercentage, payload.BodyFat},
		{models.BiomarkerLeanBodyMass, payload.LeanMass},
	}
	for _, s := range series {
		readings, malformed := readings(s.typ, s.samples)
		batch.Skip(malformed)
		if len(readings) == 0 {
			continue
		}
		if err := batch.Biomarkers(ctx, readings); err != nil {
			return nil, fmt.Errorf("processing %s: %w", s.typ, err)
		}
	}

	if len(payload.Workouts) > 0 {
		if err := batch.Workouts(ctx, workouts(payload.Workouts)); err != nil {
			return nil, fmt.Errorf("processing workouts: %w", err)
		}
	}

	if len(payload.Sleep) > 0 {
		segs, malformed := sleepSegments(payload.Sleep)
		batch.Skip(malformed)
		if err := batch.Sleep(ctx, segs); err != nil {
			return nil, fmt.Errorf("processing sleep: %w", err)
		}
	}

	return batch.Finish(ctx), nil
}

func readings(t models.BiomarkerType, samples []Sample) ([]models.Reading, int) {
	out := make([]models.Reading, 0, len(samples))
	malformed := 0
	for _, s := range samples {
		at, err := models.TimestampFromValue(s.Date)
		if err != nil || s.Value.Invalid {
			malformed++
			continue
		}
		out = append(out, models.Reading{Type: t, Value: s.Value.Value, Unit: s.Unit, RecordedAt: at})
	}
	return out, malformed
}

// workouts maps device workouts; an unparsable timestamp leaves that end
// open so the pipeline can fill it from the duration or skip the workout.
func workouts(samples []WorkoutSample) []models.WorkoutInput {
	out := make([]models.WorkoutInput, 0, len(samples))
	for _, w := range samples {
		in := models.WorkoutInput{
			Name:            w.Name,
			ActivityCode:    w.Type,
			DistanceMeters:  w.Distance.float(),
			AvgHeartRate:    w.AvgHeartRate.float(),
			MaxHeartRate:    w.MaxHeartRate.float(),
			SourceID:        w.ID,
		}
		if !w.Duration.Invalid {
			in.DurationSeconds = w.Duration.Value
		}
		if in.Name == "" {
			in.Name = w.Type
		}
		if w.Start != nil {
			in.Start, _ = models.TimestampFromValue(w.Start)
		}
		if w.End != nil {
			in.End, _ = models.TimestampFromValue(w.End)
		}
		if c := w.Calories.float(); c != nil {
			kcal := int(math.Round(*c))
			in.Calories = &kcal
		}
		out = append(out, in)
	}
	return out
}

func sleepSegments(samples []SleepSample) ([]models.SleepSegment, int) {
	out := make([]models.SleepSegment, 0, len(samples))
	malformed := 0
	for _, s := range samples {
		start, errS := models.TimestampFromValue(s.Start)
		end, errE := models.TimestampFromValue(s.End)
		if errS != nil || errE != nil || stagesInvalid(s) {
			malformed++
			continue
		}
		// Devices report light sleep as either light or core, never both.
		light := s.Light.Value
		if light == 0 {
			light = s.Core.Value
		}
		seg := models.SleepSegment{
			Start:        start,
			End:          end,
			AwakeMinutes: s.Awake.Value,
			LightMinutes: light,
			DeepMinutes:  s.Deep.Value,
			RemMinutes:   s.REM.Value,
		}
		if sc := s.Score.float(); sc != nil {
			score := int(math.Round(*sc))
			seg.Score = &score
		}
		out = append(out, seg)
	}
	return out, malformed
}

func stagesInvalid(s SleepSample) bool {
	return s.Awake.Invalid || s.Light.Invalid || s.Core.Invalid || s.Deep.Invalid || s.REM.Invalid
}
