// Package aggregator ingests event-typed webhooks from a third-party health
// data aggregator.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/pipeline"
)

// Provider maps aggregator resources onto pipeline writes.
type Provider struct {
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// NewProvider creates a new aggregator webhook provider.
func NewProvider(p *pipeline.Pipeline, log *slog.Logger) *Provider {
	return &Provider{pipeline: p, log: log}
}

// Ingest stores the resources of one envelope. Unknown event types are listed
// as unrecognized and write nothing.
func (p *Provider) Ingest(ctx context.Context, env *Envelope, userID int) (*ingest.Result, error) {
	batch := p.pipeline.Begin(userID, models.SourceAggregatorWebhook)

	var err error
	switch env.EventType {
	case EventWorkouts:
		err = p.workouts(ctx, batch, env.Data)
	case EventSleep:
		err = p.sleep(ctx, batch, env.Data)
	case EventHeartRate, EventWeight, EventGlucose, EventBloodPressure:
		err = p.biomarkers(ctx, batch, env.EventType, env.Data)
	default:
		p.log.Info("ignoring aggregator event", "event_type", env.EventType)
		batch.Unrecognized(env.EventType)
	}
	if err != nil {
		return nil, fmt.Errorf("processing %s event: %w", env.EventType, err)
	}
	return batch.Finish(ctx), nil
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := models.ParseTimestamp(s)
	return t, err == nil
}

// activityCode normalizes the metadata type, which arrives as a number or a
// name, to something the pipeline's type table understands.
func activityCode(v any) string {
	var code string
	switch x := v.(type) {
	case float64:
		code = fmt.Sprintf("%d", int(x))
	case string:
		code = strings.TrimSpace(x)
	}
	if name, ok := activityTypes[code]; ok {
		return name
	}
	return code
}

func (p *Provider) workouts(ctx context.Context, batch *pipeline.Batch, data []json.RawMessage) error {
	inputs := make([]models.WorkoutInput, 0, len(data))
	for _, raw := range data {
		var r workoutResource
		if err := json.Unmarshal(raw, &r); err != nil {
			batch.Skip(1)
			continue
		}
		in := models.WorkoutInput{
			Name:            r.Metadata.Name,
			ActivityCode:    activityCode(r.Metadata.Type),
			DurationSeconds: r.ActiveDurationsData.ActivitySeconds,
			DistanceMeters:  r.DistanceData.Summary.DistanceMeters,
			AvgHeartRate:    r.HeartRateData.Summary.AvgHRBPM,
			MaxHeartRate:    r.HeartRateData.Summary.MaxHRBPM,
			SourceID:        r.Metadata.SummaryID,
		}
		in.Start, _ = parseTime(r.Metadata.StartTime)
		in.End, _ = parseTime(r.Metadata.EndTime)
		if c := r.CaloriesData.TotalBurnedCalories; c != nil {
			kcal := int(math.Round(*c))
			in.Calories = &kcal
		}
		inputs = append(inputs, in)
	}
	return batch.Workouts(ctx, inputs)
}

func (p *Provider) sleep(ctx context.Context, batch *pipeline.Batch, data []json.RawMessage) error {
	segs := make([]models.SleepSegment, 0, len(data))
	for _, raw := range data {
		var r sleepResource
		if err := json.Unmarshal(raw, &r); err != nil {
			batch.Skip(1)
			continue
		}
		start, okS := parseTime(r.Metadata.StartTime)
		end, okE := parseTime(r.Metadata.EndTime)
		if !okS || !okE {
			batch.Skip(1)
			continue
		}
		d := r.SleepDurationsData
		seg := models.SleepSegment{
			Start:        start,
			End:          end,
			AwakeMinutes: d.Awake.AwakeSeconds / 60,
			LightMinutes: d.Asleep.LightSeconds / 60,
			DeepMinutes:  d.Asleep.DeepSeconds / 60,
			RemMinutes:   d.Asleep.REMSeconds / 60,
		}
		if s := r.Scores.Sleep; s != nil {
			score := int(math.Round(*s))
			seg.Score = &score
		}
		segs = append(segs, seg)
	}
	return batch.Sleep(ctx, segs)
}

func (p *Provider) biomarkers(ctx context.Context, batch *pipeline.Batch, event string, data []json.RawMessage) error {
	var readings []models.Reading
	for _, raw := range data {
		rs, malformed, err := decodeReadings(event, raw)
		if err != nil {
			batch.Skip(1)
			continue
		}
		batch.Skip(malformed)
		readings = append(readings, rs...)
	}
	return batch.Biomarkers(ctx, readings)
}

// decodeReadings flattens one biomarker resource. It returns the readings and
// the number of samples dropped for bad timestamps.
func decodeReadings(event string, raw json.RawMessage) ([]models.Reading, int, error) {
	var out []models.Reading
	malformed := 0
	add := func(ts string, t models.BiomarkerType, v float64, unit string) {
		at, ok := parseTime(ts)
		if !ok {
			malformed++
			return
		}
		out = append(out, models.Reading{Type: t, Value: v, Unit: unit, RecordedAt: at})
	}

	switch event {
	case EventHeartRate:
		var r heartRateResource
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, 0, err
		}
		for _, s := range r.HeartRateData.Detailed.HRSamples {
			add(s.Timestamp, models.BiomarkerHeartRate, s.BPM, "bpm")
		}
		if v := r.HeartRateData.Summary.RestingHRBPM; v != nil {
			add(r.Metadata.StartTime, models.BiomarkerRestingHeartRate, *v, "bpm")
		}
		if v := r.HeartRateData.Summary.AvgHRVSDNN; v != nil {
			add(r.Metadata.StartTime, models.BiomarkerHRV, *v, "ms")
		}

	case EventWeight:
		var r weightResource
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, 0, err
		}
		for _, m := range r.MeasurementsData.Measurements {
			if m.WeightKg != nil {
				add(m.MeasurementTime, models.BiomarkerWeight, *m.WeightKg, "kg")
			}
			if m.LeanMassG != nil {
				add(m.MeasurementTime, models.BiomarkerLeanBodyMass, *m.LeanMassG, "g")
			}
			if m.BodyfatPercentage != nil {
				add(m.MeasurementTime, models.BiomarkerBodyFatPercentage, *m.BodyfatPercentage, "%")
			}
			if m.BMI != nil {
				add(m.MeasurementTime, models.BiomarkerBMI, *m.BMI, "kg/m2")
			}
		}

	case EventGlucose:
		var r glucoseResource
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, 0, err
		}
		for _, s := range r.GlucoseData.Samples {
			add(s.Timestamp, models.BiomarkerBloodGlucose, s.BloodGlucoseMgDL, "mg/dL")
		}

	case EventBloodPressure:
		var r bloodPressureResource
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, 0, err
		}
		for _, s := range r.BloodPressureData.Samples {
			add(s.Timestamp, models.BiomarkerSystolic, s.SystolicBP, "mmHg")
			add(s.Timestamp, models.BiomarkerDiastolic, s.DiastolicBP, "mmHg")
		}
	}
	return out, malformed, nil
}
