package native

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/pipeline"
	"github.com/claude/healthsync/internal/pipeline/pipelinetest"
)

func newTestProvider(t *testing.T) (*Provider, *pipelinetest.MemStore) {
	t.Helper()
	store := pipelinetest.NewMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	p := pipeline.New(store, nil, log, pipeline.Options{Now: func() time.Time { return now }})
	return NewProvider(p, log), store
}

const syncBody = `{
	"steps": [{"date": "2024-01-01", "value": 9120}],
	"hrv": [{"date": "2024-01-01T07:00:00Z", "value": 48}],
	"restingHR": [{"date": 1704092400, "value": 55}],
	"weight": [{"date": "2024-01-01T07:30:00Z", "value": 75, "unit": "kg"}],
	"leanMass": [{"date": "2024-01-01T07:30:00Z", "value": 60, "unit": "kg"}],
	"bodyFat": [],
	"sleep": [
		{"start": "2023-12-31T22:45:00Z", "end": "2024-01-01T06:45:00Z",
		 "awake": 25, "core": 250, "deep": 85, "rem": 120}
	],
	"workouts": [
		{"id": "ios-1", "type": "HKWorkoutActivityTypeCycling", "start": "2024-01-01T17:00:00Z",
		 "duration": 3600, "distance": 24000, "calories": 612.4}
	]
}`

func TestIngestSync(t *testing.T) {
	p, store := newTestProvider(t)

	res, err := p.Ingest(context.Background(), []byte(syncBody), 1)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 5, res.BiomarkersCount)
	require.Equal(t, 1, res.SleepSessionsCount)
	require.Equal(t, 1, res.WorkoutSessionsCount)
	require.Equal(t, 1, res.DerivedCount)

	for _, pt := range store.Biomarkers() {
		require.NotEqual(t, models.SourceExportWebhook, pt.Source)
		if pt.Type == models.BiomarkerBodyFatPercentage {
			require.Equal(t, models.SourceCalculated, pt.Source)
			require.Equal(t, 20.0, pt.Value)
		}
	}

	sessions := store.SleepSessions()
	require.Len(t, sessions, 1)
	require.Equal(t, 480, sessions[0].TotalMinutes)
	require.Equal(t, 250, sessions[0].LightMinutes)
	require.Equal(t, models.SourceNativeSync, sessions[0].Source)

	w := store.Workouts()
	require.Len(t, w, 1)
	require.Equal(t, models.WorkoutCycling, w[0].WorkoutType)
	require.Equal(t, 60, w[0].DurationMinutes)
	require.Equal(t, 612, *w[0].Calories)
	require.Equal(t, "ios-1", w[0].SourceID)
}

func TestIngestSyncTwiceIsIdempotent(t *testing.T) {
	p, store := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, []byte(syncBody), 1)
	require.NoError(t, err)
	res, err := p.Ingest(ctx, []byte(syncBody), 1)
	require.NoError(t, err)

	require.Equal(t, 0, res.WorkoutSessionsCount)
	require.Equal(t, 1, res.Skipped.Duplicates)
	require.Len(t, store.Biomarkers(), 6)
	require.Len(t, store.SleepSessions(), 1)
	require.Len(t, store.Workouts(), 1)
}

func TestIngestSyncSkipsBadDates(t *testing.T) {
	p, store := newTestProvider(t)

	res, err := p.Ingest(context.Background(), []byte(`{
		"steps": [{"date": "2024-01-01", "value": 100}, {"date": "someday", "value": 200}],
		"sleep": [{"start": "bad", "end": "2024-01-01T06:00:00Z"}]
	}`), 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.BiomarkersCount)
	require.Equal(t, 2, res.Skipped.Points)
	require.Len(t, store.Biomarkers(), 1)
}

func TestIngestSyncSkipsNonNumericValues(t *testing.T) {
	p, store := newTestProvider(t)

	res, err := p.Ingest(context.Background(), []byte(`{
		"steps": [{"date": "2024-01-01", "value": 9120}, {"date": "2024-01-01T08:00:00Z", "value": "n/a"}],
		"hrv": [{"date": "2024-01-01T07:00:00Z", "value": "48.5"}],
		"sleep": [
			{"start": "2023-12-31T22:45:00Z", "end": "2024-01-01T06:45:00Z", "deep": "lots"},
			{"start": "2024-01-01T22:45:00Z", "end": "2024-01-02T06:45:00Z", "core": 300, "score": true}
		],
		"workouts": [
			{"type": "HKWorkoutActivityTypeRunning", "start": "2024-01-01T17:00:00Z",
			 "duration": 1800, "calories": "unknown"}
		]
	}`), 1)
	require.NoError(t, err)
	require.Equal(t, 2, res.BiomarkersCount)
	require.Equal(t, 2, res.Skipped.Points)
	require.Equal(t, 1, res.SleepSessionsCount)
	require.Equal(t, 1, res.WorkoutSessionsCount)

	var hrv float64
	for _, pt := range store.Biomarkers() {
		if pt.Type == models.BiomarkerHRV {
			hrv = pt.Value
		}
	}
	require.Equal(t, 48.5, hrv)

	sessions := store.SleepSessions()
	require.Len(t, sessions, 1)
	require.Equal(t, 300, sessions[0].LightMinutes)

	w := store.Workouts()
	require.Len(t, w, 1)
	require.Nil(t, w[0].Calories)
}

func TestIngestSyncMalformedBody(t *testing.T) {
	p, _ := newTestProvider(t)

	_, err := p.Ingest(context.Background(), []byte(`{"steps": "many"}`), 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrMalformedPayload))
}
