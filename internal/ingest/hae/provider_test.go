package hae

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/pipeline"
	"github.com/claude/healthsync/internal/pipeline/pipelinetest"
)

func newTestProvider() (*Provider, *pipelinetest.MemStore) {
	store := pipelinetest.NewMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	p := pipeline.New(store, pipelinetest.NewMemCache(), log, pipeline.Options{
		Now: func() time.Time { return now },
	})
	return NewProvider(p, log), store
}

// TestIngestWeightEndToEnd verifies a kg weight entry is stored once in lbs.
func TestIngestWeightEndToEnd(t *testing.T) {
	p, store := newTestProvider()
	body := `{"metrics":[{"name":"Weight","units":"kg","data":[{"date":"2024-01-01T08:00:00Z","qty":70}]}]}`

	res, err := p.Ingest(context.Background(), []byte(body), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.BiomarkersCount != 1 {
		t.Errorf("result = %+v, want success with 1 biomarker", res)
	}
	if res.Shape != StrategyTopLevelMetrics {
		t.Errorf("shape = %q, want %q", res.Shape, StrategyTopLevelMetrics)
	}

	points := store.Biomarkers()
	if len(points) != 1 {
		t.Fatalf("stored %d points, want 1", len(points))
	}
	pt := points[0]
	if pt.Type != models.BiomarkerWeight || pt.Unit != "lbs" || math.Abs(pt.Value-154.3) > 0.05 {
		t.Errorf("stored %+v, want weight ≈154.3 lbs", pt)
	}
	if pt.Source != models.SourceExportWebhook {
		t.Errorf("source = %q, want %q", pt.Source, models.SourceExportWebhook)
	}
}

// TestIngestPartialBatch verifies that one entry with an invalid date does
// not prevent the other four from being stored.
func TestIngestPartialBatch(t *testing.T) {
	p, store := newTestProvider()
	body := `{"data":{"metrics":[
		{"name":"weight_body_mass","units":"lb","data":[{"date":"2024-01-01 08:00:00 -0800","qty":181.2}]},
		{"name":"resting_heart_rate","units":"count/min","data":[{"date":"2024-01-01 08:00:00 -0800","qty":54}]},
		{"name":"step_count","units":"count","data":[{"date":"2024-01-01 00:00:00 -0800","qty":8123}]},
		{"name":"heart_rate","units":"count/min","data":[{"date":"2024-01-01 09:00:00 -0800","Min":60,"Avg":66,"Max":74}]},
		{"name":"blood_glucose","units":"mg/dL","data":[{"date":"not a date","qty":101}]}
	]}}`

	res, err := p.Ingest(context.Background(), []byte(body), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.BiomarkersCount != 4 {
		t.Errorf("biomarkers = %d, want 4", res.BiomarkersCount)
	}
	if res.Skipped.Points != 1 {
		t.Errorf("skipped points = %d, want 1", res.Skipped.Points)
	}
	if got := len(store.Biomarkers()); got != 4 {
		t.Errorf("stored %d points, want 4", got)
	}
}

// TestIngestIdempotent verifies that redelivering the same payload creates no
// new rows for any record type.
func TestIngestIdempotent(t *testing.T) {
	p, store := newTestProvider()
	body := `{"data":{"metrics":[
		{"name":"step_count","units":"count","data":[{"date":"2024-01-01 00:00:00 +0000","qty":8123}]},
		{"name":"sleep_analysis","data":[
			{"startDate":"2023-12-31 23:00:00 +0000","endDate":"2024-01-01 03:00:00 +0000","value":"Core"},
			{"startDate":"2024-01-01 03:00:00 +0000","endDate":"2024-01-01 06:30:00 +0000","value":"REM"}]}
	],"workouts":[
		{"id":"W-1","name":"Outdoor Walk","start":"2024-01-01 12:00:00 +0000","end":"2024-01-01 12:40:00 +0000"}
	]}}`

	for i := range 2 {
		res, err := p.Ingest(context.Background(), []byte(body), 1)
		if err != nil {
			t.Fatalf("ingest %d: unexpected error: %v", i, err)
		}
		if i == 1 && res.WorkoutSessionsCount != 0 {
			t.Errorf("second ingest created %d workouts, want 0", res.WorkoutSessionsCount)
		}
	}

	if got := len(store.Biomarkers()); got != 1 {
		t.Errorf("biomarkers = %d, want 1", got)
	}
	sessions := store.SleepSessions()
	if len(sessions) != 1 {
		t.Fatalf("sleep sessions = %d, want 1", len(sessions))
	}
	if sessions[0].TotalMinutes != 450 || sessions[0].RemMinutes != 210 {
		t.Errorf("session = %+v, want 450 total and 210 REM minutes", sessions[0])
	}
	workouts := store.Workouts()
	if len(workouts) != 1 {
		t.Fatalf("workouts = %d, want 1", len(workouts))
	}
	if workouts[0].WorkoutType != models.WorkoutWalking || workouts[0].DurationMinutes != 40 {
		t.Errorf("workout = %+v, want 40 minute walk", workouts[0])
	}
}

// TestIngestUnrecognizedListed verifies unknown metrics are named in the
// result and do not fail the request.
func TestIngestUnrecognizedListed(t *testing.T) {
	p, _ := newTestProvider()
	body := `[{"name":"handwashing","data":[{"date":"2024-01-01","qty":4}]},{"name":"Steps","data":[{"date":"2024-01-01","qty":10}]}]`

	res, err := p.Ingest(context.Background(), []byte(body), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Unrecognized) != 1 || res.Unrecognized[0] != "handwashing" {
		t.Errorf("unrecognized = %v, want [handwashing]", res.Unrecognized)
	}
	if res.BiomarkersCount != 1 {
		t.Errorf("biomarkers = %d, want 1", res.BiomarkersCount)
	}
}

// TestIngestShapeError verifies unresolvable payloads return a *ShapeError.
func TestIngestShapeError(t *testing.T) {
	p, store := newTestProvider()
	_, err := p.Ingest(context.Background(), []byte(`{"status":"ok"}`), 1)
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ShapeError", err)
	}
	if len(store.Biomarkers()) != 0 {
		t.Error("nothing should be stored")
	}
}

// TestIngestStoreError verifies store failures surface as errors.
func TestIngestStoreError(t *testing.T) {
	p, store := newTestProvider()
	store.Fail["UpsertBiomarker"] = errors.New("disk full")
	body := `{"metrics":[{"name":"Weight","units":"kg","data":[{"date":"2024-01-01T08:00:00Z","qty":70}]}]}`

	_, err := p.Ingest(context.Background(), []byte(body), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	var se *ShapeError
	if errors.As(err, &se) {
		t.Error("store error must not be reported as a shape error")
	}
}

// TestDiagnose verifies the dry-run summary.
func TestDiagnose(t *testing.T) {
	d, err := Diagnose([]byte(`{"data":{"metrics":[
		{"name":"step_count","data":[{"date":"2024-01-01","qty":1},{"date":"bad","qty":2}]},
		{"name":"mystery","data":[]}]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Strategy != StrategyNestedContainer || len(d.Entries) != 2 {
		t.Fatalf("diagnosis = %+v", d)
	}
	if d.Entries[0].Kind != "biomarker" || d.Entries[0].Points != 1 || d.Entries[0].Malformed != 1 {
		t.Errorf("first entry = %+v", d.Entries[0])
	}
	if d.Entries[1].Kind != "unrecognized" {
		t.Errorf("second entry kind = %q, want unrecognized", d.Entries[1].Kind)
	}
}
