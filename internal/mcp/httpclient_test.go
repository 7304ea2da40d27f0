package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/storage"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Error(err)
	}
}

var (
	testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
)

// TestQueryBiomarkers verifies repeated type params and the time range are sent.
func TestQueryBiomarkers(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/biomarkers": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if got := q["type"]; len(got) != 2 || got[0] != "weight" || got[1] != "hrv" {
				t.Errorf("type=%v, want [weight hrv]", got)
			}
			if got := q.Get("start"); got != "2026-01-01T00:00:00Z" {
				t.Errorf("start=%q, want 2026-01-01T00:00:00Z", got)
			}
			writeTestJSON(t, w, []models.BiomarkerPoint{
				{Type: models.BiomarkerWeight, Value: 154.3236, Unit: "lbs", RecordedAt: testStart},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL + "/")
	points, err := client.QueryBiomarkers(context.Background(), 1,
		[]models.BiomarkerType{models.BiomarkerWeight, models.BiomarkerHRV}, testStart, testEnd)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || points[0].Unit != "lbs" {
		t.Errorf("points = %+v, want one lbs reading", points)
	}
}

// TestGetSleepSummary verifies the bucket param is forwarded.
func TestGetSleepSummary(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sleep/summary": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("bucket"); got != "week" {
				t.Errorf("bucket=%q, want week", got)
			}
			writeTestJSON(t, w, []storage.SleepSummaryPeriod{{Period: "2025-12-29", Nights: 3}})
		},
	})
	defer ts.Close()

	periods, err := NewHTTPClient(ts.URL).GetSleepSummary(context.Background(), 1, testStart, testEnd, "week")
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 || periods[0].Nights != 3 {
		t.Errorf("periods = %+v, want one period with 3 nights", periods)
	}
}

// TestGetDataStats verifies a single struct response is decoded.
func TestGetDataStats(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, storage.DataStats{TotalBiomarkers: 12, TotalSleepNights: 2})
		},
	})
	defer ts.Close()

	stats, err := NewHTTPClient(ts.URL).GetDataStats(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalBiomarkers != 12 || stats.TotalSleepNights != 2 {
		t.Errorf("stats = %+v, want 12 biomarkers and 2 nights", stats)
	}
}

// TestHTTPError verifies non-200 responses surface as errors with the status.
func TestHTTPError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).QueryWorkouts(context.Background(), 1, testStart, testEnd)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
