// Package observability exposes Prometheus counters for the ingest endpoints.
package observability

import (
	"time"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthsync",
		Subsystem: "ingest",
		Name:      "requests_total",
		Help:      "Number of ingest requests by source and outcome.",
	}, []string{"source", "status"})

	recordCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthsync",
		Subsystem: "ingest",
		Name:      "records_written_total",
		Help:      "Number of canonical records written by source and kind.",
	}, []string{"source", "kind"})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthsync",
		Subsystem: "ingest",
		Name:      "skipped_total",
		Help:      "Number of inputs dropped without failing the batch, by reason.",
	}, []string{"source", "reason"})

	durationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "healthsync",
		Subsystem: "ingest",
		Name:      "duration_seconds",
		Help:      "Ingest request processing time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(requestCounter, recordCounter, skippedCounter, durationHistogram)
}

// RecordIngest counts one ingest request. res may be nil when the request
// failed before a batch was finished.
func RecordIngest(source string, status string, res *ingest.Result, elapsed time.Duration) {
	requestCounter.WithLabelValues(source, status).Inc()
	durationHistogram.WithLabelValues(source).Observe(elapsed.Seconds())
	if res == nil {
		return
	}

	addRecords(source, "biomarker", res.BiomarkersCount)
	addRecords(source, "sleep", res.SleepSessionsCount)
	addRecords(source, "workout", res.WorkoutSessionsCount)
	addRecords(source, "derived", res.DerivedCount)

	addSkipped(source, "point", res.Skipped.Points)
	addSkipped(source, "workout", res.Skipped.Workouts)
	addSkipped(source, "night", res.Skipped.Nights)
	addSkipped(source, "duplicate", res.Skipped.Duplicates)
	addSkipped(source, "unrecognized", len(res.Unrecognized))
}

func addRecords(source, kind string, n int) {
	if n > 0 {
		recordCounter.WithLabelValues(source, kind).Add(float64(n))
	}
}

func addSkipped(source, reason string, n int) {
	if n > 0 {
		skippedCounter.WithLabelValues(source, reason).Add(float64(n))
	}
}
