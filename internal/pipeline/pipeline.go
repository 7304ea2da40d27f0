// Package pipeline turns classified readings, workouts and sleep segments into
// canonical records and keeps derived data consistent after each batch.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/models"
)

// Store is the narrow persistence surface the pipeline writes through. Every
// write is idempotent on its natural key.
type Store interface {
	UpsertBiomarker(ctx context.Context, p models.BiomarkerPoint) error
	QueryBiomarkers(ctx context.Context, userID int, types []models.BiomarkerType, start, end time.Time) ([]models.BiomarkerPoint, error)

	InsertSleepSegments(ctx context.Context, userID int, source models.Source, segs []models.SleepSegment) error
	QuerySleepSegments(ctx context.Context, userID int, source models.Source, night time.Time) ([]models.SleepSegment, error)
	UpsertSleepSession(ctx context.Context, s models.SleepSession) error

	// CreateWorkoutSession inserts w and reports whether a new row was created.
	// A duplicate leaves the existing row untouched and returns false.
	CreateWorkoutSession(ctx context.Context, w *models.WorkoutSession) (bool, error)
	// FindMatchingSchedule returns the first uncompleted schedule entry of the
	// given type within window of around, or nil when there is none.
	FindMatchingSchedule(ctx context.Context, userID int, t models.WorkoutType, around time.Time, window time.Duration) (*models.TrainingSchedule, error)
	MatchWorkoutToSchedule(ctx context.Context, scheduleID, workoutID uuid.UUID) error

	GetGoals(ctx context.Context, userID int) ([]models.Goal, error)
	UpdateGoalProgress(ctx context.Context, goalID uuid.UUID, value float64) error
}

// ReadinessCache holds daily readiness scores computed elsewhere.
type ReadinessCache interface {
	// DeleteFrom removes cached scores for the user dated on or after from and
	// returns how many were removed.
	DeleteFrom(ctx context.Context, userID int, from time.Time) (int, error)
}

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	// Location, when set, is the zone night keys and calendar dates are
	// resolved in. When nil, timestamps keep the offset they were delivered with.
	Location *time.Location

	LabelScheme     LabelScheme
	DerivedLookback time.Duration
	ScheduleWindow  time.Duration

	// Concurrency bounds the fan-out of store writes within one call.
	Concurrency int

	Now func() time.Time
}

const (
	defaultDerivedLookback = 7 * 24 * time.Hour
	defaultScheduleWindow  = 24 * time.Hour
	defaultConcurrency     = 8
)

// Pipeline is safe for concurrent use; per-request state lives in Batch.
type Pipeline struct {
	store Store
	cache ReadinessCache
	log   *slog.Logger
	opts  Options
}

// New creates a Pipeline. cache may be nil, in which case readiness
// invalidation is skipped.
func New(store Store, cache ReadinessCache, log *slog.Logger, opts Options) *Pipeline {
	if opts.DerivedLookback <= 0 {
		opts.DerivedLookback = defaultDerivedLookback
	}
	if opts.ScheduleWindow <= 0 {
		opts.ScheduleWindow = defaultScheduleWindow
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LabelScheme == "" {
		opts.LabelScheme = LabelSchemeStandard
	}
	return &Pipeline{store: store, cache: cache, log: log, opts: opts}
}

// Batch accumulates the outcome of a single ingest request for one user and
// source. Its methods may be called concurrently.
type Batch struct {
	p      *Pipeline
	userID int
	source models.Source

	mu           sync.Mutex
	result       ingest.Result
	unrecognized map[string]bool
	newest       map[models.BiomarkerType]models.BiomarkerPoint
	sleepWritten bool
}

// Begin starts a batch for one ingest request.
func (p *Pipeline) Begin(userID int, source models.Source) *Batch {
	return &Batch{
		p:            p,
		userID:       userID,
		source:       source,
		unrecognized: make(map[string]bool),
		newest:       make(map[models.BiomarkerType]models.BiomarkerPoint),
	}
}

// Skip counts n malformed data points dropped before reaching the pipeline.
func (b *Batch) Skip(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	b.result.Skipped.Points += n
	b.mu.Unlock()
}

// Unrecognized records an entry name that no classifier rule accepted.
func (b *Batch) Unrecognized(name string) {
	b.mu.Lock()
	b.unrecognized[name] = true
	b.mu.Unlock()
}

// SetShape records which payload strategy located the entries.
func (b *Batch) SetShape(shape string) {
	b.mu.Lock()
	b.result.Shape = shape
	b.mu.Unlock()
}

// Finish runs the post-ingest passes and returns the batch result. Failures in
// these passes are logged and never change the result's success.
func (b *Batch) Finish(ctx context.Context) *ingest.Result {
	now := b.p.opts.Now()

	derived, err := b.p.deriveBodyFat(ctx, b.userID, now)
	if err != nil {
		b.p.log.Warn("deriving body fat", "user_id", b.userID, "error", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.result.DerivedCount = derived
	b.p.invalidate(ctx, b.userID, now, b.sleepWritten, b.newest)

	res := b.result
	res.Success = true
	res.Unrecognized = make([]string, 0, len(b.unrecognized))
	for name := range b.unrecognized {
		res.Unrecognized = append(res.Unrecognized, name)
	}
	sort.Strings(res.Unrecognized)
	return &res
}

// dateOf returns the calendar date of t, as a UTC midnight, in the configured
// location or t's own offset.
func (p *Pipeline) dateOf(t time.Time) time.Time {
	if p.opts.Location != nil {
		t = t.In(p.opts.Location)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
