package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/claude/healthsync/internal/models"
)

// NormalizeWorkout builds a canonical session from an extracted workout.
// It returns false when neither start nor end is known or the interval is
// inverted. A missing endpoint is filled from the reported duration.
func NormalizeWorkout(userID int, source models.Source, in models.WorkoutInput) (models.WorkoutSession, bool) {
	start, end := in.Start, in.End
	dur := time.Duration(in.DurationSeconds * float64(time.Second))
	switch {
	case start.IsZero() && end.IsZero():
		return models.WorkoutSession{}, false
	case end.IsZero():
		end = start.Add(dur)
	case start.IsZero():
		start = end.Add(-dur)
	}
	if end.Before(start) {
		return models.WorkoutSession{}, false
	}

	return models.WorkoutSession{
		UserID:          userID,
		WorkoutType:     ResolveWorkoutType(in.ActivityCode, in.Name),
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int(math.Round(end.Sub(start).Minutes())),
		DistanceMeters:  in.DistanceMeters,
		Calories:        in.Calories,
		AvgHeartRate:    in.AvgHeartRate,
		MaxHeartRate:    in.MaxHeartRate,
		SourceType:      source,
		SourceID:        in.SourceID,
	}, true
}

// Workouts normalizes and creates workout sessions. Each new session is then
// matched against the training schedule; matching failures are only logged.
func (b *Batch) Workouts(ctx context.Context, inputs []models.WorkoutInput) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.p.opts.Concurrency)
	for _, in := range inputs {
		g.Go(func() error {
			ws, ok := NormalizeWorkout(b.userID, b.source, in)
			if !ok {
				b.mu.Lock()
				b.result.Skipped.Workouts++
				b.mu.Unlock()
				return nil
			}
			ws.ID = uuid.New()

			created, err := b.p.store.CreateWorkoutSession(gctx, &ws)
			if err != nil {
				return fmt.Errorf("creating %s workout: %w", ws.WorkoutType, err)
			}

			b.mu.Lock()
			if created {
				b.result.WorkoutSessionsCount++
			} else {
				b.result.Skipped.Duplicates++
			}
			b.mu.Unlock()

			if created {
				b.p.matchSchedule(gctx, &ws)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) matchSchedule(ctx context.Context, ws *models.WorkoutSession) {
	sched, err := p.store.FindMatchingSchedule(ctx, ws.UserID, ws.WorkoutType, ws.StartTime, p.opts.ScheduleWindow)
	if err != nil {
		p.log.Warn("finding matching schedule", "workout_id", ws.ID, "error", err)
		return
	}
	if sched == nil {
		return
	}
	if err := p.store.MatchWorkoutToSchedule(ctx, sched.ID, ws.ID); err != nil {
		p.log.Warn("matching workout to schedule",
			"workout_id", ws.ID, "schedule_id", sched.ID, "error", err)
		return
	}
	ws.MatchedScheduleID = &sched.ID
	p.log.Debug("workout matched to schedule", "workout_id", ws.ID, "schedule_id", sched.ID)
}
