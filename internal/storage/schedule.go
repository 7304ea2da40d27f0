package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/healthsync/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FindMatchingSchedule returns the uncompleted schedule entry of the given
// type closest to around, within window on either side. It returns nil when
// nothing matches.
func (db *DB) FindMatchingSchedule(ctx context.Context, userID int, workoutType models.WorkoutType, around time.Time, window time.Duration) (*models.TrainingSchedule, error) {
	from := around.Add(-window)
	to := around.Add(window)

	var s models.TrainingSchedule
	var typ string
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, workout_type, scheduled_date, completed, workout_session_id
		 FROM training_schedule
		 WHERE user_id = $1 AND workout_type = $2 AND NOT completed
		   AND scheduled_date BETWEEN $3::date AND $4::date
		 ORDER BY abs(scheduled_date - $5::date), scheduled_date
		 LIMIT 1`,
		userID, string(workoutType), from, to, around,
	).Scan(&s.ID, &s.UserID, &typ, &s.ScheduledDate, &s.Completed, &s.WorkoutSessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding schedule for %s: %w", workoutType, err)
	}
	s.WorkoutType = models.WorkoutType(typ)
	return &s, nil
}

// MatchWorkoutToSchedule marks the schedule entry completed and links both
// rows in one transaction.
func (db *DB) MatchWorkoutToSchedule(ctx context.Context, scheduleID, workoutID uuid.UUID) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE training_schedule SET completed = TRUE, workout_session_id = $2
			 WHERE id = $1 AND NOT completed`,
			scheduleID, workoutID)
		if err != nil {
			return fmt.Errorf("completing schedule %s: %w", scheduleID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("schedule %s already completed", scheduleID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE workout_sessions SET matched_schedule_id = $1 WHERE id = $2`,
			scheduleID, workoutID); err != nil {
			return fmt.Errorf("linking workout %s: %w", workoutID, err)
		}
		return nil
	})
}
