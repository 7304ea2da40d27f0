package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/healthsync/internal/models"
	"github.com/jackc/pgx/v5"
)

// CreateWorkoutSession inserts a workout row. Returns true if inserted, false
// if a session with the same natural key or source ID already exists.
func (db *DB) CreateWorkoutSession(ctx context.Context, w *models.WorkoutSession) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, workout_type, start_time, end_time, duration_minutes,
		 distance_meters, calories, avg_heart_rate, max_heart_rate, source_type, source_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12, ''))
		 ON CONFLICT DO NOTHING`,
		w.ID, w.UserID, string(w.WorkoutType), w.StartTime, w.EndTime, w.DurationMinutes,
		w.DistanceMeters, w.Calories, w.AvgHeartRate, w.MaxHeartRate,
		string(w.SourceType), w.SourceID)
	if err != nil {
		return false, fmt.Errorf("inserting workout session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// QueryWorkouts retrieves workout sessions started in [start, end), newest first.
func (db *DB) QueryWorkouts(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, workout_type, start_time, end_time, duration_minutes,
		 distance_meters, calories, avg_heart_rate, max_heart_rate, source_type,
		 COALESCE(source_id, ''), matched_schedule_id
		 FROM workout_sessions
		 WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
		 ORDER BY start_time DESC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanWorkouts(rows)
}

func scanWorkouts(rows pgx.Rows) ([]models.WorkoutSession, error) {
	var result []models.WorkoutSession
	for rows.Next() {
		var w models.WorkoutSession
		var typ, source string
		if err := rows.Scan(&w.ID, &w.UserID, &typ, &w.StartTime, &w.EndTime, &w.DurationMinutes,
			&w.DistanceMeters, &w.Calories, &w.AvgHeartRate, &w.MaxHeartRate, &source,
			&w.SourceID, &w.MatchedScheduleID); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		w.WorkoutType = models.WorkoutType(typ)
		w.SourceType = models.Source(source)
		result = append(result, w)
	}
	return result, rows.Err()
}
