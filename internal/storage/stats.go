package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored records.
type DataStats struct {
	TotalBiomarkers  int64             `json:"total_biomarkers"`
	TotalWorkouts    int64             `json:"total_workouts"`
	TotalSleepNights int64             `json:"total_sleep_nights"`
	EarliestData     *time.Time        `json:"earliest_data"`
	LatestData       *time.Time        `json:"latest_data"`
	BiomarkersByType []BiomarkerStat   `json:"biomarkers_by_type"`
	WorkoutsByType   []WorkoutTypeStat `json:"workouts_by_type"`
}

// BiomarkerStat counts stored points of one biomarker type.
type BiomarkerStat struct {
	Type   string    `json:"type"`
	Count  int64     `json:"count"`
	Latest time.Time `json:"latest"`
}

// WorkoutTypeStat holds summary stats for a single workout type.
type WorkoutTypeStat struct {
	Type          string   `json:"type"`
	Count         int64    `json:"count"`
	TotalMinutes  int64    `json:"total_minutes"`
	TotalDistance *float64 `json:"total_distance_meters,omitempty"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM biomarkers WHERE user_id = $1),
			(SELECT COUNT(*) FROM workout_sessions WHERE user_id = $1),
			(SELECT COUNT(*) FROM sleep_sessions WHERE user_id = $1)`, userID,
	).Scan(&stats.TotalBiomarkers, &stats.TotalWorkouts, &stats.TotalSleepNights)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}

	// Date range across biomarkers and workouts
	err = db.Pool.QueryRow(ctx,
		`SELECT MIN(t), MAX(t) FROM (
			SELECT recorded_at AS t FROM biomarkers WHERE user_id = $1
			UNION ALL
			SELECT start_time FROM workout_sessions WHERE user_id = $1
		) sub`, userID,
	).Scan(&stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("querying date range: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT type, COUNT(*), MAX(recorded_at)
		 FROM biomarkers
		 WHERE user_id = $1
		 GROUP BY type
		 ORDER BY type`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying biomarkers by type: %w", err)
	}
	for rows.Next() {
		var s BiomarkerStat
		if err := rows.Scan(&s.Type, &s.Count, &s.Latest); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning biomarker stat: %w", err)
		}
		stats.BiomarkersByType = append(stats.BiomarkersByType, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Pool.Query(ctx,
		`SELECT workout_type, COUNT(*), COALESCE(SUM(duration_minutes), 0), SUM(distance_meters)
		 FROM workout_sessions
		 WHERE user_id = $1
		 GROUP BY workout_type
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s WorkoutTypeStat
		if err := rows.Scan(&s.Type, &s.Count, &s.TotalMinutes, &s.TotalDistance); err != nil {
			return nil, fmt.Errorf("scanning workout type stat: %w", err)
		}
		stats.WorkoutsByType = append(stats.WorkoutsByType, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
