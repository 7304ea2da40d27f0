package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/healthsync/internal/ingest"
)

// ImportLog represents a single ingestion request's outcome.
type ImportLog struct {
	ID              int64            `json:"id"`
	UserID          int              `json:"user_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Source          string           `json:"source"`
	Status          string           `json:"status"`
	Shape           *string          `json:"shape,omitempty"`
	Biomarkers      int              `json:"biomarkers"`
	SleepSessions   int              `json:"sleep_sessions"`
	WorkoutSessions int              `json:"workout_sessions"`
	Derived         int              `json:"derived"`
	Skipped         *ingest.Skipped  `json:"skipped,omitempty"`
	DurationMs      *int             `json:"duration_ms"`
	ErrorMessage    *string          `json:"error_message"`
	Metadata        *json.RawMessage `json:"metadata"`
}

// ImportLogFromResult fills the count columns of a log entry from an ingest
// result. A nil result leaves them zero.
func ImportLogFromResult(userID int, source, status string, res *ingest.Result, elapsed time.Duration) ImportLog {
	ms := int(elapsed.Milliseconds())
	log := ImportLog{
		UserID:     userID,
		Source:     source,
		Status:     status,
		DurationMs: &ms,
	}
	if res == nil {
		return log
	}
	log.Biomarkers = res.BiomarkersCount
	log.SleepSessions = res.SleepSessionsCount
	log.WorkoutSessions = res.WorkoutSessionsCount
	log.Derived = res.DerivedCount
	skipped := res.Skipped
	log.Skipped = &skipped
	if res.Shape != "" {
		shape := res.Shape
		log.Shape = &shape
	}
	if len(res.Unrecognized) > 0 {
		if b, err := json.Marshal(map[string]any{"unrecognized": res.Unrecognized}); err == nil {
			raw := json.RawMessage(b)
			log.Metadata = &raw
		}
	}
	return log
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (user_id, source, status, shape, biomarkers, sleep_sessions,
		 workout_sessions, derived, skipped, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING id`,
		log.UserID, log.Source, log.Status, log.Shape, log.Biomarkers, log.SleepSessions,
		log.WorkoutSessions, log.Derived, log.Skipped, log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// QueryImportLogs returns the most recent import logs for a user.
func (db *DB) QueryImportLogs(ctx context.Context, userID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, source, status, shape, biomarkers, sleep_sessions,
		 workout_sessions, derived, skipped, duration_ms, error_message, metadata
		 FROM import_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Source, &l.Status, &l.Shape,
			&l.Biomarkers, &l.SleepSessions, &l.WorkoutSessions, &l.Derived, &l.Skipped,
			&l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
