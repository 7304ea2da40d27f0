package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/healthsync/internal/models"
)

type segmentKey struct {
	start, end time.Time
	stages     string
}

// uniqueSegments drops repeated (start, end, stages) rows, keeping the last
// one. Postgres rejects an upsert that touches the same row twice.
func uniqueSegments(segs []models.SleepSegment) []models.SleepSegment {
	idx := make(map[segmentKey]int, len(segs))
	out := make([]models.SleepSegment, 0, len(segs))
	for _, s := range segs {
		k := segmentKey{s.Start.UTC(), s.End.UTC(), s.StageSignature()}
		if i, ok := idx[k]; ok {
			out[i] = s
			continue
		}
		idx[k] = len(out)
		out = append(out, s)
	}
	return out
}

// InsertSleepSegments batch-upserts raw segments into the per-night ledger.
func (db *DB) InsertSleepSegments(ctx context.Context, userID int, source models.Source, segs []models.SleepSegment) error {
	segs = uniqueSegments(segs)
	if len(segs) == 0 {
		return nil
	}

	const cols = 11
	args := make([]any, 0, len(segs)*cols)
	for _, s := range segs {
		args = append(args, userID, string(source), s.Start, s.End, s.StageSignature(), s.Night,
			s.AwakeMinutes, s.LightMinutes, s.DeepMinutes, s.RemMinutes, s.Score)
	}

	query := `INSERT INTO sleep_segments (user_id, source, start_time, end_time, stages, night_date,
		 awake_minutes, light_minutes, deep_minutes, rem_minutes, score) VALUES ` +
		strings.Join(placeholders(len(segs), cols), ",") +
		` ON CONFLICT (user_id, source, start_time, end_time, stages) DO UPDATE SET
		 night_date = EXCLUDED.night_date, score = EXCLUDED.score`

	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting sleep segments: %w", err)
	}
	return nil
}

// QuerySleepSegments returns the ledger segments stored for one night.
func (db *DB) QuerySleepSegments(ctx context.Context, userID int, source models.Source, night time.Time) ([]models.SleepSegment, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT start_time, end_time, night_date, awake_minutes, light_minutes, deep_minutes, rem_minutes, score
		 FROM sleep_segments
		 WHERE user_id = $1 AND source = $2 AND night_date = $3
		 ORDER BY start_time`,
		userID, string(source), night)
	if err != nil {
		return nil, fmt.Errorf("querying sleep segments: %w", err)
	}
	defer rows.Close()

	var result []models.SleepSegment
	for rows.Next() {
		var s models.SleepSegment
		if err := rows.Scan(&s.Start, &s.End, &s.Night, &s.AwakeMinutes, &s.LightMinutes,
			&s.DeepMinutes, &s.RemMinutes, &s.Score); err != nil {
			return nil, fmt.Errorf("scanning sleep segment: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// UpsertSleepSession writes the reduced session for a night, replacing any
// earlier reduction for the same (user, night, source).
func (db *DB) UpsertSleepSession(ctx context.Context, s models.SleepSession) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sleep_sessions (user_id, night_date, source, bedtime, waketime, total_minutes,
		 awake_minutes, light_minutes, deep_minutes, rem_minutes, sleep_score, quality)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (user_id, night_date, source) DO UPDATE SET
		 bedtime = EXCLUDED.bedtime, waketime = EXCLUDED.waketime,
		 total_minutes = EXCLUDED.total_minutes, awake_minutes = EXCLUDED.awake_minutes,
		 light_minutes = EXCLUDED.light_minutes, deep_minutes = EXCLUDED.deep_minutes,
		 rem_minutes = EXCLUDED.rem_minutes, sleep_score = EXCLUDED.sleep_score,
		 quality = EXCLUDED.quality, updated_at = NOW()`,
		s.UserID, s.NightDate, string(s.Source), s.Bedtime, s.Waketime, s.TotalMinutes,
		s.AwakeMinutes, s.LightMinutes, s.DeepMinutes, s.RemMinutes, s.SleepScore, string(s.Quality))
	if err != nil {
		return fmt.Errorf("upserting sleep session %s: %w", s.NightDate.Format(time.DateOnly), err)
	}
	return nil
}

// QuerySleepSessions retrieves sleep sessions whose night falls in [start, end).
func (db *DB) QuerySleepSessions(ctx context.Context, userID int, start, end time.Time) ([]models.SleepSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, night_date, source, bedtime, waketime, total_minutes,
		 awake_minutes, light_minutes, deep_minutes, rem_minutes, sleep_score, quality
		 FROM sleep_sessions
		 WHERE user_id = $1 AND night_date >= $2 AND night_date < $3
		 ORDER BY night_date DESC, source`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sleep sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SleepSession
	for rows.Next() {
		var s models.SleepSession
		var source, quality string
		if err := rows.Scan(&s.UserID, &s.NightDate, &source, &s.Bedtime, &s.Waketime,
			&s.TotalMinutes, &s.AwakeMinutes, &s.LightMinutes, &s.DeepMinutes, &s.RemMinutes,
			&s.SleepScore, &quality); err != nil {
			return nil, fmt.Errorf("scanning sleep session: %w", err)
		}
		s.Source = models.Source(source)
		s.Quality = models.SleepQuality(quality)
		result = append(result, s)
	}
	return result, rows.Err()
}
