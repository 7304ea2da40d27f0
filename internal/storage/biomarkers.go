package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/healthsync/internal/models"
)

// UpsertBiomarker writes a point, replacing the value of an existing point
// with the same (user, type, recorded_at, source).
func (db *DB) UpsertBiomarker(ctx context.Context, p models.BiomarkerPoint) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO biomarkers (user_id, type, value, unit, source, recorded_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (user_id, type, recorded_at, source) DO UPDATE
		 SET value = EXCLUDED.value, unit = EXCLUDED.unit, updated_at = NOW()`,
		p.UserID, string(p.Type), p.Value, p.Unit, string(p.Source), p.RecordedAt)
	if err != nil {
		return fmt.Errorf("upserting biomarker %s: %w", p.Type, err)
	}
	return nil
}

// QueryBiomarkers returns points of the given types in [start, end], oldest
// first. An empty types slice means all types.
func (db *DB) QueryBiomarkers(ctx context.Context, userID int, types []models.BiomarkerType, start, end time.Time) ([]models.BiomarkerPoint, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, type, value, unit, source, recorded_at
		 FROM biomarkers
		 WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		   AND (cardinality($4::text[]) = 0 OR type = ANY($4))
		 ORDER BY recorded_at, type`,
		userID, start, end, names)
	if err != nil {
		return nil, fmt.Errorf("querying biomarkers: %w", err)
	}
	defer rows.Close()

	var result []models.BiomarkerPoint
	for rows.Next() {
		var p models.BiomarkerPoint
		var typ, source string
		if err := rows.Scan(&p.UserID, &typ, &p.Value, &p.Unit, &source, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning biomarker: %w", err)
		}
		p.Type = models.BiomarkerType(typ)
		p.Source = models.Source(source)
		result = append(result, p)
	}
	return result, rows.Err()
}
