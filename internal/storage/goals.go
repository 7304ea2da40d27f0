package storage

import (
	"context"
	"fmt"

	"github.com/claude/healthsync/internal/models"
	"github.com/google/uuid"
)

// GetGoals returns all goals for a user, active or not.
func (db *DB) GetGoals(ctx context.Context, userID int) ([]models.Goal, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, metric_type, current_value, target_value, active
		 FROM goals WHERE user_id = $1
		 ORDER BY metric_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var result []models.Goal
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.MetricType, &g.CurrentValue, &g.TargetValue, &g.Active); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// UpdateGoalProgress sets a goal's current value.
func (db *DB) UpdateGoalProgress(ctx context.Context, goalID uuid.UUID, value float64) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE goals SET current_value = $2, updated_at = NOW() WHERE id = $1`,
		goalID, value)
	if err != nil {
		return fmt.Errorf("updating goal %s: %w", goalID, err)
	}
	return nil
}
