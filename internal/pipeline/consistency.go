package pipeline

import (
	"context"
	"time"

	"github.com/claude/healthsync/internal/models"
)

// goalMetrics remaps biomarker types onto the goal metric they advance.
// Types not listed advance a goal with the same name.
var goalMetrics = map[models.BiomarkerType]string{
	models.BiomarkerSystolic:  "blood-pressure",
	models.BiomarkerDiastolic: "blood-pressure",
}

// GoalMetric returns the goal metric type a biomarker type advances.
func GoalMetric(t models.BiomarkerType) string {
	if m, ok := goalMetrics[t]; ok {
		return m
	}
	return string(t)
}

// invalidate drops stale readiness scores and advances goal progress. Both
// effects are best effort.
func (p *Pipeline) invalidate(ctx context.Context, userID int, now time.Time, sleepWritten bool, newest map[models.BiomarkerType]models.BiomarkerPoint) {
	if sleepWritten && p.cache != nil {
		n, err := p.cache.DeleteFrom(ctx, userID, p.dateOf(now))
		if err != nil {
			p.log.Warn("invalidating readiness cache", "user_id", userID, "error", err)
		} else if n > 0 {
			p.log.Debug("invalidated readiness scores", "user_id", userID, "count", n)
		}
	}

	if len(newest) == 0 {
		return
	}
	values := goalValues(newest)

	goals, err := p.store.GetGoals(ctx, userID)
	if err != nil {
		p.log.Warn("loading goals", "user_id", userID, "error", err)
		return
	}
	for _, goal := range goals {
		if !goal.Active {
			continue
		}
		v, ok := values[goal.MetricType]
		if !ok {
			continue
		}
		if err := p.store.UpdateGoalProgress(ctx, goal.ID, v); err != nil {
			p.log.Warn("updating goal progress", "goal_id", goal.ID, "metric", goal.MetricType, "error", err)
		}
	}
}

// goalValues picks one value per goal metric from the newest reading of each
// type. Systolic represents blood pressure when both halves arrived.
func goalValues(newest map[models.BiomarkerType]models.BiomarkerPoint) map[string]float64 {
	values := make(map[string]float64, len(newest))
	for t, pt := range newest {
		if t == models.BiomarkerDiastolic {
			if _, ok := newest[models.BiomarkerSystolic]; ok {
				continue
			}
		}
		values[GoalMetric(t)] = pt.Value
	}
	return values
}
