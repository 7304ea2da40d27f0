package hae

import (
	"math"
	"strings"

	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/units"
)

// extractWorkout reads the loosely-typed workout fields. Missing values stay
// zero or nil; the pipeline decides whether the workout is usable.
func extractWorkout(m map[string]any) models.WorkoutInput {
	in := models.WorkoutInput{
		Name:         firstString(m, "name", "workoutActivityType", "activityType", "workout_type", "type", "sport"),
		ActivityCode: firstString(m, activityKeys...),
		SourceID:     firstString(m, idKeys...),
	}
	in.Start, _ = timeField(m, startKeys...)
	in.End, _ = timeField(m, endKeys...)
	in.DurationSeconds = durationSeconds(m)

	if qty, u, ok := quantity(m["distance"]); ok {
		meters := units.ToMeters(qty, u)
		in.DistanceMeters = &meters
	} else if v, ok := firstNumber(m, "distance_meters", "distanceMeters"); ok {
		in.DistanceMeters = &v
	}

	for _, k := range []string{"activeEnergyBurned", "activeEnergy", "totalEnergy", "totalEnergyBurned", "energy"} {
		if qty, u, ok := quantity(m[k]); ok {
			kcal := int(math.Round(units.ToKilocalories(qty, u)))
			in.Calories = &kcal
			break
		}
	}
	if in.Calories == nil {
		if v, ok := firstNumber(m, "calories", "kilocalories"); ok {
			kcal := int(math.Round(v))
			in.Calories = &kcal
		} else if v, ok := firstNumber(m, "kilojoules"); ok {
			kcal := int(math.Round(units.ToKilocalories(v, "kJ")))
			in.Calories = &kcal
		}
	}

	if hr, ok := m["heartRate"].(map[string]any); ok {
		if v, _, ok := quantity(hr["avg"]); ok {
			in.AvgHeartRate = &v
		}
		if v, _, ok := quantity(hr["max"]); ok {
			in.MaxHeartRate = &v
		}
	}
	if in.AvgHeartRate == nil {
		if v, _, ok := quantity(firstPresent(m, "avgHeartRate", "avg_heart_rate", "averageHeartRate")); ok {
			in.AvgHeartRate = &v
		}
	}
	if in.MaxHeartRate == nil {
		if v, _, ok := quantity(firstPresent(m, "maxHeartRate", "max_heart_rate")); ok {
			in.MaxHeartRate = &v
		}
	}
	return in
}

// durationSeconds reads the workout duration. Bare numbers are seconds except
// under duration_minutes; quantities honor their units.
func durationSeconds(m map[string]any) float64 {
	if v, ok := firstNumber(m, "duration_minutes"); ok {
		return v * 60
	}
	for _, k := range []string{"duration", "durationSeconds", "duration_seconds"} {
		qty, u, ok := quantity(m[k])
		if !ok {
			continue
		}
		switch strings.ToLower(u) {
		case "min", "mins", "minutes":
			return qty * 60
		case "hr", "h", "hours":
			return qty * 3600
		default:
			return qty
		}
	}
	return 0
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
