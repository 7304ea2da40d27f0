package hae

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/claude/healthsync/internal/models"
)

// Field-name variants seen across exporters and export versions.
var (
	startKeys    = []string{"start", "startDate", "start_time", "startTime", "startedAt"}
	endKeys      = []string{"end", "endDate", "end_time", "endTime", "endedAt"}
	dateKeys     = []string{"date", "timestamp", "time", "recordedAt", "recorded_at", "startDate", "start"}
	energyKeys   = []string{"activeEnergyBurned", "activeEnergy", "totalEnergy", "totalEnergyBurned", "energy", "calories", "kilojoules"}
	activityKeys = []string{"workoutActivityType", "activityType", "activity_type", "workout_type", "workoutType", "sport"}
	durationKeys = []string{"duration", "duration_minutes", "durationSeconds", "duration_seconds"}
	idKeys       = []string{"id", "uuid", "workout_id", "source_id"}
)

func hasAny(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// quantity reads either a bare number or a {"qty": N, "units": "..."} object.
func quantity(v any) (qty float64, units string, ok bool) {
	if obj, isObj := v.(map[string]any); isObj {
		qty, ok = firstNumber(obj, "qty", "value", "quantity")
		return qty, firstString(obj, "units", "unit"), ok
	}
	qty, ok = toFloat(v)
	return qty, "", ok
}

// timeField returns the first key that parses as a timestamp.
func timeField(m map[string]any, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		v, present := m[k]
		if !present || v == nil {
			continue
		}
		if t, err := models.TimestampFromValue(v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dataPoints returns the nested point list of an entry, if any.
func dataPoints(entry map[string]any) ([]any, bool) {
	for _, k := range []string{"data", "samples", "values"} {
		if pts, ok := entry[k].([]any); ok {
			return pts, true
		}
	}
	return nil, false
}
