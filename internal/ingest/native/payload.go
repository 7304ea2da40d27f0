package native

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a lenient numeric field. JSON numbers and numeric strings decode
// to Value; any other non-null value decodes with Invalid set instead of
// failing the whole body.
type Number struct {
	Value   float64
	Invalid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	var (
		f   float64
		err error
	)
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		f, err = x.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		n.Invalid = true
		return nil
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		n.Invalid = true
		return nil
	}
	n.Value = f
	return nil
}

// float returns the value, or nil when absent or invalid.
func (n *Number) float() *float64 {
	if n == nil || n.Invalid {
		return nil
	}
	v := n.Value
	return &v
}

// Sample is one bucketed value computed on the device. Date is a timestamp
// string or Unix epoch; Unit may be empty when the device already reports the
// canonical unit.
type Sample struct {
	Date  any    `json:"date"`
	Value Number `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// SleepSample is one sleep interval with stage minutes.
type SleepSample struct {
	Start any     `json:"start"`
	End   any     `json:"end"`
	Awake Number  `json:"awake"`
	Light Number  `json:"light"`
	Core  Number  `json:"core"`
	Deep  Number  `json:"deep"`
	REM   Number  `json:"rem"`
	Score *Number `json:"score,omitempty"`
}

// WorkoutSample is a workout as recorded by the device. Duration is seconds,
// distance meters and calories kilocalories. Invalid optional metrics are
// dropped rather than failing the workout.
type WorkoutSample struct {
	ID           string  `json:"id,omitempty"`
	Type         string  `json:"type"`
	Name         string  `json:"name,omitempty"`
	Start        any     `json:"start"`
	End          any     `json:"end,omitempty"`
	Duration     Number  `json:"duration,omitempty"`
	Distance     *Number `json:"distance,omitempty"`
	Calories     *Number `json:"calories,omitempty"`
	AvgHeartRate *Number `json:"avgHeartRate,omitempty"`
	MaxHeartRate *Number `json:"maxHeartRate,omitempty"`
}

// SyncPayload is the body of a native sync call: one array per metric kind.
type SyncPayload struct {
	Steps     []Sample        `json:"steps"`
	HRV       []Sample        `json:"hrv"`
	RestingHR []Sample        `json:"restingHR"`
	Weight    []Sample        `json:"weight"`
	BodyFat   []Sample        `json:"bodyFat"`
	LeanMass  []Sample        `json:"leanMass"`
	Sleep     []SleepSample   `json:"sleep"`
	Workouts  []WorkoutSample `json:"workouts"`
}
