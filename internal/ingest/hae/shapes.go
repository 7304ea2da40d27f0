package hae

// PointShape describes the value layout of a biomarker data point.
type PointShape int

const (
	ShapeQty           PointShape = iota // {"qty": N}
	ShapeMinAvgMax                       // heart rate: {"Min": N, "Avg": N, "Max": N}
	ShapeBloodPressure                   // {"systolic": N, "diastolic": N}
)

// DetectPointShape inspects a data point's keys. Heart rate exports carry
// capitalized Min/Avg/Max; some exporters lowercase them.
func DetectPointShape(point map[string]any) PointShape {
	if hasAny(point, []string{"systolic", "diastolic"}) {
		return ShapeBloodPressure
	}
	if hasAny(point, []string{"Avg", "avg", "Min", "Max"}) {
		return ShapeMinAvgMax
	}
	return ShapeQty
}

// SleepFormat describes how a sleep data point is laid out.
type SleepFormat int

const (
	SleepFormatAggregated SleepFormat = iota // one nightly summary with stage hours
	SleepFormatStage                         // one row per stage: startDate, endDate, value
	SleepFormatSegment                       // start/end with stage minutes
)

// DetectSleepFormat examines a sleep data point to determine its layout.
func DetectSleepFormat(point map[string]any) SleepFormat {
	if hasAny(point, []string{"totalSleep", "sleepStart", "inBedStart"}) {
		return SleepFormatAggregated
	}
	if _, ok := point["value"].(string); ok {
		return SleepFormatStage
	}
	if _, ok := point["stage"].(string); ok {
		return SleepFormatStage
	}
	return SleepFormatSegment
}
