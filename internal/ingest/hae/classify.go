package hae

import (
	"strings"

	"github.com/claude/healthsync/internal/models"
)

const bloodPressureEntry models.BiomarkerType = "blood-pressure"

// biomarkerNames maps lowercased entry names, both the machine names Health
// Auto Export sends and the human names other exporters use, to canonical
// types. bloodPressureEntry fans out to systolic and diastolic.
var biomarkerNames = map[string]models.BiomarkerType{
	"heart_rate":                 models.BiomarkerHeartRate,
	"heart rate":                 models.BiomarkerHeartRate,
	"heartrate":                  models.BiomarkerHeartRate,
	"resting_heart_rate":         models.BiomarkerRestingHeartRate,
	"resting heart rate":         models.BiomarkerRestingHeartRate,
	"walking_heart_rate_average": models.BiomarkerWalkingHeartRate,
	"walking heart rate average": models.BiomarkerWalkingHeartRate,
	"heart_rate_variability":     models.BiomarkerHRV,
	"heart rate variability":     models.BiomarkerHRV,
	"hrv":                        models.BiomarkerHRV,
	"respiratory_rate":           models.BiomarkerRespiratoryRate,
	"respiratory rate":           models.BiomarkerRespiratoryRate,
	"blood_oxygen_saturation":    models.BiomarkerOxygenSaturation,
	"blood oxygen saturation":    models.BiomarkerOxygenSaturation,
	"oxygen_saturation":          models.BiomarkerOxygenSaturation,
	"oxygen saturation":          models.BiomarkerOxygenSaturation,
	"blood_pressure_systolic":    models.BiomarkerSystolic,
	"blood pressure systolic":    models.BiomarkerSystolic,
	"blood_pressure_diastolic":   models.BiomarkerDiastolic,
	"blood pressure diastolic":   models.BiomarkerDiastolic,
	"blood_glucose":              models.BiomarkerBloodGlucose,
	"blood glucose":              models.BiomarkerBloodGlucose,
	"weight_body_mass":           models.BiomarkerWeight,
	"weight & body mass":         models.BiomarkerWeight,
	"body_mass":                  models.BiomarkerWeight,
	"weight":                     models.BiomarkerWeight,
	"lean_body_mass":             models.BiomarkerLeanBodyMass,
	"lean body mass":             models.BiomarkerLeanBodyMass,
	"body_fat_percentage":        models.BiomarkerBodyFatPercentage,
	"body fat percentage":        models.BiomarkerBodyFatPercentage,
	"body_mass_index":            models.BiomarkerBMI,
	"body mass index":            models.BiomarkerBMI,
	"bmi":                        models.BiomarkerBMI,
	"body_temperature":           models.BiomarkerBodyTemperature,
	"body temperature":           models.BiomarkerBodyTemperature,
	"step_count":                 models.BiomarkerSteps,
	"step count":                 models.BiomarkerSteps,
	"steps":                      models.BiomarkerSteps,
	"active_energy":              models.BiomarkerActiveEnergy,
	"active energy":              models.BiomarkerActiveEnergy,
	"basal_energy_burned":        models.BiomarkerBasalEnergy,
	"basal energy burned":        models.BiomarkerBasalEnergy,
	"resting energy":             models.BiomarkerBasalEnergy,
	"vo2_max":                    models.BiomarkerVO2Max,
	"vo2 max":                    models.BiomarkerVO2Max,
	"apple_exercise_time":        models.BiomarkerExerciseMinutes,
	"exercise_time":              models.BiomarkerExerciseMinutes,
	"exercise minutes":           models.BiomarkerExerciseMinutes,
	"walking_running_distance":   models.BiomarkerDistance,
	"walking + running distance": models.BiomarkerDistance,
	"distance":                   models.BiomarkerDistance,
}

var workoutKeywords = []string{
	"workout", "cycling", "running", "walking", "swimming", "hiking",
	"strength", "yoga", "hiit", "rowing",
}

// LookupBiomarker maps an entry name to its canonical type.
func LookupBiomarker(name string) (models.BiomarkerType, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "blood_pressure" || n == "blood pressure" {
		return bloodPressureEntry, true
	}
	t, ok := biomarkerNames[n]
	return t, ok
}

var sleepNameSeparators = strings.NewReplacer("_", " ", "-", " ")

// isSleepName matches sleep_analysis, "Sleep Analysis" and plain "sleep".
// Metrics that merely mention sleep, like apple_sleeping_wrist_temperature,
// are not sleep entries.
func isSleepName(lname string) bool {
	switch strings.TrimSpace(sleepNameSeparators.Replace(lname)) {
	case "sleep", "sleep analysis":
		return true
	}
	return false
}

func isWorkoutName(lname string) bool {
	for _, kw := range workoutKeywords {
		if strings.Contains(lname, kw) {
			return true
		}
	}
	return false
}

// looksLikeWorkout reports whether an object carries a start timestamp plus
// an end, energy, activity type or duration field.
func looksLikeWorkout(m map[string]any) bool {
	return hasAny(m, startKeys) &&
		(hasAny(m, endKeys) || hasAny(m, energyKeys) || hasAny(m, activityKeys) || hasAny(m, durationKeys))
}

func anyPointLooksLikeWorkout(points []any) bool {
	for _, p := range points {
		if m, ok := p.(map[string]any); ok && looksLikeWorkout(m) {
			return true
		}
	}
	return false
}

// isScalarSeries reports whether every point is a dated scalar, the shape of
// a metric series whose name happens to contain a sport word.
func isScalarSeries(points []any) bool {
	if len(points) == 0 {
		return false
	}
	for _, p := range points {
		m, ok := p.(map[string]any)
		if !ok || hasAny(m, startKeys) || !hasAny(m, []string{"qty", "value"}) {
			return false
		}
	}
	return true
}

// Classify decides what an entry holds and extracts its typed content.
// Known biomarker names are matched first so that metric names containing a
// sport word ("walking_heart_rate_average") are never taken for workouts.
func Classify(raw map[string]any) models.Entry {
	name := firstString(raw, "name", "type", "metric")
	lname := strings.ToLower(name)
	points, nested := dataPoints(raw)

	if t, ok := LookupBiomarker(name); ok {
		return classifyBiomarker(name, t, firstString(raw, "units", "unit"), points)
	}
	if isSleepName(lname) {
		return classifySleep(name, firstString(raw, "units", "unit"), points)
	}

	switch {
	case !nested && looksLikeWorkout(raw):
		// A single workout delivered as the entry itself.
		return classifyWorkouts(name, []any{raw})
	case nested && isWorkoutName(lname) && !isScalarSeries(points):
		return classifyWorkouts(name, points)
	case nested && anyPointLooksLikeWorkout(points):
		return classifyWorkouts(name, points)
	}
	return models.Entry{Kind: models.EntryUnrecognized, Name: name}
}

func classifyWorkouts(name string, points []any) models.Entry {
	e := models.Entry{Kind: models.EntryWorkout, Name: name}
	for _, p := range points {
		m, ok := p.(map[string]any)
		if !ok {
			e.Malformed++
			continue
		}
		e.Workouts = append(e.Workouts, extractWorkout(m))
	}
	return e
}

func classifyBiomarker(name string, t models.BiomarkerType, units string, points []any) models.Entry {
	e := models.Entry{Kind: models.EntryBiomarker, Name: name}
	for _, p := range points {
		m, ok := p.(map[string]any)
		if !ok {
			e.Malformed++
			continue
		}
		readings, ok := readingsFromPoint(t, units, m)
		if !ok {
			e.Malformed++
			continue
		}
		e.Readings = append(e.Readings, readings...)
	}
	return e
}

// readingsFromPoint extracts the readings of one data point. Blood pressure
// yields two; heart rate summaries use the average.
func readingsFromPoint(t models.BiomarkerType, units string, m map[string]any) ([]models.Reading, bool) {
	at, ok := timeField(m, dateKeys...)
	if !ok {
		return nil, false
	}
	if u := firstString(m, "units", "unit"); u != "" {
		units = u
	}

	switch DetectPointShape(m) {
	case ShapeBloodPressure:
		if t != bloodPressureEntry && t != models.BiomarkerSystolic && t != models.BiomarkerDiastolic {
			break
		}
		sys, okS := firstNumber(m, "systolic")
		dia, okD := firstNumber(m, "diastolic")
		if !okS || !okD {
			return nil, false
		}
		return []models.Reading{
			{Type: models.BiomarkerSystolic, Value: sys, Unit: units, RecordedAt: at},
			{Type: models.BiomarkerDiastolic, Value: dia, Unit: units, RecordedAt: at},
		}, true
	case ShapeMinAvgMax:
		if v, ok := firstNumber(m, "Avg", "avg"); ok {
			return []models.Reading{{Type: t, Value: v, Unit: units, RecordedAt: at}}, true
		}
	}

	if t == bloodPressureEntry {
		return nil, false
	}
	v, ok := firstNumber(m, "qty", "value")
	if !ok {
		return nil, false
	}
	return []models.Reading{{Type: t, Value: v, Unit: units, RecordedAt: at}}, true
}

func classifySleep(name, units string, points []any) models.Entry {
	e := models.Entry{Kind: models.EntrySleep, Name: name}
	for _, p := range points {
		m, ok := p.(map[string]any)
		if !ok {
			e.Malformed++
			continue
		}
		seg, ok := sleepSegment(units, m)
		if !ok {
			e.Malformed++
			continue
		}
		e.Sleep = append(e.Sleep, seg)
	}
	return e
}

// stageScale returns the factor converting a sleep quantity to minutes.
// Health Auto Export reports stage durations in hours.
func stageScale(units string) float64 {
	switch strings.ToLower(units) {
	case "min", "mins", "minutes":
		return 1
	case "s", "sec", "seconds":
		return 1.0 / 60
	default:
		return 60
	}
}

func sleepSegment(units string, m map[string]any) (models.SleepSegment, bool) {
	var seg models.SleepSegment
	switch DetectSleepFormat(m) {
	case SleepFormatAggregated:
		scale := stageScale(units)
		var okS, okE bool
		seg.Start, okS = timeField(m, "inBedStart", "sleepStart")
		seg.End, okE = timeField(m, "inBedEnd", "sleepEnd")
		if !okS || !okE {
			return seg, false
		}
		core, _ := firstNumber(m, "core", "light")
		asleep, _ := firstNumber(m, "asleep")
		deep, _ := firstNumber(m, "deep")
		rem, _ := firstNumber(m, "rem")
		awake, _ := firstNumber(m, "awake")
		seg.LightMinutes = (core + asleep) * scale
		seg.DeepMinutes = deep * scale
		seg.RemMinutes = rem * scale
		seg.AwakeMinutes = awake * scale

	case SleepFormatStage:
		var okS, okE bool
		seg.Start, okS = timeField(m, startKeys...)
		seg.End, okE = timeField(m, endKeys...)
		if !okS || !okE {
			return seg, false
		}
		stage, known := models.NormalizeSleepStage(firstString(m, "value", "stage"))
		if !known {
			return seg, false
		}
		seg.AddStageMinutes(stage, seg.End.Sub(seg.Start).Minutes())

	case SleepFormatSegment:
		var okS, okE bool
		seg.Start, okS = timeField(m, startKeys...)
		seg.End, okE = timeField(m, endKeys...)
		if !okS || !okE {
			return seg, false
		}
		seg.AwakeMinutes, _ = firstNumber(m, "awake", "awake_minutes")
		seg.LightMinutes, _ = firstNumber(m, "light", "core", "light_minutes")
		seg.DeepMinutes, _ = firstNumber(m, "deep", "deep_minutes")
		seg.RemMinutes, _ = firstNumber(m, "rem", "rem_minutes")
	}

	if score, ok := firstNumber(m, "score", "sleepScore", "sleep_score"); ok {
		s := int(score + 0.5)
		seg.Score = &s
	}
	return seg, true
}
