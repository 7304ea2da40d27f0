package hae

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/claude/healthsync/internal/models"
)

func decodeEntry(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("decoding %s: %v", s, err)
	}
	return m
}

// TestClassifyKinds covers each classification rule.
func TestClassifyKinds(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  models.EntryKind
	}{
		{"human biomarker name", `{"name":"Heart Rate","data":[]}`, models.EntryBiomarker},
		{"machine biomarker name", `{"name":"heart_rate","data":[]}`, models.EntryBiomarker},
		{"sport word in metric name", `{"name":"walking_heart_rate_average","data":[]}`, models.EntryBiomarker},
		{"sleep analysis", `{"name":"sleep_analysis","data":[]}`, models.EntrySleep},
		{"sleep human name", `{"name":"Sleep Analysis","data":[]}`, models.EntrySleep},
		{"plain sleep", `{"name":"sleep","data":[]}`, models.EntrySleep},
		{"metric mentioning sleep", `{"name":"apple_sleeping_wrist_temperature","data":[{"date":"2024-01-01","qty":36.2}]}`, models.EntryUnrecognized},
		{"workout keyword", `{"name":"workouts","data":[{"name":"Run"}]}`, models.EntryWorkout},
		{"sport keyword", `{"name":"Cycling","data":[{"start":"2024-01-01T06:00:00Z"}]}`, models.EntryWorkout},
		{"workout structure", `{"name":"activities","data":[{"startDate":"2024-01-01T06:00:00Z","duration":1800}]}`, models.EntryWorkout},
		{"single workout entry", `{"name":"Morning Session","start":"2024-01-01T06:00:00Z","activeEnergy":300}`, models.EntryWorkout},
		{"scalar series with sport word", `{"name":"running_power","data":[{"date":"2024-01-01","qty":250}]}`, models.EntryUnrecognized},
		{"unknown metric", `{"name":"handwashing","data":[{"date":"2024-01-01","qty":3}]}`, models.EntryUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(decodeEntry(t, tt.entry)).Kind; got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestClassifyBloodPressureFansOut verifies one blood_pressure point becomes a
// systolic and a diastolic reading.
func TestClassifyBloodPressureFansOut(t *testing.T) {
	e := Classify(decodeEntry(t, `{"name":"blood_pressure","units":"mmHg","data":[
		{"date":"2024-02-06 08:00:00 -0800","systolic":121,"diastolic":79}]}`))
	if len(e.Readings) != 2 {
		t.Fatalf("readings = %d, want 2", len(e.Readings))
	}
	if e.Readings[0].Type != models.BiomarkerSystolic || e.Readings[0].Value != 121 {
		t.Errorf("first reading = %+v, want systolic 121", e.Readings[0])
	}
	if e.Readings[1].Type != models.BiomarkerDiastolic || e.Readings[1].Value != 79 {
		t.Errorf("second reading = %+v, want diastolic 79", e.Readings[1])
	}
}

// TestClassifyHeartRateUsesAvg verifies Min/Avg/Max points keep the average.
func TestClassifyHeartRateUsesAvg(t *testing.T) {
	e := Classify(decodeEntry(t, `{"name":"heart_rate","units":"count/min","data":[
		{"date":"2024-02-06 08:00:00 -0800","Min":58,"Avg":64.5,"Max":72}]}`))
	if len(e.Readings) != 1 || e.Readings[0].Value != 64.5 {
		t.Errorf("readings = %+v, want one reading of 64.5", e.Readings)
	}
}

// TestClassifyCountsMalformedPoints verifies bad points are counted, not fatal.
func TestClassifyCountsMalformedPoints(t *testing.T) {
	e := Classify(decodeEntry(t, `{"name":"step_count","units":"count","data":[
		{"date":"2024-02-06","qty":1200},
		{"date":"yesterday","qty":900},
		{"date":"2024-02-07"},
		{"date":"2024-02-08","qty":"lots"},
		"garbage"]}`))
	if len(e.Readings) != 1 {
		t.Errorf("readings = %d, want 1", len(e.Readings))
	}
	if e.Malformed != 4 {
		t.Errorf("malformed = %d, want 4", e.Malformed)
	}
}

// TestClassifySleepStageRows verifies per-stage rows map through localized
// stage names into stage minutes.
func TestClassifySleepStageRows(t *testing.T) {
	e := Classify(decodeEntry(t, `{"name":"sleep_analysis","data":[
		{"startDate":"2024-02-05 23:00:00 -0800","endDate":"2024-02-05 23:45:00 -0800","value":"Kern"},
		{"startDate":"2024-02-05 23:45:00 -0800","endDate":"2024-02-06 00:30:00 -0800","value":"Deep"},
		{"startDate":"2024-02-05 22:50:00 -0800","endDate":"2024-02-06 06:10:00 -0800","value":"In Bed"},
		{"startDate":"2024-02-06 01:00:00 -0800","endDate":"2024-02-06 01:20:00 -0800","value":"Dreaming"}]}`))
	if len(e.Sleep) != 3 {
		t.Fatalf("segments = %d, want 3", len(e.Sleep))
	}
	if e.Malformed != 1 {
		t.Errorf("malformed = %d, want 1", e.Malformed)
	}
	if e.Sleep[0].LightMinutes != 45 {
		t.Errorf("core minutes = %v, want 45", e.Sleep[0].LightMinutes)
	}
	if e.Sleep[1].DeepMinutes != 45 {
		t.Errorf("deep minutes = %v, want 45", e.Sleep[1].DeepMinutes)
	}
	inBed := e.Sleep[2]
	if inBed.LightMinutes+inBed.DeepMinutes+inBed.RemMinutes+inBed.AwakeMinutes != 0 {
		t.Errorf("in bed row contributed stage minutes: %+v", inBed)
	}
}

// TestClassifySleepAggregated verifies nightly summaries convert hours to
// minutes and use the in-bed window.
func TestClassifySleepAggregated(t *testing.T) {
	e := Classify(decodeEntry(t, `{"name":"sleep_analysis","units":"hr","data":[
		{"date":"2024-02-06","totalSleep":7.5,"core":4,"deep":1.5,"rem":2,"awake":0.25,
		 "sleepStart":"2024-02-05 23:10:00 -0800","sleepEnd":"2024-02-06 06:55:00 -0800",
		 "inBedStart":"2024-02-05 23:00:00 -0800","inBedEnd":"2024-02-06 07:00:00 -0800"}]}`))
	if len(e.Sleep) != 1 {
		t.Fatalf("segments = %d, want 1", len(e.Sleep))
	}
	s := e.Sleep[0]
	if s.LightMinutes != 240 || s.DeepMinutes != 90 || s.RemMinutes != 120 || s.AwakeMinutes != 15 {
		t.Errorf("stages = %+v", s)
	}
	if s.End.Sub(s.Start).Hours() != 8 {
		t.Errorf("window = %v, want 8h", s.End.Sub(s.Start))
	}
}

// TestExtractWorkout verifies field variants, nested quantities and unit
// conversion of distance and energy.
func TestExtractWorkout(t *testing.T) {
	w := extractWorkout(decodeEntry(t, `{
		"id":"A1B2","name":"Outdoor Run",
		"start":"2024-02-06 07:00:00 -0800","end":"2024-02-06 07:45:00 -0800",
		"duration":2700,
		"distance":{"qty":8.2,"units":"km"},
		"activeEnergyBurned":{"qty":2092,"units":"kJ"},
		"heartRate":{"min":{"qty":110},"avg":{"qty":152},"max":{"qty":176}}}`))

	if w.Name != "Outdoor Run" || w.SourceID != "A1B2" {
		t.Errorf("name/id = %q/%q", w.Name, w.SourceID)
	}
	if w.DurationSeconds != 2700 {
		t.Errorf("duration = %v, want 2700", w.DurationSeconds)
	}
	if w.DistanceMeters == nil || *w.DistanceMeters != 8200 {
		t.Errorf("distance = %v, want 8200", w.DistanceMeters)
	}
	if w.Calories == nil || *w.Calories != 500 {
		t.Errorf("calories = %v, want 500", w.Calories)
	}
	if w.AvgHeartRate == nil || *w.AvgHeartRate != 152 || w.MaxHeartRate == nil || *w.MaxHeartRate != 176 {
		t.Errorf("heart rate = %v/%v", w.AvgHeartRate, w.MaxHeartRate)
	}
}

// TestExtractWorkoutFlatFields verifies the flat-field fallbacks.
func TestExtractWorkoutFlatFields(t *testing.T) {
	w := extractWorkout(decodeEntry(t, `{
		"workout_type":"cycling","startTime":"2024-02-06T17:00:00Z",
		"duration_minutes":40,"distance_meters":15000,"calories":380,"avgHeartRate":141}`))

	if w.ActivityCode != "cycling" {
		t.Errorf("activity code = %q, want cycling", w.ActivityCode)
	}
	if w.DurationSeconds != 2400 {
		t.Errorf("duration = %v, want 2400", w.DurationSeconds)
	}
	if w.DistanceMeters == nil || *w.DistanceMeters != 15000 {
		t.Errorf("distance = %v, want 15000", w.DistanceMeters)
	}
	if w.Calories == nil || *w.Calories != 380 {
		t.Errorf("calories = %v, want 380", w.Calories)
	}
	if w.AvgHeartRate == nil || *w.AvgHeartRate != 141 {
		t.Errorf("avg heart rate = %v, want 141", w.AvgHeartRate)
	}
}
