// Package ingest holds the types shared by every ingestion path.
package ingest

// Skipped counts input that was dropped without failing the batch.
type Skipped struct {
	Points     int `json:"points"`
	Workouts   int `json:"workouts"`
	Nights     int `json:"nights"`
	Duplicates int `json:"duplicates"`
}

// Result holds the outcome of an ingest operation.
type Result struct {
	Success              bool     `json:"success"`
	BiomarkersCount      int      `json:"biomarkersCount"`
	SleepSessionsCount   int      `json:"sleepSessionsCount"`
	WorkoutSessionsCount int      `json:"workoutSessionsCount"`
	DerivedCount         int      `json:"derivedCount,omitempty"`
	Skipped              Skipped  `json:"skipped"`
	Unrecognized         []string `json:"unrecognized,omitempty"`

	// Shape names the payload strategy that located the entries, when the
	// source is shape-detected.
	Shape string `json:"shape,omitempty"`
}

// Total returns the number of canonical records written, derived points
// included.
func (r *Result) Total() int {
	return r.BiomarkersCount + r.SleepSessionsCount + r.WorkoutSessionsCount + r.DerivedCount
}
