package models

// EntryKind is the category a metric entry was classified into.
type EntryKind int

const (
	EntryUnrecognized EntryKind = iota
	EntryWorkout
	EntrySleep
	EntryBiomarker
)

func (k EntryKind) String() string {
	switch k {
	case EntryWorkout:
		return "workout"
	case EntrySleep:
		return "sleep"
	case EntryBiomarker:
		return "biomarker"
	default:
		return "unrecognized"
	}
}

// Entry is one classified metric entry. Only the slice matching Kind is set.
// Malformed counts data points that could not be typed (bad date, missing or
// non-numeric value) and were dropped.
type Entry struct {
	Kind      EntryKind
	Name      string
	Workouts  []WorkoutInput
	Sleep     []SleepSegment
	Readings  []Reading
	Malformed int
}
