package pipeline

import (
	"strings"

	"github.com/claude/healthsync/internal/models"
)

// activityCodes maps provider activity identifiers to canonical workout
// types: HealthKit HKWorkoutActivityType names, their short forms, their
// numeric raw values, and the canonical names themselves.
var activityCodes = map[string]models.WorkoutType{
	"hkworkoutactivitytyperunning":                       models.WorkoutRunning,
	"hkworkoutactivitytypecycling":                       models.WorkoutCycling,
	"hkworkoutactivitytypewalking":                       models.WorkoutWalking,
	"hkworkoutactivitytypeswimming":                      models.WorkoutSwimming,
	"hkworkoutactivitytypehiking":                        models.WorkoutHiking,
	"hkworkoutactivitytypetraditionalstrengthtraining":   models.WorkoutStrength,
	"hkworkoutactivitytypefunctionalstrengthtraining":    models.WorkoutStrength,
	"hkworkoutactivitytypeyoga":                          models.WorkoutYoga,
	"hkworkoutactivitytypehighintensityintervaltraining": models.WorkoutHIIT,
	"hkworkoutactivitytyperowing":                        models.WorkoutRowing,
	"hkworkoutactivitytypeelliptical":                    models.WorkoutElliptical,

	"traditionalstrengthtraining":   models.WorkoutStrength,
	"functionalstrengthtraining":    models.WorkoutStrength,
	"highintensityintervaltraining": models.WorkoutHIIT,
	"outdoor run":                   models.WorkoutRunning,
	"indoor run":                    models.WorkoutRunning,
	"outdoor cycle":                 models.WorkoutCycling,
	"indoor cycle":                  models.WorkoutCycling,
	"outdoor walk":                  models.WorkoutWalking,
	"indoor walk":                   models.WorkoutWalking,
	"pool swim":                     models.WorkoutSwimming,
	"open water swim":               models.WorkoutSwimming,

	"37": models.WorkoutRunning,
	"13": models.WorkoutCycling,
	"52": models.WorkoutWalking,
	"46": models.WorkoutSwimming,
	"24": models.WorkoutHiking,
	"50": models.WorkoutStrength,
	"20": models.WorkoutStrength,
	"57": models.WorkoutYoga,
	"63": models.WorkoutHIIT,
	"35": models.WorkoutRowing,
	"16": models.WorkoutElliptical,

	"running":    models.WorkoutRunning,
	"cycling":    models.WorkoutCycling,
	"walking":    models.WorkoutWalking,
	"swimming":   models.WorkoutSwimming,
	"hiking":     models.WorkoutHiking,
	"strength":   models.WorkoutStrength,
	"yoga":       models.WorkoutYoga,
	"hiit":       models.WorkoutHIIT,
	"rowing":     models.WorkoutRowing,
	"elliptical": models.WorkoutElliptical,
	"other":      models.WorkoutOther,
}

// nameKeywords is checked in order against a lowercased workout name.
var nameKeywords = []struct {
	substr string
	typ    models.WorkoutType
}{
	{"hiit", models.WorkoutHIIT},
	{"interval", models.WorkoutHIIT},
	{"cycl", models.WorkoutCycling},
	{"bike", models.WorkoutCycling},
	{"biking", models.WorkoutCycling},
	{"spin", models.WorkoutCycling},
	{"run", models.WorkoutRunning},
	{"jog", models.WorkoutRunning},
	{"walk", models.WorkoutWalking},
	{"swim", models.WorkoutSwimming},
	{"hik", models.WorkoutHiking},
	{"strength", models.WorkoutStrength},
	{"weight", models.WorkoutStrength},
	{"lifting", models.WorkoutStrength},
	{"yoga", models.WorkoutYoga},
	{"elliptical", models.WorkoutElliptical},
	{"rowing", models.WorkoutRowing},
	{"rower", models.WorkoutRowing},
}

// ResolveWorkoutType picks the canonical type from a provider activity code,
// falling back to a keyword match on the workout name, else other.
func ResolveWorkoutType(code, name string) models.WorkoutType {
	if t, ok := activityCodes[strings.ToLower(strings.TrimSpace(code))]; ok {
		return t
	}
	lname := strings.ToLower(strings.TrimSpace(name))
	if t, ok := activityCodes[lname]; ok {
		return t
	}
	for _, kw := range nameKeywords {
		if strings.Contains(lname, kw.substr) {
			return kw.typ
		}
	}
	return models.WorkoutOther
}
