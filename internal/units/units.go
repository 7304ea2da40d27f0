// Package units maps upstream values onto the canonical unit of each
// biomarker type.
package units

import (
	"math"
	"strings"

	"github.com/claude/healthsync/internal/models"
)

const (
	kgToLbs        = 2.20462
	gToLbs         = kgToLbs / 1000
	mmolToMgDL     = 18.018
	kjToKcal       = 1 / 4.184
	kmToMeters     = 1000
	milesToMeters  = 1609.344
	fractionToPerc = 100
)

// canonicalUnits is the unit every stored point of a type is expressed in.
var canonicalUnits = map[models.BiomarkerType]string{
	models.BiomarkerHeartRate:         "bpm",
	models.BiomarkerRestingHeartRate:  "bpm",
	models.BiomarkerWalkingHeartRate:  "bpm",
	models.BiomarkerHRV:               "ms",
	models.BiomarkerRespiratoryRate:   "breaths/min",
	models.BiomarkerOxygenSaturation:  "%",
	models.BiomarkerSystolic:          "mmHg",
	models.BiomarkerDiastolic:         "mmHg",
	models.BiomarkerBloodGlucose:      "mg/dL",
	models.BiomarkerWeight:            "lbs",
	models.BiomarkerLeanBodyMass:      "lbs",
	models.BiomarkerBodyFatPercentage: "%",
	models.BiomarkerBMI:               "kg/m2",
	models.BiomarkerBodyTemperature:   "°F",
	models.BiomarkerSteps:             "steps",
	models.BiomarkerActiveEnergy:      "kcal",
	models.BiomarkerBasalEnergy:       "kcal",
	models.BiomarkerVO2Max:            "mL/kg/min",
	models.BiomarkerExerciseMinutes:   "min",
	models.BiomarkerDistance:          "m",
}

type conversion func(float64) float64

func scale(f float64) conversion { return func(v float64) float64 { return v * f } }

func celsiusToFahrenheit(v float64) float64 { return v*9/5 + 32 }

// conversions lists, per type, the non-canonical units we know how to convert
// from. Keys are normalized with normalizeUnit.
var conversions = map[models.BiomarkerType]map[string]conversion{
	models.BiomarkerWeight: {
		"kg": scale(kgToLbs),
		"g":  scale(gToLbs),
	},
	models.BiomarkerLeanBodyMass: {
		"kg": scale(kgToLbs),
		"g":  scale(gToLbs),
	},
	models.BiomarkerBloodGlucose: {
		"mmol/l": scale(mmolToMgDL),
	},
	models.BiomarkerBodyTemperature: {
		"°c":   celsiusToFahrenheit,
		"degc": celsiusToFahrenheit,
		"c":    celsiusToFahrenheit,
	},
	models.BiomarkerDistance: {
		"km": scale(kmToMeters),
		"mi": scale(milesToMeters),
	},
	models.BiomarkerActiveEnergy: {
		"kj": scale(kjToKcal),
	},
	models.BiomarkerBasalEnergy: {
		"kj": scale(kjToKcal),
	},
	models.BiomarkerBodyFatPercentage: {
		"fraction": scale(fractionToPerc),
	},
	models.BiomarkerOxygenSaturation: {
		"fraction": scale(fractionToPerc),
	},
}

// CanonicalUnit returns the stored unit for a biomarker type.
func CanonicalUnit(t models.BiomarkerType) string {
	return canonicalUnits[t]
}

// Convert maps a value in an upstream unit to the canonical unit for t.
// Units with no known conversion, including empty strings, are treated as
// already canonical. Results are rounded to four decimal places.
func Convert(value float64, unit string, t models.BiomarkerType) (float64, string) {
	canonical := CanonicalUnit(t)
	if fn, ok := conversions[t][normalizeUnit(unit)]; ok {
		value = fn(value)
	}
	return Round(value, 4), canonical
}

// ToMeters converts a distance quantity to meters. Unknown units are assumed
// to already be meters.
func ToMeters(qty float64, unit string) float64 {
	if fn, ok := conversions[models.BiomarkerDistance][normalizeUnit(unit)]; ok {
		return fn(qty)
	}
	return qty
}

// ToKilocalories converts an energy quantity to kilocalories.
func ToKilocalories(qty float64, unit string) float64 {
	if normalizeUnit(unit) == "kj" {
		return qty * kjToKcal
	}
	return qty
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

var unitAliases = map[string]string{
	"kilograms":  "kg",
	"kilogram":   "kg",
	"grams":      "g",
	"gram":       "g",
	"mmol":       "mmol/l",
	"celsius":    "c",
	"ºc":         "°c",
	"kilometers": "km",
	"kilometres": "km",
	"miles":      "mi",
	"mile":       "mi",
	"kilojoules": "kj",
	"kilojoule":  "kj",
	"ratio":      "fraction",
	"fractional": "fraction",
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if alias, ok := unitAliases[u]; ok {
		return alias
	}
	return u
}
