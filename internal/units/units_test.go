package units

import (
	"math"
	"testing"

	"github.com/claude/healthsync/internal/models"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// TestConvert checks each conversion in the table plus the pass-through and
// unknown-unit paths.
func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		unit     string
		typ      models.BiomarkerType
		want     float64
		wantUnit string
	}{
		{"weight kg", 10, "kg", models.BiomarkerWeight, 22.0462, "lbs"},
		{"weight already lbs", 150, "lbs", models.BiomarkerWeight, 150, "lbs"},
		{"weight grams", 70000, "g", models.BiomarkerWeight, 154.3234, "lbs"},
		{"lean mass kg", 50, "KG", models.BiomarkerLeanBodyMass, 110.231, "lbs"},
		{"glucose mmol", 5.5, "mmol/L", models.BiomarkerBloodGlucose, 99.099, "mg/dL"},
		{"glucose mmol per mol is not mmol per liter", 42, "mmol/mol", models.BiomarkerBloodGlucose, 42, "mg/dL"},
		{"temperature celsius", 37, "°C", models.BiomarkerBodyTemperature, 98.6, "°F"},
		{"distance km", 5, "km", models.BiomarkerDistance, 5000, "m"},
		{"body fat fraction", 0.215, "fraction", models.BiomarkerBodyFatPercentage, 21.5, "%"},
		{"heart rate pass-through", 62, "count/min", models.BiomarkerHeartRate, 62, "bpm"},
		{"unknown unit", 80, "furlongs", models.BiomarkerWeight, 80, "lbs"},
		{"empty unit", 8000, "", models.BiomarkerSteps, 8000, "steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unit := Convert(tt.value, tt.unit, tt.typ)
			if !almostEqual(got, tt.want, 1e-4) {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
			if unit != tt.wantUnit {
				t.Errorf("unit = %q, want %q", unit, tt.wantUnit)
			}
		})
	}
}

// TestCanonicalUnitCoversAllTypes guards against adding a biomarker type
// without a canonical unit.
func TestCanonicalUnitCoversAllTypes(t *testing.T) {
	for _, typ := range models.AllBiomarkerTypes {
		if CanonicalUnit(typ) == "" {
			t.Errorf("no canonical unit for %q", typ)
		}
	}
}

func TestToMeters(t *testing.T) {
	if got := ToMeters(3.1, "mi"); !almostEqual(got, 4988.9664, 1e-3) {
		t.Errorf("ToMeters(3.1 mi) = %v", got)
	}
	if got := ToMeters(1200, "m"); got != 1200 {
		t.Errorf("ToMeters(1200 m) = %v, want 1200", got)
	}
}

func TestToKilocalories(t *testing.T) {
	if got := ToKilocalories(418.4, "kJ"); !almostEqual(got, 100, 1e-9) {
		t.Errorf("ToKilocalories(418.4 kJ) = %v, want 100", got)
	}
	if got := ToKilocalories(250, "kcal"); got != 250 {
		t.Errorf("ToKilocalories(250 kcal) = %v, want 250", got)
	}
}
