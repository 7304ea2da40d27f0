package models

import "time"

// BiomarkerType is the canonical kind of a point-in-time biomarker reading.
type BiomarkerType string

const (
	BiomarkerHeartRate         BiomarkerType = "heart-rate"
	BiomarkerRestingHeartRate  BiomarkerType = "resting-heart-rate"
	BiomarkerWalkingHeartRate  BiomarkerType = "walking-heart-rate"
	BiomarkerHRV               BiomarkerType = "hrv"
	BiomarkerRespiratoryRate   BiomarkerType = "respiratory-rate"
	BiomarkerOxygenSaturation  BiomarkerType = "oxygen-saturation"
	BiomarkerSystolic          BiomarkerType = "blood-pressure-systolic"
	BiomarkerDiastolic         BiomarkerType = "blood-pressure-diastolic"
	BiomarkerBloodGlucose      BiomarkerType = "blood-glucose"
	BiomarkerWeight            BiomarkerType = "weight"
	BiomarkerLeanBodyMass      BiomarkerType = "lean-body-mass"
	BiomarkerBodyFatPercentage BiomarkerType = "body-fat-percentage"
	BiomarkerBMI               BiomarkerType = "bmi"
	BiomarkerBodyTemperature   BiomarkerType = "body-temperature"
	BiomarkerSteps             BiomarkerType = "steps"
	BiomarkerActiveEnergy      BiomarkerType = "active-energy"
	BiomarkerBasalEnergy       BiomarkerType = "basal-energy"
	BiomarkerVO2Max            BiomarkerType = "vo2-max"
	BiomarkerExerciseMinutes   BiomarkerType = "exercise-minutes"
	BiomarkerDistance          BiomarkerType = "distance"
)

// AllBiomarkerTypes lists every known biomarker type.
var AllBiomarkerTypes = []BiomarkerType{
	BiomarkerHeartRate, BiomarkerRestingHeartRate, BiomarkerWalkingHeartRate, BiomarkerHRV,
	BiomarkerRespiratoryRate, BiomarkerOxygenSaturation, BiomarkerSystolic, BiomarkerDiastolic,
	BiomarkerBloodGlucose, BiomarkerWeight, BiomarkerLeanBodyMass, BiomarkerBodyFatPercentage,
	BiomarkerBMI, BiomarkerBodyTemperature, BiomarkerSteps, BiomarkerActiveEnergy,
	BiomarkerBasalEnergy, BiomarkerVO2Max, BiomarkerExerciseMinutes, BiomarkerDistance,
}

// Source identifies which ingestion path produced a record.
type Source string

const (
	SourceExportWebhook     Source = "export-webhook"
	SourceNativeSync        Source = "native-sync"
	SourceAggregatorWebhook Source = "aggregator-webhook"
	SourceAIExtracted       Source = "ai-extracted"
	SourceCalculated        Source = "calculated"
)

// BiomarkerPoint is a canonical biomarker reading. Unit is always the
// canonical unit for Type. Uniqueness key: (UserID, Type, RecordedAt, Source).
type BiomarkerPoint struct {
	UserID     int           `json:"user_id"`
	Type       BiomarkerType `json:"type"`
	Value      float64       `json:"value"`
	Unit       string        `json:"unit"`
	Source     Source        `json:"source"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Reading is a biomarker value as delivered by an upstream source, before
// unit normalization.
type Reading struct {
	Type       BiomarkerType
	Value      float64
	Unit       string
	RecordedAt time.Time
}
