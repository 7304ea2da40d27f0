package aggregator

// Resource layouts as delivered in Envelope.Data. Timestamps are RFC 3339.

type workoutResource struct {
	Metadata struct {
		SummaryID string `json:"summary_id"`
		Name      string `json:"name"`
		Type      any    `json:"type"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	} `json:"metadata"`
	ActiveDurationsData struct {
		ActivitySeconds float64 `json:"activity_seconds"`
	} `json:"active_durations_data"`
	DistanceData struct {
		Summary struct {
			DistanceMeters *float64 `json:"distance_meters"`
		} `json:"summary"`
	} `json:"distance_data"`
	CaloriesData struct {
		TotalBurnedCalories *float64 `json:"total_burned_calories"`
	} `json:"calories_data"`
	HeartRateData struct {
		Summary struct {
			AvgHRBPM *float64 `json:"avg_hr_bpm"`
			MaxHRBPM *float64 `json:"max_hr_bpm"`
		} `json:"summary"`
	} `json:"heart_rate_data"`
}

type sleepResource struct {
	Metadata struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	} `json:"metadata"`
	SleepDurationsData struct {
		Awake struct {
			AwakeSeconds float64 `json:"duration_awake_state_seconds"`
		} `json:"awake"`
		Asleep struct {
			LightSeconds float64 `json:"duration_light_sleep_state_seconds"`
			DeepSeconds  float64 `json:"duration_deep_sleep_state_seconds"`
			REMSeconds   float64 `json:"duration_REM_sleep_state_seconds"`
		} `json:"asleep"`
	} `json:"sleep_durations_data"`
	Scores struct {
		Sleep *float64 `json:"sleep"`
	} `json:"scores"`
}

type heartRateResource struct {
	Metadata struct {
		StartTime string `json:"start_time"`
	} `json:"metadata"`
	HeartRateData struct {
		Detailed struct {
			HRSamples []struct {
				Timestamp string  `json:"timestamp"`
				BPM       float64 `json:"bpm"`
			} `json:"hr_samples"`
		} `json:"detailed"`
		Summary struct {
			RestingHRBPM *float64 `json:"resting_hr_bpm"`
			AvgHRVSDNN   *float64 `json:"avg_hrv_sdnn"`
		} `json:"summary"`
	} `json:"heart_rate_data"`
}

type weightResource struct {
	MeasurementsData struct {
		Measurements []struct {
			MeasurementTime   string   `json:"measurement_time"`
			WeightKg          *float64 `json:"weight_kg"`
			BodyfatPercentage *float64 `json:"bodyfat_percentage"`
			LeanMassG         *float64 `json:"lean_mass_g"`
			BMI               *float64 `json:"BMI"`
		} `json:"measurements"`
	} `json:"measurements_data"`
}

type glucoseResource struct {
	GlucoseData struct {
		Samples []struct {
			Timestamp        string  `json:"timestamp"`
			BloodGlucoseMgDL float64 `json:"blood_glucose_mg_per_dL"`
		} `json:"blood_glucose_samples"`
	} `json:"glucose_data"`
}

type bloodPressureResource struct {
	BloodPressureData struct {
		Samples []struct {
			Timestamp   string  `json:"timestamp"`
			SystolicBP  float64 `json:"systolic_bp"`
			DiastolicBP float64 `json:"diastolic_bp"`
		} `json:"blood_pressure_samples"`
	} `json:"blood_pressure_data"`
}

// activityTypes maps the aggregator's numeric activity codes to canonical
// workout type names understood by the pipeline.
var activityTypes = map[string]string{
	"1":   "cycling",
	"7":   "walking",
	"8":   "running",
	"25":  "elliptical",
	"35":  "hiking",
	"53":  "rowing",
	"56":  "running",
	"57":  "running",
	"80":  "strength",
	"82":  "swimming",
	"100": "yoga",
	"114": "hiit",
}
