package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutType is the canonical workout category.
type WorkoutType string

const (
	WorkoutRunning    WorkoutType = "running"
	WorkoutCycling    WorkoutType = "cycling"
	WorkoutWalking    WorkoutType = "walking"
	WorkoutSwimming   WorkoutType = "swimming"
	WorkoutHiking     WorkoutType = "hiking"
	WorkoutStrength   WorkoutType = "strength"
	WorkoutYoga       WorkoutType = "yoga"
	WorkoutHIIT       WorkoutType = "hiit"
	WorkoutRowing     WorkoutType = "rowing"
	WorkoutElliptical WorkoutType = "elliptical"
	WorkoutOther      WorkoutType = "other"
)

// WorkoutInput is a workout as extracted from an upstream payload, before
// type resolution and duration computation. Zero times mean "absent".
type WorkoutInput struct {
	Name            string
	ActivityCode    string
	Start           time.Time
	End             time.Time
	DurationSeconds float64
	DistanceMeters  *float64
	Calories        *int
	AvgHeartRate    *float64
	MaxHeartRate    *float64
	SourceID        string
}

// WorkoutSession is a canonical workout record. It is immutable after creation
// except for MatchedScheduleID.
type WorkoutSession struct {
	ID                uuid.UUID   `json:"id"`
	UserID            int         `json:"user_id"`
	WorkoutType       WorkoutType `json:"workout_type"`
	StartTime         time.Time   `json:"start_time"`
	EndTime           time.Time   `json:"end_time"`
	DurationMinutes   int         `json:"duration_minutes"`
	DistanceMeters    *float64    `json:"distance_meters,omitempty"`
	Calories          *int        `json:"calories,omitempty"`
	AvgHeartRate      *float64    `json:"avg_heart_rate,omitempty"`
	MaxHeartRate      *float64    `json:"max_heart_rate,omitempty"`
	SourceType        Source      `json:"source_type"`
	SourceID          string      `json:"source_id,omitempty"`
	MatchedScheduleID *uuid.UUID  `json:"matched_schedule_id,omitempty"`
}

// TrainingSchedule is a planned workout owned by the training plan subsystem.
type TrainingSchedule struct {
	ID               uuid.UUID   `json:"id"`
	UserID           int         `json:"user_id"`
	WorkoutType      WorkoutType `json:"workout_type"`
	ScheduledDate    time.Time   `json:"scheduled_date"`
	Completed        bool        `json:"completed"`
	WorkoutSessionID *uuid.UUID  `json:"workout_session_id,omitempty"`
}

// Goal is owned by the goals subsystem; ingestion only advances CurrentValue.
type Goal struct {
	ID           uuid.UUID `json:"id"`
	UserID       int       `json:"user_id"`
	MetricType   string    `json:"metric_type"`
	CurrentValue float64   `json:"current_value"`
	TargetValue  float64   `json:"target_value"`
	Active       bool      `json:"active"`
}
