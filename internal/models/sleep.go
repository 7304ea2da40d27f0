package models

import (
	"fmt"
	"time"
)

// SleepQuality is the label derived from a sleep score.
type SleepQuality string

const (
	QualityPoor      SleepQuality = "Poor"
	QualityFair      SleepQuality = "Fair"
	QualityGood      SleepQuality = "Good"
	QualityExcellent SleepQuality = "Excellent"
)

// SleepSegment is one raw sleep row from an upstream source. Exporters send one
// row per stage, so a night is usually made of many segments. Stage fields are
// minutes; Score is an externally supplied 0-100 score, when present.
type SleepSegment struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	AwakeMinutes float64   `json:"awake_minutes"`
	LightMinutes float64   `json:"light_minutes"`
	DeepMinutes  float64   `json:"deep_minutes"`
	RemMinutes   float64   `json:"rem_minutes"`
	Score        *int      `json:"score,omitempty"`

	// Night is the resolved night key, set by the reducer before persisting.
	Night time.Time `json:"night"`
}

// StageSignature encodes the stage breakdown. Together with the interval it
// identifies a segment: exporters send one row per stage, so "In Bed" and
// "Asleep" rows may share an interval and still be distinct.
func (s SleepSegment) StageSignature() string {
	return fmt.Sprintf("a%g/l%g/d%g/r%g", s.AwakeMinutes, s.LightMinutes, s.DeepMinutes, s.RemMinutes)
}

// SleepSession is one coherent night of sleep for a user and source.
type SleepSession struct {
	UserID       int          `json:"user_id"`
	NightDate    time.Time    `json:"night_date"`
	Bedtime      time.Time    `json:"bedtime"`
	Waketime     time.Time    `json:"waketime"`
	TotalMinutes int          `json:"total_minutes"`
	AwakeMinutes int          `json:"awake_minutes"`
	LightMinutes int          `json:"light_minutes"`
	DeepMinutes  int          `json:"deep_minutes"`
	RemMinutes   int          `json:"rem_minutes"`
	SleepScore   int          `json:"sleep_score"`
	Quality      SleepQuality `json:"quality"`
	Source       Source       `json:"source"`
}
