package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/healthsync/internal/models"
)

// SleepSummaryPeriod holds aggregated sleep stats for one period and source.
type SleepSummaryPeriod struct {
	Period                   string  `json:"period"`
	Source                   string  `json:"source"`
	Nights                   int     `json:"nights"`
	AvgTotalMinutes          float64 `json:"avg_total_minutes"`
	AvgDeepMinutes           float64 `json:"avg_deep_minutes"`
	AvgRemMinutes            float64 `json:"avg_rem_minutes"`
	AvgLightMinutes          float64 `json:"avg_light_minutes"`
	AvgAwakeMinutes          float64 `json:"avg_awake_minutes"`
	AvgScore                 float64 `json:"avg_score"`
	AvgBedtime               string  `json:"avg_bedtime"`
	AvgWaketime              string  `json:"avg_waketime"`
	BedtimeConsistencyStdHr  float64 `json:"bedtime_consistency_stddev_hr"`
	WaketimeConsistencyStdHr float64 `json:"waketime_consistency_stddev_hr"`
}

// GetSleepSummary returns sleep stats per period with circular bedtime and
// waketime averages. bucket is "day", "week" or "month".
func (db *DB) GetSleepSummary(ctx context.Context, userID int, start, end time.Time, bucket string) ([]SleepSummaryPeriod, error) {
	sessions, err := db.QuerySleepSessions(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading sleep summary: %w", err)
	}
	return SummarizeSleep(sessions, bucket), nil
}

// SummarizeSleep buckets sessions by period and source. Periods are returned
// newest first.
func SummarizeSleep(sessions []models.SleepSession, bucket string) []SleepSummaryPeriod {
	type key struct {
		period time.Time
		source models.Source
	}
	groups := make(map[key][]models.SleepSession)
	for _, s := range sessions {
		k := key{periodStart(s.NightDate, bucket), s.Source}
		groups[k] = append(groups[k], s)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].period.Equal(keys[j].period) {
			return keys[i].period.After(keys[j].period)
		}
		return keys[i].source < keys[j].source
	})

	result := make([]SleepSummaryPeriod, 0, len(keys))
	for _, k := range keys {
		nights := groups[k]
		sp := SleepSummaryPeriod{
			Period: k.period.Format(time.DateOnly),
			Source: string(k.source),
			Nights: len(nights),
		}

		bedtimeHours := make([]float64, 0, len(nights))
		waketimeHours := make([]float64, 0, len(nights))
		for _, n := range nights {
			sp.AvgTotalMinutes += float64(n.TotalMinutes)
			sp.AvgDeepMinutes += float64(n.DeepMinutes)
			sp.AvgRemMinutes += float64(n.RemMinutes)
			sp.AvgLightMinutes += float64(n.LightMinutes)
			sp.AvgAwakeMinutes += float64(n.AwakeMinutes)
			sp.AvgScore += float64(n.SleepScore)
			bedtimeHours = append(bedtimeHours, timeToHourOfDay(n.Bedtime))
			waketimeHours = append(waketimeHours, timeToHourOfDay(n.Waketime))
		}
		count := float64(len(nights))
		sp.AvgTotalMinutes = round1(sp.AvgTotalMinutes / count)
		sp.AvgDeepMinutes = round1(sp.AvgDeepMinutes / count)
		sp.AvgRemMinutes = round1(sp.AvgRemMinutes / count)
		sp.AvgLightMinutes = round1(sp.AvgLightMinutes / count)
		sp.AvgAwakeMinutes = round1(sp.AvgAwakeMinutes / count)
		sp.AvgScore = round1(sp.AvgScore / count)

		avgBed, stdBed := circularMeanStd(bedtimeHours)
		avgWake, stdWake := circularMeanStd(waketimeHours)
		sp.AvgBedtime = hoursToHHMM(avgBed)
		sp.AvgWaketime = hoursToHHMM(avgWake)
		sp.BedtimeConsistencyStdHr = math.Round(stdBed*100) / 100
		sp.WaketimeConsistencyStdHr = math.Round(stdWake*100) / 100

		result = append(result, sp)
	}
	return result
}

// periodStart truncates a night date to the start of its bucket. Weeks start
// on Monday. Unknown buckets fall back to month.
func periodStart(night time.Time, bucket string) time.Time {
	y, m, d := night.Date()
	switch bucket {
	case "day":
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case "week":
		offset := (int(night.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// timeToHourOfDay extracts fractional hour of day from a time.Time.
func timeToHourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0 + float64(t.Second())/3600.0
}

// circularMeanStd computes the circular mean and standard deviation for times
// expressed as hours (0-24), so 23:00 and 01:00 average to 00:00.
func circularMeanStd(hours []float64) (mean, std float64) {
	if len(hours) == 0 {
		return 0, 0
	}

	var sinSum, cosSum float64
	for _, h := range hours {
		rad := h / 24.0 * 2 * math.Pi
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}

	n := float64(len(hours))
	sinAvg := sinSum / n
	cosAvg := cosSum / n

	meanRad := math.Atan2(sinAvg, cosAvg)
	if meanRad < 0 {
		meanRad += 2 * math.Pi
	}
	mean = meanRad / (2 * math.Pi) * 24.0

	r := math.Min(math.Sqrt(sinAvg*sinAvg+cosAvg*cosAvg), 1)
	if r > 0 {
		std = math.Sqrt(-2*math.Log(r)) / (2 * math.Pi) * 24.0
	}
	return mean, std
}

// hoursToHHMM formats fractional hours (0-24) as "HH:MM".
func hoursToHHMM(h float64) string {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	hours := int(h)
	minutes := int(math.Round((h - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	if hours >= 24 {
		hours -= 24
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
