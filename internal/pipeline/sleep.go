package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claude/healthsync/internal/models"
)

const (
	nightBoundaryHour = 15
	maxNightMinutes   = 16 * 60
	minNightMinutes   = 60
	baseSleepScore    = 70
)

// LabelScheme selects the score thresholds and label spelling used for sleep
// quality. A deployment uses exactly one.
type LabelScheme string

const (
	// LabelSchemeStandard: >=85 Excellent, >=75 Good, >=60 Fair, else Poor.
	LabelSchemeStandard LabelScheme = "standard"
	// LabelSchemeLegacy: >=80 excellent, >=60 good, >=40 fair, else poor.
	LabelSchemeLegacy LabelScheme = "legacy"
)

// ParseLabelScheme validates a configured scheme name. Empty selects standard.
func ParseLabelScheme(s string) (LabelScheme, error) {
	switch LabelScheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", LabelSchemeStandard:
		return LabelSchemeStandard, nil
	case LabelSchemeLegacy:
		return LabelSchemeLegacy, nil
	default:
		return "", fmt.Errorf("unknown sleep label scheme %q", s)
	}
}

// QualityFor maps a 0-100 score to a quality label.
func QualityFor(score int, scheme LabelScheme) models.SleepQuality {
	if scheme == LabelSchemeLegacy {
		switch {
		case score >= 80:
			return "excellent"
		case score >= 60:
			return "good"
		case score >= 40:
			return "fair"
		default:
			return "poor"
		}
	}
	switch {
	case score >= 85:
		return models.QualityExcellent
	case score >= 75:
		return models.QualityGood
	case score >= 60:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}

// NightKey returns the night a segment starting at start belongs to, as a UTC
// midnight date. Starts before 15:00 local time belong to the previous
// evening's night. loc may be nil to use start's own offset.
func NightKey(start time.Time, loc *time.Location) time.Time {
	if loc != nil {
		start = start.In(loc)
	}
	y, m, d := start.Date()
	night := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if start.Hour() < nightBoundaryHour {
		night = night.AddDate(0, 0, -1)
	}
	return night
}

// mergedNight is the single-threaded accumulator for one night key.
type mergedNight struct {
	night    time.Time
	bedtime  time.Time
	waketime time.Time
	awake    float64
	light    float64
	deep     float64
	rem      float64
	score    *int
}

// mergeSegments reduces the segments of one night: earliest start, latest end,
// summed stage minutes and the highest external score. A segment repeating
// the interval and stage breakdown of one already seen is ignored.
func mergeSegments(night time.Time, segs []models.SleepSegment) mergedNight {
	m := mergedNight{night: night}
	type segKey struct {
		start, end int64
		stages     string
	}
	seen := make(map[segKey]bool, len(segs))
	for _, s := range segs {
		key := segKey{s.Start.UnixNano(), s.End.UnixNano(), s.StageSignature()}
		if seen[key] {
			continue
		}
		seen[key] = true

		if m.bedtime.IsZero() || s.Start.Before(m.bedtime) {
			m.bedtime = s.Start
		}
		if s.End.After(m.waketime) {
			m.waketime = s.End
		}
		m.awake += s.AwakeMinutes
		m.light += s.LightMinutes
		m.deep += s.DeepMinutes
		m.rem += s.RemMinutes
		if s.Score != nil && (m.score == nil || *s.Score > *m.score) {
			score := *s.Score
			m.score = &score
		}
	}
	return m
}

func (m mergedNight) totalMinutes() int {
	return int(math.Round(m.waketime.Sub(m.bedtime).Minutes()))
}

// ScoreSleep computes the heuristic 0-100 score for a night with no external
// score. Shares of deep and REM are taken of actual sleep (total minus awake);
// the awake share is taken of total time in bed.
func ScoreSleep(total, awake, deep, rem float64) int {
	score := float64(baseSleepScore)
	actual := total - awake

	hours := actual / 60
	switch {
	case hours > 9:
		score -= 5
	case hours >= 7:
		score += 15
	case hours >= 6:
		score += 8
	default:
		score -= 15
	}

	if actual > 0 {
		deepPct := deep / actual * 100
		switch {
		case deepPct >= 15 && deepPct <= 25:
			score += 10
		case deepPct < 10:
			score -= 5
		}
		remPct := rem / actual * 100
		switch {
		case remPct >= 18 && remPct <= 28:
			score += 10
		case remPct < 15:
			score -= 5
		}
	}

	if total > 0 {
		awakePct := awake / total * 100
		switch {
		case awakePct > 15:
			score -= 20
		case awakePct >= 10:
			score -= 10
		}
	}

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

// session finalizes a merged night. It returns false for implausible nights.
func (p *Pipeline) session(userID int, source models.Source, m mergedNight) (models.SleepSession, bool) {
	total := m.totalMinutes()
	if total > maxNightMinutes || total < minNightMinutes {
		return models.SleepSession{}, false
	}

	score := 0
	if m.score != nil {
		score = min(max(*m.score, 0), 100)
	} else {
		score = ScoreSleep(float64(total), m.awake, m.deep, m.rem)
	}

	return models.SleepSession{
		UserID:       userID,
		NightDate:    m.night,
		Bedtime:      m.bedtime,
		Waketime:     m.waketime,
		TotalMinutes: total,
		AwakeMinutes: int(math.Round(m.awake)),
		LightMinutes: int(math.Round(m.light)),
		DeepMinutes:  int(math.Round(m.deep)),
		RemMinutes:   int(math.Round(m.rem)),
		SleepScore:   score,
		Quality:      QualityFor(score, p.opts.LabelScheme),
		Source:       source,
	}, true
}

// Sleep groups segments into nights, merges each night with segments stored
// by earlier batches, and upserts one session per night. Segments without a
// valid interval are counted as skipped points; implausible nights are
// counted as skipped nights.
func (b *Batch) Sleep(ctx context.Context, segs []models.SleepSegment) error {
	groups := make(map[time.Time][]models.SleepSegment)
	skipped := 0
	for _, s := range segs {
		if s.Start.IsZero() || s.End.IsZero() || s.End.Before(s.Start) {
			skipped++
			continue
		}
		s.Night = NightKey(s.Start, b.p.opts.Location)
		groups[s.Night] = append(groups[s.Night], s)
	}
	b.Skip(skipped)

	nights := make([]time.Time, 0, len(groups))
	for night := range groups {
		nights = append(nights, night)
	}
	sort.Slice(nights, func(i, j int) bool { return nights[i].Before(nights[j]) })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.p.opts.Concurrency)
	for _, night := range nights {
		incoming := groups[night]
		g.Go(func() error {
			return b.reduceNight(gctx, night, incoming)
		})
	}
	return g.Wait()
}

func (b *Batch) reduceNight(ctx context.Context, night time.Time, incoming []models.SleepSegment) error {
	stored, err := b.p.store.QuerySleepSegments(ctx, b.userID, b.source, night)
	if err != nil {
		return fmt.Errorf("loading sleep segments for %s: %w", night.Format(time.DateOnly), err)
	}

	merged := mergeSegments(night, append(stored, incoming...))
	if merged.totalMinutes() > maxNightMinutes {
		b.rejectNight(night, merged)
		return nil
	}

	// Short nights keep their segments so a later batch can extend them.
	if err := b.p.store.InsertSleepSegments(ctx, b.userID, b.source, incoming); err != nil {
		return fmt.Errorf("storing sleep segments for %s: %w", night.Format(time.DateOnly), err)
	}

	sess, ok := b.p.session(b.userID, b.source, merged)
	if !ok {
		b.rejectNight(night, merged)
		return nil
	}
	if err := b.p.store.UpsertSleepSession(ctx, sess); err != nil {
		return fmt.Errorf("upserting sleep session for %s: %w", night.Format(time.DateOnly), err)
	}

	b.mu.Lock()
	b.result.SleepSessionsCount++
	b.sleepWritten = true
	b.mu.Unlock()
	return nil
}

func (b *Batch) rejectNight(night time.Time, m mergedNight) {
	b.p.log.Info("rejecting implausible sleep night",
		"user_id", b.userID, "night", night.Format(time.DateOnly), "minutes", m.totalMinutes())
	b.mu.Lock()
	b.result.Skipped.Nights++
	b.mu.Unlock()
}
