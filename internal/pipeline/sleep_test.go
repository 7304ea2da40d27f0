package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/claude/healthsync/internal/models"
)

func day(d, hour, min int) time.Time {
	return time.Date(2024, 3, d, hour, min, 0, 0, time.UTC)
}

func night(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestNightKey(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		want  time.Time
	}{
		{"late evening", day(10, 23, 0), night(10)},
		{"after midnight", day(11, 2, 30), night(10)},
		{"morning", day(10, 8, 0), night(9)},
		{"boundary hour", day(10, 15, 0), night(10)},
		{"just before boundary", day(10, 14, 59), night(9)},
		{"offset kept", time.Date(2024, 3, 10, 22, 0, 0, 0, time.FixedZone("", -8*3600)), night(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NightKey(tt.start, nil))
		})
	}
}

func TestNightKeyLocation(t *testing.T) {
	// 06:00 UTC is 22:00 the previous evening in UTC-8.
	loc := time.FixedZone("PST", -8*3600)
	require.Equal(t, night(9), NightKey(day(10, 6, 0), loc))
	require.Equal(t, night(9), NightKey(day(10, 6, 0), nil))
	require.Equal(t, night(10), NightKey(day(11, 6, 0), loc))
}

func TestScoreSleep(t *testing.T) {
	tests := []struct {
		name                    string
		total, awake, deep, rem float64
		want                    int
	}{
		{"ideal night clamps", 480, 30, 90, 100, 100},
		{"short fragmented night", 360, 60, 20, 30, 25},
		{"no stage data", 450, 0, 0, 0, 75},
		{"long night", 600, 0, 120, 130, 85},
		{"six hours moderate awake", 420, 48, 60, 50, 73},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ScoreSleep(tt.total, tt.awake, tt.deep, tt.rem))
		})
	}
}

func TestQualityFor(t *testing.T) {
	require.Equal(t, models.QualityExcellent, QualityFor(85, LabelSchemeStandard))
	require.Equal(t, models.QualityGood, QualityFor(84, LabelSchemeStandard))
	require.Equal(t, models.QualityFair, QualityFor(60, LabelSchemeStandard))
	require.Equal(t, models.QualityPoor, QualityFor(59, LabelSchemeStandard))

	require.Equal(t, models.SleepQuality("excellent"), QualityFor(80, LabelSchemeLegacy))
	require.Equal(t, models.SleepQuality("good"), QualityFor(60, LabelSchemeLegacy))
	require.Equal(t, models.SleepQuality("fair"), QualityFor(40, LabelSchemeLegacy))
	require.Equal(t, models.SleepQuality("poor"), QualityFor(39, LabelSchemeLegacy))
}

func TestParseLabelScheme(t *testing.T) {
	s, err := ParseLabelScheme("")
	require.NoError(t, err)
	require.Equal(t, LabelSchemeStandard, s)

	s, err = ParseLabelScheme("Legacy")
	require.NoError(t, err)
	require.Equal(t, LabelSchemeLegacy, s)

	_, err = ParseLabelScheme("fancy")
	require.Error(t, err)
}

func evening() models.SleepSegment {
	return models.SleepSegment{
		Start: day(10, 23, 0), End: day(11, 2, 0),
		LightMinutes: 100, DeepMinutes: 60, RemMinutes: 20,
	}
}

func morning() models.SleepSegment {
	return models.SleepSegment{
		Start: day(11, 2, 0), End: day(11, 6, 30),
		AwakeMinutes: 10, LightMinutes: 150, DeepMinutes: 30, RemMinutes: 80,
	}
}

func TestSleepMergesSegmentsIntoOneNight(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	b := p.Begin(1, models.SourceExportWebhook)
	require.NoError(t, b.Sleep(ctx, []models.SleepSegment{evening(), morning()}))
	res := b.Finish(ctx)
	require.Equal(t, 1, res.SleepSessionsCount)

	sessions := store.SleepSessions()
	require.Len(t, sessions, 1)
	s := sessions[0]
	require.Equal(t, night(10), s.NightDate)
	require.True(t, s.Bedtime.Equal(day(10, 23, 0)))
	require.True(t, s.Waketime.Equal(day(11, 6, 30)))
	require.Equal(t, 450, s.TotalMinutes)
	require.Equal(t, 10, s.AwakeMinutes)
	require.Equal(t, 250, s.LightMinutes)
	require.Equal(t, 90, s.DeepMinutes)
	require.Equal(t, 100, s.RemMinutes)
	require.Equal(t, 100, s.SleepScore)
	require.Equal(t, models.QualityExcellent, s.Quality)
	require.Equal(t, models.SourceExportWebhook, s.Source)
}

func TestSleepRetryDoesNotDoubleCount(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	for range 2 {
		b := p.Begin(1, models.SourceExportWebhook)
		require.NoError(t, b.Sleep(ctx, []models.SleepSegment{evening(), morning()}))
		b.Finish(ctx)
	}

	sessions := store.SleepSessions()
	require.Len(t, sessions, 1)
	require.Equal(t, 250, sessions[0].LightMinutes)
	require.Equal(t, 450, sessions[0].TotalMinutes)
}

func TestSleepLaterBatchExtendsNight(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	b := p.Begin(1, models.SourceNativeSync)
	require.NoError(t, b.Sleep(ctx, []models.SleepSegment{evening()}))
	b.Finish(ctx)

	sessions := store.SleepSessions()
	require.Len(t, sessions, 1)
	require.Equal(t, 180, sessions[0].TotalMinutes)

	b = p.Begin(1, models.SourceNativeSync)
	require.NoError(t, b.Sleep(ctx, []models.SleepSegment{morning()}))
	b.Finish(ctx)

	sessions = store.SleepSessions()
	require.Len(t, sessions, 1)
	require.True(t, sessions[0].Bedtime.Equal(day(10, 23, 0)))
	require.True(t, sessions[0].Waketime.Equal(day(11, 6, 30)))
	require.Equal(t, 90, sessions[0].DeepMinutes)
}

func TestSleepSourcesAreSeparate(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	for _, src := range []models.Source{models.SourceExportWebhook, models.SourceAggregatorWebhook} {
		b := p.Begin(1, src)
		require.NoError(t, b.Sleep(ctx, []models.SleepSegment{evening(), morning()}))
		b.Finish(ctx)
	}
	require.Len(t, store.SleepSessions(), 2)
}

func TestSleepExternalScoreMaxWins(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()
	low, high := 62, 77
	a, m := evening(), morning()
	a.Score = &low
	m.Score = &high

	b := p.Begin(1, models.SourceAggregatorWebhook)
	require.NoError(t, b.Sleep(ctx, []models.SleepSegment{a, m}))
	b.Finish(ctx)

	s := store.SleepSessions()[0]
	require.Equal(t, 77, s.SleepScore)
	require.Equal(t, models.QualityGood, s.Quality)
}

func TestSleepExternalScoreClamped(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()
	over, under := 140, -5
	a := evening()
	a.Score = &over
	m := morning()
	m.Start, m.End = day(12, 2, 0), day(12, 6, 30)
	m.Score = &under

	b := p.Begin(1, models.SourceAggregatorWebhook)
	require.NoError(t, b.Sleep(ctx, []models.SleepSegment{a, m}))
	b.Finish(ctx)

	sessions := store.SleepSessions()
	require.Len(t, sessions, 2)
	scores := map[time.Time]int{}
	for _, s := range sessions {
		scores[s.NightDate] = s.SleepScore
	}
	require.Equal(t, 100, scores[night(10)])
	require.Equal(t, 0, scores[night(11)])
}

// In Bed and Asleep rows often cover the same interval.
func TestSleepSameIntervalDifferentStages(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()
	inBed := models.SleepSegment{Start: day(10, 23, 0), End: day(11, 7, 0)}
	asleep := models.SleepSegment{Start: day(10, 23, 0), End: day(11, 7, 0), LightMinutes: 480}

	for range 2 {
		b := p.Begin(1, models.SourceExportWebhook)
		require.NoError(t, b.Sleep(ctx, []models.SleepSegment{inBed, asleep, asleep}))
		b.Finish(ctx)
	}

	sessions := store.SleepSessions()
	require.Len(t, sessions, 1)
	require.Equal(t, 480, sessions[0].LightMinutes)
	require.Equal(t, 480, sessions[0].TotalMinutes)
}

func TestSleepRejectsImplausibleNights(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	ctx := context.Background()

	b := p.Begin(1, models.SourceExportWebhook)
	require.NoError(t, b.Sleep(ctx, []models.SleepSegment{
		// 18 hours in bed.
		{Start: day(10, 20, 0), End: day(11, 14, 0)},
		// 30 minute fragment.
		{Start: day(12, 23, 0), End: day(12, 23, 30)},
		// Inverted interval.
		{Start: day(14, 6, 0), End: day(14, 5, 0)},
	}))
	res := b.Finish(ctx)

	require.Equal(t, 0, res.SleepSessionsCount)
	require.Equal(t, 2, res.Skipped.Nights)
	require.Equal(t, 1, res.Skipped.Points)
	require.Empty(t, store.SleepSessions())
}

func TestSleepLegacyLabels(t *testing.T) {
	p, store, _ := newTestPipeline(t)
	p.opts.LabelScheme = LabelSchemeLegacy
	ctx := context.Background()
	score := 65
	seg := evening()
	seg.Score = &score

	b := p.Begin(1, models.SourceNativeSync)
	require.NoError(t, b.Sleep(ctx, []models.SleepSegment{seg}))
	b.Finish(ctx)

	require.Equal(t, models.SleepQuality("good"), store.SleepSessions()[0].Quality)
}
