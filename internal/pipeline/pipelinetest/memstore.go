// Package pipelinetest provides in-memory implementations of the pipeline's
// collaborators for tests.
package pipelinetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/healthsync/internal/models"
)

type biomarkerKey struct {
	userID     int
	typ        models.BiomarkerType
	recordedAt int64
	source     models.Source
}

type segmentKey struct {
	userID     int
	source     models.Source
	start, end int64
	stages     string
}

type sessionKey struct {
	userID int
	night  time.Time
	source models.Source
}

// MemStore is an in-memory pipeline.Store with the same uniqueness rules as
// the Postgres store. Set an entry in Fail to make the named method error.
type MemStore struct {
	mu         sync.Mutex
	biomarkers map[biomarkerKey]models.BiomarkerPoint
	segments   map[segmentKey]models.SleepSegment
	sessions   map[sessionKey]models.SleepSession
	workouts   []models.WorkoutSession
	schedules  []*models.TrainingSchedule
	goals      []*models.Goal

	Fail map[string]error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		biomarkers: make(map[biomarkerKey]models.BiomarkerPoint),
		segments:   make(map[segmentKey]models.SleepSegment),
		sessions:   make(map[sessionKey]models.SleepSession),
		Fail:       make(map[string]error),
	}
}

func (m *MemStore) fail(method string) error {
	return m.Fail[method]
}

func (m *MemStore) UpsertBiomarker(_ context.Context, p models.BiomarkerPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertBiomarker"); err != nil {
		return err
	}
	m.biomarkers[biomarkerKey{p.UserID, p.Type, p.RecordedAt.UnixNano(), p.Source}] = p
	return nil
}

func (m *MemStore) QueryBiomarkers(_ context.Context, userID int, types []models.BiomarkerType, start, end time.Time) ([]models.BiomarkerPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("QueryBiomarkers"); err != nil {
		return nil, err
	}
	want := make(map[models.BiomarkerType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []models.BiomarkerPoint
	for _, p := range m.biomarkers {
		if p.UserID != userID || (len(want) > 0 && !want[p.Type]) {
			continue
		}
		if p.RecordedAt.Before(start) || p.RecordedAt.After(end) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (m *MemStore) InsertSleepSegments(_ context.Context, userID int, source models.Source, segs []models.SleepSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertSleepSegments"); err != nil {
		return err
	}
	for _, s := range segs {
		m.segments[segmentKey{userID, source, s.Start.UnixNano(), s.End.UnixNano(), s.StageSignature()}] = s
	}
	return nil
}

func (m *MemStore) QuerySleepSegments(_ context.Context, userID int, source models.Source, night time.Time) ([]models.SleepSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("QuerySleepSegments"); err != nil {
		return nil, err
	}
	var out []models.SleepSegment
	for k, s := range m.segments {
		if k.userID == userID && k.source == source && s.Night.Equal(night) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemStore) UpsertSleepSession(_ context.Context, s models.SleepSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertSleepSession"); err != nil {
		return err
	}
	m.sessions[sessionKey{s.UserID, s.NightDate, s.Source}] = s
	return nil
}

func (m *MemStore) CreateWorkoutSession(_ context.Context, w *models.WorkoutSession) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateWorkoutSession"); err != nil {
		return false, err
	}
	for _, e := range m.workouts {
		if e.UserID != w.UserID || e.SourceType != w.SourceType {
			continue
		}
		if e.StartTime.Equal(w.StartTime) && e.WorkoutType == w.WorkoutType {
			return false, nil
		}
		if w.SourceID != "" && e.SourceID == w.SourceID {
			return false, nil
		}
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	m.workouts = append(m.workouts, *w)
	return true, nil
}

func (m *MemStore) FindMatchingSchedule(_ context.Context, userID int, t models.WorkoutType, around time.Time, window time.Duration) (*models.TrainingSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindMatchingSchedule"); err != nil {
		return nil, err
	}
	for _, s := range m.schedules {
		if s.UserID != userID || s.WorkoutType != t || s.Completed {
			continue
		}
		d := s.ScheduledDate.Sub(around)
		if d < 0 {
			d = -d
		}
		if d <= window {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemStore) MatchWorkoutToSchedule(_ context.Context, scheduleID, workoutID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MatchWorkoutToSchedule"); err != nil {
		return err
	}
	for _, s := range m.schedules {
		if s.ID == scheduleID {
			s.Completed = true
			id := workoutID
			s.WorkoutSessionID = &id
		}
	}
	for i := range m.workouts {
		if m.workouts[i].ID == workoutID {
			id := scheduleID
			m.workouts[i].MatchedScheduleID = &id
		}
	}
	return nil
}

func (m *MemStore) GetGoals(_ context.Context, userID int) ([]models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetGoals"); err != nil {
		return nil, err
	}
	var out []models.Goal
	for _, g := range m.goals {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *MemStore) UpdateGoalProgress(_ context.Context, goalID uuid.UUID, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateGoalProgress"); err != nil {
		return err
	}
	for _, g := range m.goals {
		if g.ID == goalID {
			g.CurrentValue = value
		}
	}
	return nil
}

// AddSchedule seeds a training schedule entry.
func (m *MemStore) AddSchedule(s models.TrainingSchedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = append(m.schedules, &s)
}

// AddGoal seeds a goal.
func (m *MemStore) AddGoal(g models.Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals = append(m.goals, &g)
}

// Biomarkers returns stored points ordered by time then type.
func (m *MemStore) Biomarkers() []models.BiomarkerPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.BiomarkerPoint, 0, len(m.biomarkers))
	for _, p := range m.biomarkers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// SleepSessions returns stored sessions ordered by night.
func (m *MemStore) SleepSessions() []models.SleepSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SleepSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NightDate.Before(out[j].NightDate) })
	return out
}

// Workouts returns stored workouts in creation order.
func (m *MemStore) Workouts() []models.WorkoutSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WorkoutSession(nil), m.workouts...)
}

// Schedules returns copies of the seeded schedule entries.
func (m *MemStore) Schedules() []models.TrainingSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TrainingSchedule, len(m.schedules))
	for i, s := range m.schedules {
		out[i] = *s
	}
	return out
}

// Goals returns copies of the seeded goals.
func (m *MemStore) Goals() []models.Goal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Goal, len(m.goals))
	for i, g := range m.goals {
		out[i] = *g
	}
	return out
}

// MemCache is an in-memory readiness cache keyed by user and date.
type MemCache struct {
	mu     sync.Mutex
	scores map[int]map[time.Time]float64
	Err    error
}

// NewMemCache returns an empty cache.
func NewMemCache() *MemCache {
	return &MemCache{scores: make(map[int]map[time.Time]float64)}
}

// Set stores a score for the user's date.
func (c *MemCache) Set(userID int, date time.Time, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scores[userID] == nil {
		c.scores[userID] = make(map[time.Time]float64)
	}
	c.scores[userID][date] = score
}

// Has reports whether a score is cached for the user's date.
func (c *MemCache) Has(userID int, date time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.scores[userID][date]
	return ok
}

func (c *MemCache) DeleteFrom(_ context.Context, userID int, from time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	n := 0
	for date := range c.scores[userID] {
		if !date.Before(from) {
			delete(c.scores[userID], date)
			n++
		}
	}
	return n, nil
}
