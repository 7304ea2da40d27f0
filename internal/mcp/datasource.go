package mcp

import (
	"context"
	"time"

	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryBiomarkers(ctx context.Context, userID int, types []models.BiomarkerType, start, end time.Time) ([]models.BiomarkerPoint, error)
	QuerySleepSessions(ctx context.Context, userID int, start, end time.Time) ([]models.SleepSession, error)
	GetSleepSummary(ctx context.Context, userID int, start, end time.Time, bucket string) ([]storage.SleepSummaryPeriod, error)
	QueryWorkouts(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
