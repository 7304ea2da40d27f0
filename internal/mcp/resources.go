package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) dataStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.ds.GetDataStats(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, stats)
}

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	workouts, err := h.ds.QueryWorkouts(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, workouts)
}

// lastNight returns the sessions of the newest night found in the past two days.
func (h *handlers) lastNight(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now().AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -3)

	sessions, err := h.ds.QuerySleepSessions(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		return nil, err
	}

	var newest time.Time
	for _, s := range sessions {
		if s.NightDate.After(newest) {
			newest = s.NightDate
		}
	}
	latest := sessions[:0]
	for _, s := range sessions {
		if s.NightDate.Equal(newest) {
			latest = append(latest, s)
		}
	}
	return jsonContents(req.Params.URI, latest)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
