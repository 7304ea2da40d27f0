package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/claude/healthsync/internal/ingest/hae"
	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/units"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	return timeRange(startStr, endStr, 7)
}

func timeRange(startStr, endStr string, defaultDays int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -defaultDays)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// parseTypes splits a comma-separated biomarker type list. Unknown names are
// returned separately so the caller can reject them.
func parseTypes(s string) (known []models.BiomarkerType, unknown []string) {
	valid := make(map[models.BiomarkerType]bool, len(models.AllBiomarkerTypes))
	for _, t := range models.AllBiomarkerTypes {
		valid[t] = true
	}
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(strings.ToLower(part))
		if name == "" {
			continue
		}
		if t := models.BiomarkerType(name); valid[t] {
			known = append(known, t)
		} else {
			unknown = append(unknown, name)
		}
	}
	return known, unknown
}

// --- Tool definitions ---

var toolGetBiomarkers = mcp.NewTool("get_biomarkers",
	mcp.WithDescription("Retrieve normalized biomarker readings. Values are always in the canonical unit of their type (e.g. weight in lbs, glucose in mg/dL)."),
	mcp.WithString("types", mcp.Description("Comma-separated biomarker types (e.g. 'weight,resting-heart-rate'). Defaults to all types.")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetSleepSessions = mcp.NewTool("get_sleep_sessions",
	mcp.WithDescription("Retrieve one reduced sleep session per night and source, with stage minutes, score and quality label."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolGetSleepSummary = mcp.NewTool("get_sleep_summary",
	mcp.WithDescription("Aggregated sleep stats per period and source: average stage minutes, score, bedtime/waketime and their consistency."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to 'month'."), mcp.Enum("day", "week", "month")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Query workout sessions with optional type filter. Returns duration, distance (meters), calories and heart rate."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("type", mcp.Description("Filter by workout type (e.g. 'running', 'strength')")),
)

var toolListBiomarkerTypes = mcp.NewTool("list_biomarker_types",
	mcp.WithDescription("List every biomarker type with its canonical unit."),
)

var toolDiagnosePayload = mcp.NewTool("diagnose_payload",
	mcp.WithDescription("Explain how an export webhook payload would be ingested: which shape strategy locates its entries and how each entry is classified. Nothing is stored."),
	mcp.WithString("payload", mcp.Required(), mcp.Description("Raw JSON request body")),
)

// --- Tool handlers ---

func (h *handlers) getBiomarkers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	types, unknown := parseTypes(req.GetString("types", ""))
	if len(unknown) > 0 {
		return mcp.NewToolResultError("unknown biomarker types: " + strings.Join(unknown, ", ")), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	points, err := h.ds.QueryBiomarkers(ctx, uid, types, start, end)
	if err != nil {
		h.log.Error("mcp get_biomarkers", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(points)
}

func (h *handlers) getSleepSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	sessions, err := h.ds.QuerySleepSessions(ctx, uid, start, end)
	if err != nil {
		h.log.Error("mcp get_sleep_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func (h *handlers) getSleepSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	summary, err := h.ds.GetSleepSummary(ctx, uid, start, end, req.GetString("bucket", "month"))
	if err != nil {
		h.log.Error("mcp get_sleep_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(summary)
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	workouts, err := h.ds.QueryWorkouts(ctx, uid, start, end)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if filter := strings.ToLower(strings.TrimSpace(req.GetString("type", ""))); filter != "" {
		kept := workouts[:0]
		for _, w := range workouts {
			if string(w.WorkoutType) == filter {
				kept = append(kept, w)
			}
		}
		workouts = kept
	}
	return jsonResult(workouts)
}

// BiomarkerTypeInfo is one row of list_biomarker_types.
type BiomarkerTypeInfo struct {
	Type string `json:"type"`
	Unit string `json:"unit"`
}

func (h *handlers) listBiomarkerTypes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos := make([]BiomarkerTypeInfo, 0, len(models.AllBiomarkerTypes))
	for _, t := range models.AllBiomarkerTypes {
		infos = append(infos, BiomarkerTypeInfo{Type: string(t), Unit: units.CanonicalUnit(t)})
	}
	return jsonResult(infos)
}

func (h *handlers) diagnosePayload(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := req.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError("payload parameter is required"), nil
	}

	diag, err := hae.Diagnose([]byte(payload))
	var shapeErr *hae.ShapeError
	if errors.As(err, &shapeErr) {
		return jsonResult(map[string]any{"error": shapeErr.Error(), "details": shapeErr})
	}
	if err != nil {
		return mcp.NewToolResultError("diagnosis failed: " + err.Error()), nil
	}
	return jsonResult(diag)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
