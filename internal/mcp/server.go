package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("healthsync", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("healthsync health data server. Query normalized biomarkers, sleep sessions and workouts, or diagnose how an export payload would be ingested. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetBiomarkers, Handler: h.getBiomarkers},
		server.ServerTool{Tool: toolGetSleepSessions, Handler: h.getSleepSessions},
		server.ServerTool{Tool: toolGetSleepSummary, Handler: h.getSleepSummary},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolListBiomarkerTypes, Handler: h.listBiomarkerTypes},
		server.ServerTool{Tool: toolDiagnosePayload, Handler: h.diagnosePayload},
	)

	s.AddResources(
		server.ServerResource{Resource: resDataStats, Handler: h.dataStats},
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resLastNight, Handler: h.lastNight},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resDataStats = mcp.NewResource(
	"healthsync://stats",
	"Data Stats",
	mcp.WithResourceDescription("Record counts per biomarker type and workout type, and the overall date range"),
	mcp.WithMIMEType("application/json"),
)

var resRecentWorkouts = mcp.NewResource(
	"healthsync://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)

var resLastNight = mcp.NewResource(
	"healthsync://last_night",
	"Last Night",
	mcp.WithResourceDescription("Sleep sessions for the most recent night, one per source"),
	mcp.WithMIMEType("application/json"),
)
