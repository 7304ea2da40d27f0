package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/healthsync/internal/events"
	"github.com/claude/healthsync/internal/ingest/aggregator"
	"github.com/claude/healthsync/internal/ingest/hae"
	"github.com/claude/healthsync/internal/ingest/native"
	"github.com/claude/healthsync/internal/mcp"
	"github.com/claude/healthsync/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Store is the persistence the HTTP layer needs beyond the pipeline:
// identity, import logs and the read-side queries.
type Store interface {
	mcp.DataSource
	Ping(ctx context.Context) error
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	LookupUserByLogin(ctx context.Context, login string) (int, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

var _ Store = (*storage.DB)(nil)

// Providers bundles the three ingestion paths.
type Providers struct {
	HAE        *hae.Provider
	Native     *native.Provider
	Aggregator *aggregator.Provider
}

// Options configures authentication and limits.
type Options struct {
	APIKey           string
	AggregatorSecret string
	MaxBodyBytes     int64
	Version          string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db        Store
	providers Providers
	publisher events.Publisher
	log       *slog.Logger
	opts      Options
	whois     WhoIser
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(db Store, providers Providers, publisher events.Publisher, log *slog.Logger, opts Options) *Server {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 20
	}
	s := &Server{
		db:        db,
		providers: providers,
		publisher: publisher,
		log:       log,
		opts:      opts,
	}
	s.routes()
	return s
}

// SetTailscale switches identity resolution from the dev user to Tailscale
// WhoIs lookups. It must be called before the server starts serving.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
	s.routes()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) identity() func(http.Handler) http.Handler {
	if s.whois != nil {
		return TailscaleIdentity(s.whois, s.db, s.log)
	}
	return DevIdentity
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(RequestLogging(s.log))
	r.Use(CORS)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/ingest", func(r chi.Router) {
		// The aggregator identifies the user in its envelope.
		r.With(SignatureAuth(s.opts.AggregatorSecret, s.opts.APIKey)).Post("/aggregator", s.handleAggregatorIngest)

		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.opts.APIKey))
			r.Use(s.identity())
			r.Post("/", s.handleHAEIngest)
			r.Post("/native", s.handleNativeIngest)
		})
	})

	// Read endpoints (no API key; tsnet or the dev identity scopes them)
	r.Group(func(r chi.Router) {
		r.Use(s.identity())
		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/biomarkers", s.handleQueryBiomarkers)
		r.Get("/api/v1/sleep", s.handleQuerySleep)
		r.Get("/api/v1/sleep/summary", s.handleSleepSummary)
		r.Get("/api/v1/workouts", s.handleQueryWorkouts)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/imports", s.handleImportLogs)

		mcpHTTP := mcpserver.NewStreamableHTTPServer(
			mcp.New(s.db, s.opts.Version, s.log),
			mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
				return mcp.WithUserID(ctx, userIDFromContext(r))
			}),
		)
		r.Handle("/mcp", mcpHTTP)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
