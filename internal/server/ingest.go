package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/healthsync/internal/events"
	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/ingest/aggregator"
	"github.com/claude/healthsync/internal/ingest/hae"
	"github.com/claude/healthsync/internal/models"
	"github.com/claude/healthsync/internal/observability"
	"github.com/claude/healthsync/internal/storage"
)

// readBody reads the request body up to the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body: " + err.Error()})
		return nil, false
	}
	return body, true
}

func (s *Server) handleHAEIngest(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	uid := userIDFromContext(r)
	s.runIngest(w, r, uid, models.SourceExportWebhook, func(ctx context.Context) (*ingest.Result, error) {
		return s.providers.HAE.Ingest(ctx, body, uid)
	})
}

func (s *Server) handleNativeIngest(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	uid := userIDFromContext(r)
	s.runIngest(w, r, uid, models.SourceNativeSync, func(ctx context.Context) (*ingest.Result, error) {
		return s.providers.Native.Ingest(ctx, body, uid)
	})
}

func (s *Server) handleAggregatorIngest(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	env, err := aggregator.ParseEnvelope(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if env.User.ReferenceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user.reference_id is required"})
		return
	}

	uid, err := s.db.LookupUserByLogin(r.Context(), env.User.ReferenceID)
	if errors.Is(err, storage.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown reference_id"})
		return
	}
	if err != nil {
		s.log.Error("aggregator user lookup", "reference_id", env.User.ReferenceID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.runIngest(w, r, uid, models.SourceAggregatorWebhook, func(ctx context.Context) (*ingest.Result, error) {
		return s.providers.Aggregator.Ingest(ctx, env, uid)
	})
}

// runIngest executes one ingest call and handles everything around it:
// import log, metrics, event and the HTTP response.
func (s *Server) runIngest(w http.ResponseWriter, r *http.Request, uid int, source models.Source, fn func(context.Context) (*ingest.Result, error)) {
	start := time.Now()
	result, err := fn(r.Context())
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.logImport(uid, string(source), status, result, err, elapsed)
	observability.RecordIngest(string(source), status, result, elapsed)

	if err != nil {
		s.writeIngestError(w, source, err)
		return
	}

	ev := events.NewIngestCompleted(uid, string(source), result, time.Now())
	if err := s.publisher.Publish(r.Context(), ev); err != nil {
		s.log.Warn("publishing ingest event", "source", source, "error", err)
	}

	writeJSON(w, http.StatusOK, result)
}

// writeIngestError maps ingest failures to HTTP statuses: unusable payloads
// are the client's fault, everything else is ours.
func (s *Server) writeIngestError(w http.ResponseWriter, source models.Source, err error) {
	var shapeErr *hae.ShapeError
	switch {
	case errors.As(err, &shapeErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": shapeErr.Error(), "details": shapeErr})
	case errors.Is(err, ingest.ErrMalformedPayload):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.log.Error("ingest error", "source", source, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// logImport records an ingest outcome to the import_logs table.
func (s *Server) logImport(uid int, source, status string, result *ingest.Result, importErr error, elapsed time.Duration) {
	entry := storage.ImportLogFromResult(uid, source, status, result, elapsed)
	if importErr != nil {
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout
// so that the log entry survives a client disconnect.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
