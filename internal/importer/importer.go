// Package importer ingests export files straight into the local database,
// bypassing the HTTP server.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/ingest/hae"
	"github.com/claude/healthsync/internal/upload"
)

// Local is an upload.Sender that hands bodies to an in-process provider.
type Local struct {
	provider *hae.Provider
	userID   int
	log      *slog.Logger
}

var _ upload.Sender = (*Local)(nil)

// New creates a local sender that files everything under userID.
func New(provider *hae.Provider, userID int, log *slog.Logger) *Local {
	return &Local{provider: provider, userID: userID, log: log}
}

// Send ingests one export body.
func (l *Local) Send(ctx context.Context, body []byte) (*ingest.Result, error) {
	res, err := l.provider.Ingest(ctx, body, l.userID)
	if err != nil {
		return nil, fmt.Errorf("importing for user %d: %w", l.userID, err)
	}
	if len(res.Unrecognized) > 0 {
		l.log.Debug("unrecognized entries", "names", res.Unrecognized)
	}
	return res, nil
}
