package upload

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/claude/healthsync/internal/ingest/hae"
)

// Sender delivers one export body and reports what was stored. *Client sends
// to a remote server; the import command wraps a local provider.
type Sender interface {
	Send(ctx context.Context, body []byte) (*ingest.Result, error)
}

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	Biomarkers      int
	SleepSessions   int
	WorkoutSessions int
	Derived         int

	Unrecognized []string
}

// Uploader walks a directory of export files and sends every new or changed
// one. Files are .json or gzip-compressed .json.gz.
type Uploader struct {
	sender      Sender
	state       *StateDB
	root        string
	dryRun      bool
	concurrency int
	log         *slog.Logger

	mu           sync.Mutex
	stats        Stats
	unrecognized map[string]bool
}

// New creates a new Uploader. sender may be nil in dry-run mode.
func New(sender Sender, state *StateDB, root string, dryRun bool, concurrency int, log *slog.Logger) *Uploader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Uploader{
		sender:       sender,
		state:        state,
		root:         root,
		dryRun:       dryRun,
		concurrency:  concurrency,
		log:          log,
		unrecognized: map[string]bool{},
	}
}

// Run sends every pending file under the root directory. Per-file failures
// are counted and logged; only a cancelled context or an unreadable root
// aborts the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := findExports(u.root)
	if err != nil {
		return &u.stats, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, f := range files {
		g.Go(func() error {
			u.processFile(ctx, f)
			return ctx.Err()
		})
	}
	err = g.Wait()

	sort.Strings(u.stats.Unrecognized)
	return &u.stats, err
}

// findExports lists export files under root in lexical order.
func findExports(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isExport(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

func isExport(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}

func (u *Uploader) processFile(ctx context.Context, path string) {
	u.count(func(s *Stats) { s.FilesTotal++ })

	relPath, _ := filepath.Rel(u.root, path)
	hash, err := HashFile(path)
	if err != nil {
		u.fail(path, "hash failed", err)
		return
	}

	sent, err := u.state.IsSent(ctx, relPath, hash)
	if err != nil {
		u.fail(path, "state check failed", err)
		return
	}
	if sent {
		u.count(func(s *Stats) { s.FilesSkipped++ })
		return
	}

	body, err := readExport(path)
	if err != nil {
		u.fail(path, "read failed", err)
		return
	}

	if u.dryRun {
		u.diagnose(path, body)
		return
	}

	res, err := u.sender.Send(ctx, body)
	if err != nil {
		u.fail(path, "send failed", err)
		return
	}

	if err := u.state.MarkSent(ctx, relPath, hash, res.BiomarkersCount, res.SleepSessionsCount, res.WorkoutSessionsCount); err != nil {
		u.log.Warn("failed to mark sent", "file", relPath, "error", err)
	}
	u.count(func(s *Stats) {
		s.FilesUploaded++
		s.Biomarkers += res.BiomarkersCount
		s.SleepSessions += res.SleepSessionsCount
		s.WorkoutSessions += res.WorkoutSessionsCount
		s.Derived += res.DerivedCount
		for _, name := range res.Unrecognized {
			if !u.unrecognized[name] {
				u.unrecognized[name] = true
				s.Unrecognized = append(s.Unrecognized, name)
			}
		}
	})

	u.log.Info("uploaded file",
		"file", relPath,
		"biomarkers", res.BiomarkersCount,
		"sleep", res.SleepSessionsCount,
		"workouts", res.WorkoutSessionsCount,
	)
}

// diagnose logs what a file would contribute without sending it.
func (u *Uploader) diagnose(path string, body []byte) {
	d, err := hae.Diagnose(body)
	if err != nil {
		u.fail(path, "unrecognized payload", err)
		return
	}
	u.count(func(s *Stats) { s.FilesUploaded++ })
	for _, e := range d.Entries {
		u.log.Info("dry-run: would send",
			"file", path,
			"entry", e.Name,
			"kind", e.Kind,
			"points", e.Points,
		)
	}
}

func (u *Uploader) fail(path, msg string, err error) {
	u.log.Warn(msg, "file", path, "error", err)
	u.count(func(s *Stats) { s.FilesErrored++ })
}

func (u *Uploader) count(fn func(*Stats)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(&u.stats)
}

// readExport reads a file, transparently gunzipping .gz files.
func readExport(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip %s: %w", path, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
