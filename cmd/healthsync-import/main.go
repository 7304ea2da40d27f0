package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/healthsync/internal/config"
	"github.com/claude/healthsync/internal/importer"
	"github.com/claude/healthsync/internal/ingest/hae"
	"github.com/claude/healthsync/internal/pipeline"
	"github.com/claude/healthsync/internal/storage"
	"github.com/claude/healthsync/internal/upload"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("path", "", "directory of export .json/.json.gz files (required)")
	login := flag.String("user", "local", "login of the user to import for")
	stateDir := flag.String("state", ".healthsync-import", "directory for the import state database")
	dryRun := flag.Bool("dry-run", false, "classify files without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: healthsync-import -config config.yaml -path /path/to/exports [-user login] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*exportPath)
	if err != nil || !info.IsDir() {
		log.Error("export path does not exist or is not a directory", "path", *exportPath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userID, err := db.LookupUserByLogin(ctx, *login)
	if err != nil {
		log.Error("unknown user", "login", *login, "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Ingest.Location()
	if err != nil {
		log.Error("invalid ingest timezone", "error", err)
		os.Exit(1)
	}
	scheme, err := pipeline.ParseLabelScheme(cfg.Ingest.SleepLabelScheme)
	if err != nil {
		log.Error("invalid sleep label scheme", "error", err)
		os.Exit(1)
	}
	// No readiness cache: a bulk import runs before scores are computed.
	p := pipeline.New(db, nil, log, pipeline.Options{
		Location:    loc,
		LabelScheme: scheme,
		Concurrency: cfg.Ingest.Concurrency,
	})

	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	sender := importer.New(hae.NewProvider(p, log), userID, log)
	imp := upload.New(sender, state, *exportPath, *dryRun, cfg.Ingest.Concurrency, log)
	stats, err := imp.Run(ctx)
	printStats(log, stats)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *upload.Stats) {
	log.Info("import stats",
		"files_total", stats.FilesTotal,
		"files_imported", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"biomarkers", stats.Biomarkers,
		"sleep_sessions", stats.SleepSessions,
		"workouts", stats.WorkoutSessions,
		"derived", stats.Derived,
	)
	if len(stats.Unrecognized) > 0 {
		log.Info("unrecognized entries", "names", stats.Unrecognized)
	}
}
