package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/claude/healthsync/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "healthsync server URL (e.g. https://healthsync.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("HEALTHSYNC_AUTH_API_KEY"), "ingest API key")
	exportPath := flag.String("path", "", "directory of export .json/.json.gz files")
	dryRun := flag.Bool("dry-run", false, "parse and classify but don't send to server")
	concurrency := flag.Int("concurrency", 4, "files sent in parallel")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("healthsync-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: healthsync-upload -server <URL> -path <export dir> [-dry-run] [-concurrency N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*exportPath)
	if err != nil || !info.IsDir() {
		log.Error("export directory not found", "path", *exportPath)
		os.Exit(1)
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".healthsync-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	var sender upload.Sender
	if *dryRun {
		log.Info("DRY RUN mode: files will be parsed and classified but not sent")
	} else {
		sender = upload.NewClient(*serverURL, *apiKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploader := upload.New(sender, state, *exportPath, *dryRun, *concurrency, log)
	stats, err := uploader.Run(ctx)
	printStats(stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Biomarkers:       %d\n", stats.Biomarkers)
	fmt.Printf("  Sleep sessions:   %d\n", stats.SleepSessions)
	fmt.Printf("  Workouts:         %d\n", stats.WorkoutSessions)
	fmt.Printf("  Derived:          %d\n", stats.Derived)

	if len(stats.Unrecognized) > 0 {
		fmt.Printf("\n  Unrecognized entries:\n")
		for _, m := range stats.Unrecognized {
			fmt.Printf("    - %s\n", m)
		}
	}
	fmt.Println()
}
