package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/healthsync/internal/cache"
	"github.com/claude/healthsync/internal/config"
	"github.com/claude/healthsync/internal/events"
	"github.com/claude/healthsync/internal/ingest/aggregator"
	"github.com/claude/healthsync/internal/ingest/hae"
	"github.com/claude/healthsync/internal/ingest/native"
	"github.com/claude/healthsync/internal/pipeline"
	"github.com/claude/healthsync/internal/server"
	"github.com/claude/healthsync/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.Info("healthsync starting", "version", Version)

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Readiness cache (optional)
	var readiness pipeline.ReadinessCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewReadiness(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.ReadinessPrefix,
		})
		if err != nil {
			log.Error("failed to connect redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		readiness = rc
		log.Info("readiness cache connected", "addr", cfg.Redis.Addr)
	}

	// Ingest events (optional)
	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("publishing ingest events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	defer publisher.Close()

	// Build pipeline
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
	p := pipeline.New(db, readiness, log, pipeline.Options{
		Location:        loc,
		LabelScheme:     scheme,
		DerivedLookback: time.Duration(cfg.Ingest.DerivedLookbackDays) * 24 * time.Hour,
		ScheduleWindow:  time.Duration(cfg.Ingest.ScheduleMatchDays) * 24 * time.Hour,
		Concurrency:     cfg.Ingest.Concurrency,
	})

	// Create providers
	providers := server.Providers{
		HAE:        hae.NewProvider(p, log),
		Native:     native.NewProvider(p, log),
		Aggregator: aggregator.NewProvider(p, log),
	}

	// Create server
	srv := server.New(db, providers, publisher, log, server.Options{
		APIKey:           cfg.Auth.APIKey,
		AggregatorSecret: cfg.Auth.AggregatorSecret,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		Version:          Version,
	})

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
