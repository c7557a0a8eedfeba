package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"permitscope/internal/config"
	"permitscope/internal/dataset"
	"permitscope/internal/metrics"
	"permitscope/internal/server"
	"permitscope/internal/session"
)

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	manifest, err := config.LoadManifest()
	if err != nil {
		logger.Error("failed to load dataset manifest", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	clock := clockwork.NewRealClock()

	loader := dataset.NewLoader(cfg.DataDir, manifest.DatasetPaths(), clock, logger, m)
	registry := dataset.NewRegistry(cfg.DataDir, manifest.DatasetPaths(), logger)
	go func() {
		if err := registry.Watch(ctx); err != nil {
			logger.Warn("data directory watch unavailable", "error", err)
		}
	}()

	sessions := session.NewManager(clock, cfg.SessionTTL, logger, m)

	srv := server.New(cfg)
	srv.RegisterRoutes(server.Deps{
		Loader:   loader,
		Registry: registry,
		Manifest: manifest,
		Sessions: sessions,
		Clock:    clock,
		Logger:   logger,
		Metrics:  m,
	})

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	logger.Info("server started",
		"addr", cfg.ServerAddr,
		"data_dir", cfg.DataDir,
		"states", len(registry.States()),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cancel()
	if err := srv.Shutdown(); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

// newLogger builds the application logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
