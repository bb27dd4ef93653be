package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drillkit/drill/internal/api"
	"github.com/drillkit/drill/internal/config"
	"github.com/drillkit/drill/internal/migrations"
	"github.com/drillkit/drill/internal/observability"
	"github.com/drillkit/drill/internal/query/sqlengine"
)

func main() {
	cfg, err := config.LoadFromEnv("drill-sandbox")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	engine, err := sqlengine.Open(context.Background(), cfg.Sandbox)
	if err != nil {
		logger.Error("failed to open query engine", slog.String("backend", cfg.Sandbox.Backend), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	if cfg.Sandbox.Seed {
		applied, err := migrations.NewRunner().Apply(context.Background(), engine.DB)
		if err != nil {
			logger.Error("failed to seed sandbox tables", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("sandbox tables seeded", slog.Int("applied", applied))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		QueryEngine:       engine,
		DependencyTimeout: time.Second,
		Hostname:          hostname,
	})
	server := &http.Server{
		Addr:         cfg.Sandbox.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Sandbox.ReadTimeout,
		WriteTimeout: cfg.Sandbox.WriteTimeout,
		IdleTimeout:  cfg.Sandbox.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting drill sandbox",
			slog.String("addr", cfg.Sandbox.Address),
			slog.String("backend", cfg.Sandbox.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("sandbox server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down drill sandbox")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
