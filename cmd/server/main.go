package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gonogo/internal/platform/config"
	"gonogo/internal/platform/httpserver"
	"gonogo/internal/platform/logger"
)

const shutdownTimeout = 30 * time.Second

// main loads configuration, builds the application and keeps the server
// lifecycle small. Business logic lives in the internal module packages.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	// Jobs left queued or running by a previous process are failed before any
	// new submission is accepted.
	if n, err := app.orchestrator.RecoverOrphaned(ctx); err != nil {
		log.Error("orphaned job recovery failed", "error", err)
	} else if n > 0 {
		log.Warn("orphaned jobs marked failed", "count", n)
	}

	app.start(ctx)

	srv := httpserver.New(cfg.Server.Addr, app.router)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting gonogo",
			"addr", cfg.Server.Addr,
			"mock_mode", cfg.Server.MockMode,
			"durable", app.db != nil,
			"rate_backend", cfg.RateLimit.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := app.orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Error("job orchestrator shutdown incomplete", "error", err)
	}
	app.stopBackground()
	log.Info("shutdown complete")
	return nil
}
