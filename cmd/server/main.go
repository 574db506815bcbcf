// Package main implements the entry point for the taskr API server, which
// stores per-user tasks and dispatches a workflow on every status change.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/platform/logger"
	"github.com/phrazzld/taskr/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "", "Run database migrations (up, down, reset, status, version) and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, l, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if *migrateCmd != "" {
		if err := runMigrations(ctx, cfg, *migrateCmd, l); err != nil {
			l.Error("migration failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		l.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		l.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up the default logger.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("workflow_backend", cfg.Workflow.Backend))
	return cfg, l, nil
}

// runMigrations applies a goose command to the configured database.
func runMigrations(ctx context.Context, cfg *config.Config, command string, l *slog.Logger) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required to run migrations")
	}
	db, err := postgres.Open(ctx, cfg.Database.URL, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			l.Error("Error closing database connection", slog.String("error", err.Error()))
		}
	}()
	return postgres.Migrate(ctx, db, command, l)
}
