// Package main implements the entry point for the practice API server, which
// manages timed practice sessions, MCQ option generation, and adaptive
// difficulty recommendation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/prepforge/practice-api/internal/config"
	"github.com/prepforge/practice-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status, version) and exit")
	flag.Parse()

	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if *migrateCmd != "" {
		if err := runMigrations(cfg, appLogger, *migrateCmd); err != nil {
			appLogger.Error("migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		appLogger.Info("migration completed", "command", *migrateCmd)
		return
	}

	app, err := newApplication(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		appLogger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)
	return cfg, appLogger, nil
}
