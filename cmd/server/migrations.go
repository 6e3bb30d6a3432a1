package main

import (
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/prepforge/practice-api/internal/config"
)

// migrationsDir is the path to the goose migration files, relative to the
// project root the server is launched from.
const migrationsDir = "internal/platform/postgres/migrations"

// runMigrations executes the requested goose command against the configured
// database and returns when it finishes.
func runMigrations(cfg *config.Config, logger *slog.Logger, command string) error {
	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}

	switch command {
	case "up":
		return goose.Up(db, migrationsDir)
	case "down":
		return goose.Down(db, migrationsDir)
	case "status":
		return goose.Status(db, migrationsDir)
	case "version":
		return goose.Version(db, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command %q (want up, down, status, or version)", command)
	}
}
