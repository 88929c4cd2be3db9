package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	"github.com/sproutwell/sproutwell-api/internal/config"
)

// slogGooseLogger adapts goose's logger interface to slog. Fatalf does not
// exit; migration failures are surfaced as errors to main.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}

// migrationsDir locates the SQL migrations directory. SPROUTWELL_MIGRATIONS_DIR
// overrides the default ./migrations lookup for containerized deployments.
func migrationsDir() (string, error) {
	if dir := os.Getenv("SPROUTWELL_MIGRATIONS_DIR"); dir != "" {
		return dir, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}

	for dir := wd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}

	return "", fmt.Errorf("migrations directory not found relative to %s", wd)
}

// runMigrations executes a goose migration command against the configured
// database and returns once the command completes.
func runMigrations(cfg *config.Config, command, migrationName string) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}

	goose.SetLogger(&slogGooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if command == "create" {
		if migrationName == "" {
			return fmt.Errorf("migration name is required for create")
		}
		return goose.Create(nil, dir, migrationName, "sql")
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database connection", "error", closeErr)
		}
	}()

	slog.Info("Running migrations", "command", command, "dir", dir)

	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	case "version":
		err = goose.Version(db, dir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}

	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
