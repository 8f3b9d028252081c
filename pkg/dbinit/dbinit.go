// Package dbinit creates and migrates the Postgres database backing
// console sessions.
package dbinit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres" // PostgreSQL driver for dbmate
	_ "github.com/lib/pq"                                 // PostgreSQL driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// InitializeDatabase creates the database when missing, applies pending
// migrations and returns an open, pinged connection.
func InitializeDatabase(ctx context.Context, databaseURL string, logger *slog.Logger) (*sql.DB, error) {
	parsedURL, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	logger.Info("Initializing database", slog.String("host", parsedURL.Host))

	db, err := newDBMate(parsedURL)
	if err != nil {
		return nil, err
	}
	logMigrations(logger)

	if err := db.CreateAndMigrate(); err != nil {
		return nil, fmt.Errorf("failed to create and migrate database: %w", err)
	}
	logger.Info("Database initialization completed successfully")

	return openAndTestConnection(ctx, databaseURL, logger)
}

// MigrateDatabase runs pending migrations on an existing database.
func MigrateDatabase(databaseURL string, logger *slog.Logger) error {
	parsedURL, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("invalid database URL: %w", err)
	}

	logger.Info("Running database migrations", slog.String("host", parsedURL.Host))

	db, err := newDBMate(parsedURL)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// Migrations lists the embedded migration file names in order.
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func newDBMate(u *url.URL) (*dbmate.DB, error) {
	migrationFS, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration filesystem: %w", err)
	}
	db := dbmate.New(u)
	db.AutoDumpSchema = false
	db.MigrationsDir = []string{"."}
	db.FS = migrationFS
	return db, nil
}

func logMigrations(logger *slog.Logger) {
	names, err := Migrations()
	if err != nil {
		logger.Warn("Cannot list migrations", slog.String("error", err.Error()))
		return
	}
	logger.Info("Found migrations", slog.Int("count", len(names)))
	for _, name := range names {
		logger.Debug("Migration file", slog.String("name", name))
	}
}

// openAndTestConnection opens a database connection and tests it.
func openAndTestConnection(ctx context.Context, databaseURL string, logger *slog.Logger) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Error("Failed to close database connection", slog.String("error", closeErr.Error()))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully")
	return sqlDB, nil
}
