package repository

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies the embedded migrations for db's dialect. The migrate
// instance is not closed since that would close db as well.
func Migrate(db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		dir    string
		name   string
		driver database.Driver
		err    error
	)
	switch db.Dialect {
	case dialect.SQLite:
		dir, name = "migrations/sqlite", "sqlite"
		driver, err = sqlite.WithInstance(db.DB.DB, &sqlite.Config{})
	case dialect.Postgres:
		dir, name = "migrations/postgres", "pgx5"
		driver, err = migratepgx.WithInstance(db.DB.DB, &migratepgx.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", db.Dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Info("database migrated", "dialect", db.Dialect, "version", version, "dirty", dirty)
	return nil
}
