// Package database stores chat logs and user preferences in SQLite.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.
)

const busyTimeoutMillis = 5000

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Database struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens dbPath and applies pending migrations.
func New(ctx context.Context, dbPath string, log *slog.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}
	// SQLite serializes writers.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping DB: %w", err), db.Close())
	}

	version, changed, err := migrateSchema(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	if changed {
		log.InfoContext(ctx, "DB is migrated",
			"dbPath", dbPath,
			"version", version)
	} else {
		log.InfoContext(ctx, "No migrations to apply",
			"dbPath", dbPath,
			"version", version)
	}

	return &Database{db: db, log: log}, nil
}

func dsn(dbPath string) string {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(busyTimeoutMillis))
	params.Set("_foreign_keys", "on")

	return "file:" + dbPath + "?" + params.Encode()
}

// migrateSchema brings the schema to the latest embedded version. The migrate
// instance is not closed because that would close db.
func migrateSchema(db *sql.DB) (uint, bool, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("create DB instance: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("create source instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return 0, false, fmt.Errorf("create migrate instance: %w", err)
	}

	changed := true
	if err = m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return 0, false, fmt.Errorf("apply migrations: %w", err)
		}
		changed = false
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, changed, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return version, changed, fmt.Errorf("migration %d is dirty", version)
	}

	return version, changed, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}
