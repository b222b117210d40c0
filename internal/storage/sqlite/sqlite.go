// Package sqlite is a single-file backend for local runs and tests that
// need real SQL semantics without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a database/sql handle opened with the modernc sqlite driver.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database; the pool is pinned to one
// connection so every caller sees the same in-memory file.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{DB: db}
	if err := d.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS indexing_values (
			partition_key TEXT    NOT NULL,
			sort_key      INTEGER NOT NULL,
			source        TEXT    NOT NULL,
			origin        TEXT    NOT NULL,
			timeframe     TEXT    NOT NULL,
			name          TEXT    NOT NULL,
			value         REAL    NOT NULL,
			updated_at    TEXT    NOT NULL,
			PRIMARY KEY (partition_key, sort_key)
		);`,
		`CREATE TABLE IF NOT EXISTS indexing_catalog (
			partition_key TEXT    NOT NULL,
			catalog_key   INTEGER NOT NULL,
			name          TEXT    NOT NULL,
			timeframe     TEXT    NOT NULL,
			source        TEXT    NOT NULL,
			origin        TEXT    NOT NULL,
			PRIMARY KEY (partition_key, catalog_key)
		);`,
		`CREATE TABLE IF NOT EXISTS grid_tariffs (
			country                     TEXT NOT NULL,
			provider                    TEXT NOT NULL,
			direction                   TEXT NOT NULL,
			peak_usage_avg_monthly_cost REAL NOT NULL,
			peak_usage_kwh              REAL NOT NULL,
			data_management_standard    REAL NOT NULL,
			data_management_dynamic     REAL NOT NULL,
			public_services_kwh         REAL NOT NULL,
			surcharges_kwh              REAL NOT NULL,
			transmission_charges_kwh    REAL NOT NULL,
			PRIMARY KEY (country, provider, direction)
		);`,
		`CREATE TABLE IF NOT EXISTS excise_tariffs (
			country             TEXT NOT NULL PRIMARY KEY,
			brackets            TEXT NOT NULL,
			energy_contribution REAL NOT NULL
		);`,
	}

	for _, statement := range statements {
		if _, err := d.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}
