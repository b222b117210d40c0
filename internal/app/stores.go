// Package app wires stores and services for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"energy-tariffs/internal/config"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/storage"
	chstore "energy-tariffs/internal/storage/clickhouse"
	"energy-tariffs/internal/storage/memory"
	"energy-tariffs/internal/storage/migrations"
	pgstore "energy-tariffs/internal/storage/postgres"
	"energy-tariffs/internal/storage/sqlite"
)

// Stores holds one implementation of every store interface.
type Stores struct {
	Backend string
	Values  storage.ValueStore
	Catalog storage.CatalogStore
	Grid    storage.GridTariffStore
	Excise  storage.ExciseTariffStore

	closers []func()
}

// Close releases every connection in reverse opening order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores connects the configured backend. Migrations run first when
// cfg.Migrate is set.
//
// ClickHouse holds values and the catalog only. Tariffs then live in
// PostgreSQL when a DSN is configured, else SQLite when a path is
// configured, else in memory.
func OpenStores(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Stores, error) {
	logger = logging.OrNop(logger)
	s := &Stores{Backend: cfg.Backend}

	switch cfg.Backend {
	case config.BackendMemory:
		s.Values = memory.NewValueStore()
		s.Catalog = memory.NewCatalogStore()
		s.Grid = memory.NewGridTariffStore()
		s.Excise = memory.NewExciseTariffStore()

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { db.Close() })
		s.Values = sqlite.NewValueStore(db)
		s.Catalog = sqlite.NewCatalogStore(db)
		s.Grid = sqlite.NewGridTariffStore(db)
		s.Excise = sqlite.NewExciseTariffStore(db)

	case config.BackendPostgres:
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.Values = pgstore.NewValueStore(pool)
		s.Catalog = pgstore.NewCatalogStore(pool)
		s.Grid = pgstore.NewGridTariffStore(pool)
		s.Excise = pgstore.NewExciseTariffStore(pool)

	case config.BackendClickHouse:
		conn, err := openClickHouse(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.Values = chstore.NewValueStore(conn)
		s.Catalog = chstore.NewCatalogStore(conn)

		if err := s.openTariffStores(ctx, cfg, logger); err != nil {
			s.Close()
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalid, cfg.Backend)
	}

	logger.Info("stores opened", zap.String("backend", cfg.Backend))
	return s, nil
}

func (s *Stores) openTariffStores(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) error {
	switch {
	case cfg.PostgresDSN != "":
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, pool.Close)
		s.Grid = pgstore.NewGridTariffStore(pool)
		s.Excise = pgstore.NewExciseTariffStore(pool)
	case cfg.SQLitePath != "":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { db.Close() })
		s.Grid = sqlite.NewGridTariffStore(db)
		s.Excise = sqlite.NewExciseTariffStore(db)
	default:
		logger.Warn("no tariff database configured, tariffs are kept in memory")
		s.Grid = memory.NewGridTariffStore()
		s.Excise = memory.NewExciseTariffStore()
	}
	return nil
}

func openPostgres(ctx context.Context, cfg config.StoreConfig) (*pgstore.Pool, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresPool)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}
	return pool, nil
}

func openClickHouse(ctx context.Context, cfg config.StoreConfig) (*chstore.Conn, error) {
	if cfg.Migrate {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		return conn, nil
	}
	return chstore.NewConn(ctx, cfg.ClickHouseDSN)
}

// Migrate applies the schema of the configured backend and closes the
// connections again. Memory needs none; SQLite migrates on open.
func Migrate(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) error {
	cfg.Migrate = true
	s, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}
