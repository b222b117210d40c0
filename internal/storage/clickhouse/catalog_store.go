package clickhouse

import (
	"context"
	"fmt"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// CatalogStore implements storage.CatalogStore using ClickHouse.
type CatalogStore struct {
	conn *Conn
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(conn *Conn) *CatalogStore {
	return &CatalogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CatalogStore = (*CatalogStore)(nil)

// UpsertEntries writes catalog rows. Duplicate keys collapse on merge and
// are hidden by FINAL on read.
func (s *CatalogStore) UpsertEntries(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO indexing_catalog (
			partition_key, catalog_key, name, timeframe, source, origin
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			domain.CatalogPartition, e.Key, e.Name,
			string(e.Timeframe), e.Source, string(e.Origin.OrDefault()),
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ListEntries scans the catalog partition, ordered by key ASC.
func (s *CatalogStore) ListEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	query := `
		SELECT catalog_key, name, timeframe, source, origin
		FROM indexing_catalog FINAL
		WHERE partition_key = ?
		ORDER BY catalog_key ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.CatalogPartition)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	defer rows.Close()

	return scanCatalogEntries(rows)
}

// scanCatalogEntries scans multiple rows.
func scanCatalogEntries(rows chRows) ([]domain.CatalogEntry, error) {
	entries := []domain.CatalogEntry{}

	for rows.Next() {
		var e domain.CatalogEntry
		var timeframe, origin string

		if err := rows.Scan(&e.Key, &e.Name, &timeframe, &e.Source, &origin); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}

		e.Timeframe = domain.Timeframe(timeframe)
		e.Origin = domain.Origin(origin)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}

	return entries, nil
}
