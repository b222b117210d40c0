package postgres

import (
	"context"
	"fmt"
	"sort"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// CatalogStore implements storage.CatalogStore using PostgreSQL.
// Keys are stored bit-cast to BIGINT.
type CatalogStore struct {
	pool *Pool
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(pool *Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CatalogStore = (*CatalogStore)(nil)

// UpsertEntries writes catalog rows. Existing keys are left untouched.
func (s *CatalogStore) UpsertEntries(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO indexing_catalog (
			partition_key, catalog_key, name, timeframe, source, origin
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (partition_key, catalog_key) DO NOTHING
	`

	for _, e := range entries {
		_, err := tx.Exec(ctx, query,
			domain.CatalogPartition,
			int64(e.Key),
			e.Name,
			string(e.Timeframe),
			e.Source,
			string(e.Origin.OrDefault()),
		)
		if err != nil {
			return fmt.Errorf("upsert catalog entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListEntries scans the catalog partition, ordered by key ASC.
func (s *CatalogStore) ListEntries(ctx context.Context) ([]domain.CatalogEntry, error) {
	query := `
		SELECT catalog_key, name, timeframe, source, origin
		FROM indexing_catalog
		WHERE partition_key = $1
	`

	rows, err := s.pool.Query(ctx, query, domain.CatalogPartition)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	defer rows.Close()

	result := []domain.CatalogEntry{}
	for rows.Next() {
		var (
			e         domain.CatalogEntry
			key       int64
			timeframe string
			origin    string
		)
		if err := rows.Scan(&key, &e.Name, &timeframe, &e.Source, &origin); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		e.Key = uint64(key)
		e.Timeframe = domain.Timeframe(timeframe)
		e.Origin = domain.Origin(origin)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog entries: %w", err)
	}

	// BIGINT order differs from uint64 order above 2^63.
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result, nil
}
