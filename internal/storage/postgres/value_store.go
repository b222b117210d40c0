package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// DefaultBatchParallelism bounds concurrent item writes in PutBatch.
const DefaultBatchParallelism = 8

// ValueStore implements storage.ValueStore using PostgreSQL.
type ValueStore struct {
	pool        *Pool
	parallelism int
}

// NewValueStore creates a new ValueStore.
func NewValueStore(pool *Pool) *ValueStore {
	return &ValueStore{pool: pool, parallelism: DefaultBatchParallelism}
}

// WithParallelism overrides the PutBatch fan-out.
func (s *ValueStore) WithParallelism(n int) *ValueStore {
	if n > 0 {
		s.parallelism = n
	}
	return s
}

// Compile-time interface check.
var _ storage.ValueStore = (*ValueStore)(nil)

const upsertValueQuery = `
	INSERT INTO indexing_values (
		partition_key, sort_key, source, origin, timeframe, name, value
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (partition_key, sort_key) DO UPDATE SET
		value = EXCLUDED.value,
		updated_at = now()
`

// Put upserts one value.
func (s *ValueStore) Put(ctx context.Context, v *domain.IndexingValue) error {
	if err := storage.ValidateValue(v); err != nil {
		return err
	}
	if err := s.exec(ctx, storage.Normalized(v)); err != nil {
		return fmt.Errorf("upsert indexing value: %w", err)
	}
	return nil
}

func (s *ValueStore) exec(ctx context.Context, v *domain.IndexingValue) error {
	_, err := s.pool.Exec(ctx, upsertValueQuery,
		v.Key().PartitionKey(),
		v.SortKey(),
		v.Source,
		string(v.Origin),
		string(v.Timeframe),
		v.Name,
		v.Value,
	)
	return err
}

// PutBatch upserts values concurrently. Items whose write failed are returned
// as unprocessed; the rest are committed.
func (s *ValueStore) PutBatch(ctx context.Context, values []*domain.IndexingValue) ([]*domain.IndexingValue, error) {
	for _, v := range values {
		if err := storage.ValidateValue(v); err != nil {
			return nil, err
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	var (
		mu          sync.Mutex
		unprocessed []*domain.IndexingValue
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, v := range values {
		g.Go(func() error {
			if err := s.exec(gctx, storage.Normalized(v)); err != nil {
				mu.Lock()
				unprocessed = append(unprocessed, v)
				mu.Unlock()
			}
			// Item failures go to unprocessed; siblings keep running.
			return nil
		})
	}
	_ = g.Wait()

	return unprocessed, nil
}

// Get retrieves the value at an exact instant. Returns ErrNotFound if not exists.
func (s *ValueStore) Get(ctx context.Context, key domain.SeriesKey, at time.Time) (*domain.IndexingValue, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := storage.ValidateInstant(at); err != nil {
		return nil, err
	}

	query := `
		SELECT source, origin, timeframe, name, value, sort_key
		FROM indexing_values
		WHERE partition_key = $1 AND sort_key = $2
	`

	row := s.pool.QueryRow(ctx, query, key.PartitionKey(), domain.SortKey(at))
	v, err := scanIndexingValue(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get indexing value: %w", err)
	}
	return v, nil
}

// Query retrieves values within [start, end), ordered by timestamp ASC.
func (s *ValueStore) Query(ctx context.Context, key domain.SeriesKey, r domain.TimeRange) ([]*domain.IndexingValue, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := storage.ValidateRange(r); err != nil {
		return nil, err
	}

	// Open bounds are left out of the WHERE clause.
	query := `
		SELECT source, origin, timeframe, name, value, sort_key
		FROM indexing_values
		WHERE partition_key = $1`
	args := []any{key.PartitionKey()}

	start, hasStart, end, hasEnd := r.Bounds()
	if hasStart {
		args = append(args, start)
		query += fmt.Sprintf(" AND sort_key >= $%d", len(args))
	}
	if hasEnd {
		args = append(args, end)
		query += fmt.Sprintf(" AND sort_key < $%d", len(args))
	}
	query += " ORDER BY sort_key ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query indexing values: %w", err)
	}
	defer rows.Close()

	var result []*domain.IndexingValue
	for rows.Next() {
		v, err := scanIndexingValue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan indexing value: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexing values: %w", err)
	}
	return result, nil
}

// scanIndexingValue scans a single row into IndexingValue.
func scanIndexingValue(row pgx.Row) (*domain.IndexingValue, error) {
	var (
		v         domain.IndexingValue
		origin    string
		timeframe string
		sortKey   int64
	)

	err := row.Scan(
		&v.Source,
		&origin,
		&timeframe,
		&v.Name,
		&v.Value,
		&sortKey,
	)
	if err != nil {
		return nil, err
	}

	v.Origin = domain.Origin(origin)
	v.Timeframe = domain.Timeframe(timeframe)
	v.Timestamp = domain.FromSortKey(sortKey)
	return &v, nil
}
