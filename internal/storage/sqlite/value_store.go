package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// ValueStore implements storage.ValueStore using SQLite.
type ValueStore struct {
	db *DB
}

// NewValueStore creates a new ValueStore.
func NewValueStore(db *DB) *ValueStore {
	return &ValueStore{db: db}
}

// Compile-time interface check.
var _ storage.ValueStore = (*ValueStore)(nil)

const upsertValueQuery = `
	INSERT INTO indexing_values (
		partition_key, sort_key, source, origin, timeframe, name, value, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(partition_key, sort_key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
`

// Put upserts one value.
func (s *ValueStore) Put(ctx context.Context, v *domain.IndexingValue) error {
	if err := storage.ValidateValue(v); err != nil {
		return err
	}
	n := storage.Normalized(v)
	_, err := s.db.ExecContext(ctx, upsertValueQuery, valueArgs(n, time.Now().UTC())...)
	if err != nil {
		return fmt.Errorf("upsert indexing value: %w", err)
	}
	return nil
}

// PutBatch upserts values in one transaction. Items whose statement failed
// are returned as unprocessed; if the transaction cannot be opened or
// committed every item is.
func (s *ValueStore) PutBatch(ctx context.Context, values []*domain.IndexingValue) ([]*domain.IndexingValue, error) {
	for _, v := range values {
		if err := storage.ValidateValue(v); err != nil {
			return nil, err
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return values, nil
	}

	stmt, err := tx.PrepareContext(ctx, upsertValueQuery)
	if err != nil {
		_ = tx.Rollback()
		return values, nil
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var unprocessed []*domain.IndexingValue
	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, valueArgs(storage.Normalized(v), now)...); err != nil {
			unprocessed = append(unprocessed, v)
		}
	}

	if err := tx.Commit(); err != nil {
		return values, nil
	}
	return unprocessed, nil
}

func valueArgs(v *domain.IndexingValue, now time.Time) []any {
	return []any{
		v.Key().PartitionKey(),
		v.SortKey(),
		v.Source,
		string(v.Origin),
		string(v.Timeframe),
		v.Name,
		v.Value,
		now.Format(time.RFC3339Nano),
	}
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
		WHERE partition_key = ? AND sort_key = ?
	`

	row := s.db.QueryRowContext(ctx, query, key.PartitionKey(), domain.SortKey(at))
	v, err := scanIndexingValue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	query := `
		SELECT source, origin, timeframe, name, value, sort_key
		FROM indexing_values
		WHERE partition_key = ?`
	args := []any{key.PartitionKey()}

	start, hasStart, end, hasEnd := r.Bounds()
	if hasStart {
		query += " AND sort_key >= ?"
		args = append(args, start)
	}
	if hasEnd {
		query += " AND sort_key < ?"
		args = append(args, end)
	}
	query += " ORDER BY sort_key ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanIndexingValue(row scanner) (*domain.IndexingValue, error) {
	var (
		v         domain.IndexingValue
		origin    string
		timeframe string
		sortKey   int64
	)
	if err := row.Scan(&v.Source, &origin, &timeframe, &v.Name, &v.Value, &sortKey); err != nil {
		return nil, err
	}
	v.Origin = domain.Origin(origin)
	v.Timeframe = domain.Timeframe(timeframe)
	v.Timestamp = domain.FromSortKey(sortKey)
	return &v, nil
}
