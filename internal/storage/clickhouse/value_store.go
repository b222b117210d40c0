package clickhouse

import (
	"context"
	"fmt"
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// DefaultChunkSize is the number of rows sent per ClickHouse batch.
const DefaultChunkSize = 1000

// ValueStore implements storage.ValueStore using ClickHouse.
// The table is a ReplacingMergeTree ordered by (partition_key, sort_key);
// every write carries a monotonic version and reads use FINAL.
type ValueStore struct {
	conn      *Conn
	chunkSize int
	now       func() time.Time
}

// NewValueStore creates a new ValueStore.
func NewValueStore(conn *Conn) *ValueStore {
	return &ValueStore{conn: conn, chunkSize: DefaultChunkSize, now: time.Now}
}

// Compile-time interface check.
var _ storage.ValueStore = (*ValueStore)(nil)

// Put upserts one value.
func (s *ValueStore) Put(ctx context.Context, v *domain.IndexingValue) error {
	if err := storage.ValidateValue(v); err != nil {
		return err
	}
	if err := s.send(ctx, []*domain.IndexingValue{v}); err != nil {
		return fmt.Errorf("upsert indexing value: %w", err)
	}
	return nil
}

// PutBatch sends values in chunks. A chunk that fails to send is returned
// as unprocessed; other chunks are kept.
func (s *ValueStore) PutBatch(ctx context.Context, values []*domain.IndexingValue) ([]*domain.IndexingValue, error) {
	for _, v := range values {
		if err := storage.ValidateValue(v); err != nil {
			return nil, err
		}
	}

	var unprocessed []*domain.IndexingValue
	for start := 0; start < len(values); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(values) {
			end = len(values)
		}
		chunk := values[start:end]
		if err := s.send(ctx, chunk); err != nil {
			unprocessed = append(unprocessed, chunk...)
		}
	}
	return unprocessed, nil
}

func (s *ValueStore) send(ctx context.Context, values []*domain.IndexingValue) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO indexing_values (
			partition_key, sort_key, source, origin, timeframe, name, value, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(s.now().UnixNano())
	for _, raw := range values {
		v := storage.Normalized(raw)
		err = batch.Append(
			v.Key().PartitionKey(), v.SortKey(), v.Source,
			string(v.Origin), string(v.Timeframe), v.Name,
			v.Value, version,
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
		FROM indexing_values FINAL
		WHERE partition_key = ? AND sort_key = ?
	`

	rows, err := s.conn.Query(ctx, query, key.PartitionKey(), domain.SortKey(at))
	if err != nil {
		return nil, fmt.Errorf("get indexing value: %w", err)
	}
	defer rows.Close()

	values, err := scanIndexingValues(rows)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, storage.ErrNotFound
	}
	return values[0], nil
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
		FROM indexing_values FINAL
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

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query indexing values: %w", err)
	}
	defer rows.Close()

	return scanIndexingValues(rows)
}

// scanIndexingValues scans multiple rows.
func scanIndexingValues(rows chRows) ([]*domain.IndexingValue, error) {
	var values []*domain.IndexingValue

	for rows.Next() {
		var v domain.IndexingValue
		var origin, timeframe string
		var sortKey int64

		err := rows.Scan(
			&v.Source, &origin, &timeframe,
			&v.Name, &v.Value, &sortKey,
		)
		if err != nil {
			return nil, fmt.Errorf("scan indexing value row: %w", err)
		}

		v.Origin = domain.Origin(origin)
		v.Timeframe = domain.Timeframe(timeframe)
		v.Timestamp = domain.FromSortKey(sortKey)
		values = append(values, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexing value rows: %w", err)
	}

	return values, nil
}
