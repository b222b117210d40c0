// Package timeseries is the boundary every caller uses to read and write
// indexing values.
package timeseries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"energy-tariffs/internal/catalog"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/observability"
	"energy-tariffs/internal/storage"
)

// DefaultTimeout bounds a single store call.
const DefaultTimeout = 5 * time.Second

// Options configures a Repository.
type Options struct {
	Timeout time.Duration
	Retry   storage.RetryPolicy
}

// Repository validates values, bounds store calls with a timeout, keeps the
// catalog up to date and records metrics.
type Repository struct {
	store  storage.ValueStore
	index  *catalog.Index
	writer *storage.BatchWriter
	logger *zap.Logger
}

// NewRepository creates a Repository. index may be nil to skip catalog upkeep.
func NewRepository(store storage.ValueStore, index *catalog.Index, opts Options, logger *zap.Logger) *Repository {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = storage.DefaultRetryPolicy()
	}
	logger = logging.OrNop(logger)

	timed := &timedStore{store: store, timeout: opts.Timeout}
	writer := storage.NewBatchWriter(timed, opts.Retry)
	writer.OnRetry(func(pending int, wait time.Duration) {
		observability.RecordBatchRetry()
		logger.Warn("resubmitting unprocessed values",
			zap.Int("pending", pending),
			zap.Duration("wait", wait),
		)
	})

	return &Repository{
		store:  timed,
		index:  index,
		writer: writer,
		logger: logger,
	}
}

// Put validates and stores one value.
func (r *Repository) Put(ctx context.Context, v *domain.IndexingValue) error {
	if err := storage.ValidateValue(v); err != nil {
		return err
	}
	if err := r.store.Put(ctx, v); err != nil {
		return fmt.Errorf("put %s: %w", v.Key(), err)
	}
	observability.RecordValuesWritten(string(v.Origin.OrDefault()), 1)
	r.record(ctx, []*domain.IndexingValue{v})
	return nil
}

// PutBatch validates every value, then writes them through the batch writer.
// One invalid value rejects the whole batch before anything is written.
func (r *Repository) PutBatch(ctx context.Context, values []*domain.IndexingValue) (storage.BatchResult, error) {
	for i, v := range values {
		if err := storage.ValidateValue(v); err != nil {
			return storage.BatchResult{}, fmt.Errorf("value %d: %w", i, err)
		}
	}

	res, err := r.writer.Write(ctx, values)

	written := values
	if len(res.Unprocessed) > 0 {
		written = without(values, res.Unprocessed)
		observability.RecordUnprocessed(len(res.Unprocessed))
	}
	r.countWritten(written)
	r.record(ctx, written)

	if err != nil {
		return res, fmt.Errorf("put batch: %w", err)
	}
	return res, nil
}

// Get returns the value of a series at an exact instant, or nil if there is none.
func (r *Repository) Get(ctx context.Context, key domain.SeriesKey, at time.Time) (*domain.IndexingValue, error) {
	v, err := r.store.Get(ctx, key.Normalize(), at)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Query returns the values of a series within [start, end), ascending.
func (r *Repository) Query(ctx context.Context, key domain.SeriesKey, tr domain.TimeRange) ([]*domain.IndexingValue, error) {
	values, err := r.store.Query(ctx, key.Normalize(), tr)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	return values, nil
}

// Catalog returns the documentation index, or nil if none is attached.
func (r *Repository) Catalog() *catalog.Index {
	return r.index
}

func (r *Repository) record(ctx context.Context, values []*domain.IndexingValue) {
	if r.index == nil || len(values) == 0 {
		return
	}
	// Catalog rows are rewritten on the next write of the series if this fails.
	if err := r.index.Record(ctx, values); err != nil {
		r.logger.Warn("catalog update failed", zap.Error(err))
	}
}

func (r *Repository) countWritten(values []*domain.IndexingValue) {
	byOrigin := make(map[domain.Origin]int)
	for _, v := range values {
		byOrigin[v.Origin.OrDefault()]++
	}
	for origin, n := range byOrigin {
		observability.RecordValuesWritten(string(origin), n)
	}
}

// without returns values minus the pointers in drop.
func without(values, drop []*domain.IndexingValue) []*domain.IndexingValue {
	skip := make(map[*domain.IndexingValue]struct{}, len(drop))
	for _, v := range drop {
		skip[v] = struct{}{}
	}
	out := make([]*domain.IndexingValue, 0, len(values)-len(drop))
	for _, v := range values {
		if _, ok := skip[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
