package timeseries

import (
	"context"
	"errors"
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/observability"
	"energy-tariffs/internal/storage"
)

// timedStore applies a per-call timeout and records latency for every call.
type timedStore struct {
	store   storage.ValueStore
	timeout time.Duration
}

var _ storage.ValueStore = (*timedStore)(nil)

func (s *timedStore) Put(ctx context.Context, v *domain.IndexingValue) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer observe("put", time.Now(), &err)
	return s.store.Put(ctx, v)
}

func (s *timedStore) PutBatch(ctx context.Context, values []*domain.IndexingValue) (unprocessed []*domain.IndexingValue, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer observe("put_batch", time.Now(), &err)
	return s.store.PutBatch(ctx, values)
}

func (s *timedStore) Get(ctx context.Context, key domain.SeriesKey, at time.Time) (v *domain.IndexingValue, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer observe("get", time.Now(), &err)
	return s.store.Get(ctx, key, at)
}

func (s *timedStore) Query(ctx context.Context, key domain.SeriesKey, r domain.TimeRange) (values []*domain.IndexingValue, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer observe("query", time.Now(), &err)
	return s.store.Query(ctx, key, r)
}

// observe records the call; a miss is not counted as an error.
func observe(op string, started time.Time, err *error) {
	e := *err
	if errors.Is(e, storage.ErrNotFound) {
		e = nil
	}
	observability.RecordStoreOp(op, started, e)
}
