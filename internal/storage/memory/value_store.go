package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// ValueStore is an in-memory implementation of storage.ValueStore.
// Each partition keeps its values sorted by sort key so range scans are
// a binary search plus a linear copy.
type ValueStore struct {
	mu         sync.RWMutex
	partitions map[string][]*domain.IndexingValue // keyed by partition key, sorted by sort key
}

// NewValueStore creates a new in-memory value store.
func NewValueStore() *ValueStore {
	return &ValueStore{
		partitions: make(map[string][]*domain.IndexingValue),
	}
}

// Put upserts one value.
func (s *ValueStore) Put(_ context.Context, v *domain.IndexingValue) error {
	if err := storage.ValidateValue(v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsert(storage.Normalized(v))
	return nil
}

// PutBatch upserts multiple values. Validation runs over the whole batch first;
// nothing is written if any item is invalid.
func (s *ValueStore) PutBatch(_ context.Context, values []*domain.IndexingValue) ([]*domain.IndexingValue, error) {
	for _, v := range values {
		if err := storage.ValidateValue(v); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range values {
		s.upsert(storage.Normalized(v))
	}
	return nil, nil
}

// upsert inserts or replaces v in its partition. Caller holds the write lock.
func (s *ValueStore) upsert(v *domain.IndexingValue) {
	pk := v.Key().PartitionKey()
	rows := s.partitions[pk]
	sk := v.SortKey()

	i := sort.Search(len(rows), func(i int) bool { return rows[i].SortKey() >= sk })
	if i < len(rows) && rows[i].SortKey() == sk {
		rows[i] = v
		return
	}

	rows = append(rows, nil)
	copy(rows[i+1:], rows[i:])
	rows[i] = v
	s.partitions[pk] = rows
}

// Get retrieves the value at an exact instant. Returns ErrNotFound if not exists.
func (s *ValueStore) Get(_ context.Context, key domain.SeriesKey, at time.Time) (*domain.IndexingValue, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := storage.ValidateInstant(at); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.partitions[key.PartitionKey()]
	sk := domain.SortKey(at)
	i := sort.Search(len(rows), func(i int) bool { return rows[i].SortKey() >= sk })
	if i < len(rows) && rows[i].SortKey() == sk {
		valueCopy := *rows[i]
		return &valueCopy, nil
	}
	return nil, storage.ErrNotFound
}

// Query retrieves values within [start, end), ordered by timestamp ASC.
func (s *ValueStore) Query(_ context.Context, key domain.SeriesKey, r domain.TimeRange) ([]*domain.IndexingValue, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := storage.ValidateRange(r); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.partitions[key.PartitionKey()]
	start, hasStart, end, hasEnd := r.Bounds()

	lo := 0
	if hasStart {
		lo = sort.Search(len(rows), func(i int) bool { return rows[i].SortKey() >= start })
	}
	hi := len(rows)
	if hasEnd {
		hi = sort.Search(len(rows), func(i int) bool { return rows[i].SortKey() >= end })
	}

	var result []*domain.IndexingValue
	for i := lo; i < hi; i++ {
		valueCopy := *rows[i]
		result = append(result, &valueCopy)
	}
	return result, nil
}

// Len returns the number of stored values across all partitions.
func (s *ValueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rows := range s.partitions {
		n += len(rows)
	}
	return n
}

var _ storage.ValueStore = (*ValueStore)(nil)
