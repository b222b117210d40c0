package memory

import (
	"context"
	"sort"
	"sync"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// CatalogStore is an in-memory implementation of storage.CatalogStore.
type CatalogStore struct {
	mu      sync.RWMutex
	entries map[uint64]domain.CatalogEntry // keyed by catalog key
	writes  int
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		entries: make(map[uint64]domain.CatalogEntry),
	}
}

// UpsertEntries writes catalog rows keyed by entry.Key.
func (s *CatalogStore) UpsertEntries(_ context.Context, entries []domain.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.entries[e.Key] = e
		s.writes++
	}
	return nil
}

// ListEntries returns all rows ordered by key ASC.
func (s *CatalogStore) ListEntries(_ context.Context) ([]domain.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CatalogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result, nil
}

// Writes returns how many rows have been written, including overwrites.
func (s *CatalogStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

var _ storage.CatalogStore = (*CatalogStore)(nil)
