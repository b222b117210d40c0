package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// GridTariffStore is an in-memory implementation of storage.GridTariffStore.
type GridTariffStore struct {
	mu   sync.RWMutex
	data map[string]*domain.GridTariff // keyed by (country, provider, direction)
}

// NewGridTariffStore creates a new in-memory grid tariff store.
func NewGridTariffStore() *GridTariffStore {
	return &GridTariffStore{
		data: make(map[string]*domain.GridTariff),
	}
}

func gridKey(country, provider string, direction domain.Direction) string {
	return fmt.Sprintf("%s|%s|%s", country, provider, direction)
}

// ReplaceAll replaces every stored tariff.
func (s *GridTariffStore) ReplaceAll(_ context.Context, tariffs []*domain.GridTariff) error {
	data := make(map[string]*domain.GridTariff, len(tariffs))
	for _, t := range tariffs {
		if t == nil || t.Country == "" || t.Provider == "" || !t.Direction.IsValid() {
			return fmt.Errorf("grid tariff: %w", storage.ErrInvalidInput)
		}
		tariffCopy := *t
		data[gridKey(t.Country, t.Provider, t.Direction)] = &tariffCopy
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Get retrieves one tariff. Returns ErrNotFound if not exists.
func (s *GridTariffStore) Get(_ context.Context, country, provider string, direction domain.Direction) (*domain.GridTariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[gridKey(country, provider, direction)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	tariffCopy := *t
	return &tariffCopy, nil
}

// List retrieves all tariffs ordered by (country, provider, direction).
func (s *GridTariffStore) List(_ context.Context) ([]*domain.GridTariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.GridTariff, 0, len(s.data))
	for _, t := range s.data {
		tariffCopy := *t
		result = append(result, &tariffCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return gridKey(result[i].Country, result[i].Provider, result[i].Direction) <
			gridKey(result[j].Country, result[j].Provider, result[j].Direction)
	})
	return result, nil
}

var _ storage.GridTariffStore = (*GridTariffStore)(nil)

// ExciseTariffStore is an in-memory implementation of storage.ExciseTariffStore.
type ExciseTariffStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExciseTariff // keyed by country
}

// NewExciseTariffStore creates a new in-memory excise tariff store.
func NewExciseTariffStore() *ExciseTariffStore {
	return &ExciseTariffStore{
		data: make(map[string]*domain.ExciseTariff),
	}
}

func copyExcise(t *domain.ExciseTariff) *domain.ExciseTariff {
	c := *t
	c.Brackets = append([]domain.Bracket(nil), t.Brackets...)
	return &c
}

// ReplaceAll replaces every stored tariff.
func (s *ExciseTariffStore) ReplaceAll(_ context.Context, tariffs []*domain.ExciseTariff) error {
	data := make(map[string]*domain.ExciseTariff, len(tariffs))
	for _, t := range tariffs {
		if t == nil || t.Country == "" {
			return fmt.Errorf("excise tariff: %w", storage.ErrInvalidInput)
		}
		data[t.Country] = copyExcise(t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Get retrieves the tariff of a country. Returns ErrNotFound if not exists.
func (s *ExciseTariffStore) Get(_ context.Context, country string) (*domain.ExciseTariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[country]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyExcise(t), nil
}

// List retrieves all tariffs ordered by country.
func (s *ExciseTariffStore) List(_ context.Context) ([]*domain.ExciseTariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ExciseTariff, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, copyExcise(t))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Country < result[j].Country
	})
	return result, nil
}

var _ storage.ExciseTariffStore = (*ExciseTariffStore)(nil)
