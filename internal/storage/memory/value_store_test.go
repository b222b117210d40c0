package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
	"energy-tariffs/internal/storage/storagetest"
)

func TestValueStore_Contract(t *testing.T) {
	storagetest.RunValueStore(t, func(t *testing.T) storage.ValueStore {
		return NewValueStore()
	})
}

func TestCatalogStore_Contract(t *testing.T) {
	storagetest.RunCatalogStore(t, func(t *testing.T) storage.CatalogStore {
		return NewCatalogStore()
	})
}

func TestTariffStores_Contract(t *testing.T) {
	storagetest.RunTariffStores(t, NewGridTariffStore(), NewExciseTariffStore())
}

func TestValueStore_CopyOnRead(t *testing.T) {
	store := NewValueStore()
	ctx := context.Background()
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	v := storagetest.Hourly(start, 1)[0]
	if err := store.Put(ctx, v); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the input after Put must not change the stored value.
	v.Value = -1

	got, err := store.Get(ctx, storagetest.HourlySeries, start)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Value == -1 {
		t.Errorf("stored value aliased caller input")
	}

	got.Value = -2
	again, _ := store.Get(ctx, storagetest.HourlySeries, start)
	if again.Value == -2 {
		t.Errorf("returned value aliased stored value")
	}
}

func TestValueStore_BatchValidationIsAllOrNothing(t *testing.T) {
	store := NewValueStore()
	ctx := context.Background()
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	values := storagetest.Hourly(start, 3)
	values[2].Timeframe = "WEEKLY"

	_, err := store.PutBatch(ctx, values)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected nothing written, got %d values", store.Len())
	}
}

func TestValueStore_SubSecondTimestampsCollapse(t *testing.T) {
	store := NewValueStore()
	ctx := context.Background()
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	v := storagetest.Hourly(start, 1)[0]
	v.Timestamp = start.Add(300 * time.Millisecond)
	if err := store.Put(ctx, v); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, storagetest.HourlySeries, start)
	if err != nil {
		t.Fatalf("Get at whole second failed: %v", err)
	}
	if !got.Timestamp.Equal(start) {
		t.Errorf("Expected timestamp truncated to %v, got %v", start, got.Timestamp)
	}
}

func TestValueStore_GetRejectsZeroInstant(t *testing.T) {
	store := NewValueStore()

	_, err := store.Get(context.Background(), storagetest.HourlySeries, time.Time{})
	if !errors.Is(err, domain.ErrNaiveTimestamp) {
		t.Errorf("Expected ErrNaiveTimestamp, got %v", err)
	}
}
