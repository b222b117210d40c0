package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
	"energy-tariffs/internal/storage/storagetest"
)

// truncate empties every table between sub-tests sharing one container.
func truncate(t *testing.T, pool *Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE indexing_values, indexing_catalog, grid_tariffs, excise_tariffs`)
	require.NoError(t, err)
}

func TestValueStore_Contract(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storagetest.RunValueStore(t, func(t *testing.T) storage.ValueStore {
		truncate(t, pool)
		return NewValueStore(pool)
	})
}

func TestCatalogStore_Contract(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storagetest.RunCatalogStore(t, func(t *testing.T) storage.CatalogStore {
		truncate(t, pool)
		return NewCatalogStore(pool)
	})
}

func TestTariffStores_Contract(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storagetest.RunTariffStores(t, NewGridTariffStore(pool), NewExciseTariffStore(pool))
}

func TestCatalogStore_HighBitKeys(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCatalogStore(pool)

	entries := []domain.CatalogEntry{
		{Key: 1 << 63, Name: "high", Timeframe: domain.TimeframeDaily, Source: "EEX", Origin: domain.OriginOriginal},
		{Key: 7, Name: "low", Timeframe: domain.TimeframeDaily, Source: "EEX", Origin: domain.OriginOriginal},
	}
	require.NoError(t, store.UpsertEntries(ctx, entries))

	got, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(7), got[0].Key)
	assert.Equal(t, uint64(1<<63), got[1].Key)
}

func TestValueStore_ParallelBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewValueStore(pool).WithParallelism(4)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	values := storagetest.Hourly(start, 200)
	unprocessed, err := store.PutBatch(ctx, values)
	require.NoError(t, err)
	assert.Empty(t, unprocessed)

	// A cancelled context fails every item; all of them come back unprocessed.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	unprocessed, err = store.PutBatch(cancelled, storagetest.Hourly(start.AddDate(0, 1, 0), 5))
	require.NoError(t, err)
	assert.Len(t, unprocessed, 5)

	got, err := store.Query(ctx, storagetest.HourlySeries, domain.TimeRange{})
	require.NoError(t, err)
	assert.Len(t, got, 200)
}
