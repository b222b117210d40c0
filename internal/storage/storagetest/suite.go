// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// HourlySeries is the series used by the value store checks.
var HourlySeries = domain.SeriesKey{
	Source:    "ENTSO-E",
	Origin:    domain.OriginOriginal,
	Timeframe: domain.TimeframeHourly,
	Name:      "SDAC BE",
}

// Hourly builds n consecutive hourly values of HourlySeries starting at start.
func Hourly(start time.Time, n int) []*domain.IndexingValue {
	values := make([]*domain.IndexingValue, n)
	for i := range values {
		values[i] = &domain.IndexingValue{
			Name:      HourlySeries.Name,
			Value:     100 + float64(i)/4,
			Timeframe: HourlySeries.Timeframe,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Source:    HourlySeries.Source,
			Origin:    HourlySeries.Origin,
		}
	}
	return values
}

// RunValueStore exercises the ValueStore contract against a fresh store.
// newStore must return an empty store each call.
func RunValueStore(t *testing.T, newStore func(t *testing.T) storage.ValueStore) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("RoundTrip", func(t *testing.T) {
		store := newStore(t)
		brussels := time.FixedZone("CEST", 2*3600)
		v := &domain.IndexingValue{
			Name:      "Epex DAM",
			Value:     101.25,
			Timeframe: domain.TimeframeMonthly,
			Timestamp: time.Date(2023, 5, 1, 0, 0, 0, 0, brussels),
			Source:    "Engie",
			Origin:    domain.OriginDerived,
		}
		require.NoError(t, store.Put(ctx, v))

		got, err := store.Get(ctx, v.Key(), v.Timestamp)
		require.NoError(t, err)
		assertSameValue(t, v, got)
	})

	t.Run("GetMiss", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, HourlySeries, start)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DefaultOrigin", func(t *testing.T) {
		store := newStore(t)
		v := Hourly(start, 1)[0]
		v.Origin = ""
		require.NoError(t, store.Put(ctx, v))

		key := HourlySeries
		key.Origin = ""
		got, err := store.Get(ctx, key, start)
		require.NoError(t, err)
		assert.Equal(t, domain.OriginOriginal, got.Origin)

		_, err = store.Get(ctx, withOrigin(HourlySeries, domain.OriginDerived), start)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := newStore(t)
		v := Hourly(start, 1)[0]
		require.NoError(t, store.Put(ctx, v))

		updated := *v
		updated.Value = 42
		require.NoError(t, store.Put(ctx, &updated))

		all, err := store.Query(ctx, HourlySeries, domain.TimeRange{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.InDelta(t, 42, all[0].Value, 1e-9)
	})

	t.Run("RejectsZeroTimestamp", func(t *testing.T) {
		store := newStore(t)
		v := Hourly(start, 1)[0]
		v.Timestamp = time.Time{}
		assert.ErrorIs(t, store.Put(ctx, v), storage.ErrInvalidInput)

		_, err := store.PutBatch(ctx, []*domain.IndexingValue{Hourly(start, 1)[0], v})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})

	t.Run("QueryRanges", func(t *testing.T) {
		store := newStore(t)
		values := Hourly(start, 48)
		unprocessed, err := store.PutBatch(ctx, values)
		require.NoError(t, err)
		require.Empty(t, unprocessed)

		// Unrelated series in the same store must not leak into results.
		other := Hourly(start, 3)
		for _, v := range other {
			v.Name = "SDAC NL"
		}
		_, err = store.PutBatch(ctx, other)
		require.NoError(t, err)

		at := func(i int) *time.Time {
			ts := start.Add(time.Duration(i) * time.Hour)
			return &ts
		}

		tests := []struct {
			name   string
			r      domain.TimeRange
			wantLo int
			wantHi int
		}{
			{name: "full series", r: domain.TimeRange{}, wantLo: 0, wantHi: 48},
			{name: "closed", r: domain.TimeRange{Start: at(10), End: at(20)}, wantLo: 10, wantHi: 20},
			{name: "open end", r: domain.TimeRange{Start: at(40)}, wantLo: 40, wantHi: 48},
			{name: "open start", r: domain.TimeRange{End: at(5)}, wantLo: 0, wantHi: 5},
			{name: "empty", r: domain.TimeRange{Start: at(7), End: at(7)}, wantLo: 7, wantHi: 7},
			{name: "beyond data", r: domain.TimeRange{Start: at(100)}, wantLo: 48, wantHi: 48},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := store.Query(ctx, HourlySeries, tt.r)
				require.NoError(t, err)
				require.Len(t, got, tt.wantHi-tt.wantLo)
				for i, v := range got {
					assertSameValue(t, values[tt.wantLo+i], v)
				}
			})
		}
	})

	t.Run("QueryOrdered", func(t *testing.T) {
		store := newStore(t)
		values := Hourly(start, 10)
		// Insert out of order.
		for i := len(values) - 1; i >= 0; i-- {
			require.NoError(t, store.Put(ctx, values[i]))
		}

		got, err := store.Query(ctx, HourlySeries, domain.TimeRange{})
		require.NoError(t, err)
		require.Len(t, got, 10)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp), "results not ascending at %d", i)
		}
	})

	t.Run("LargeBatch", func(t *testing.T) {
		store := newStore(t)
		values := Hourly(start, 24*31)
		unprocessed, err := store.PutBatch(ctx, values)
		require.NoError(t, err)
		require.Empty(t, unprocessed)

		end := start.AddDate(0, 1, 0)
		got, err := store.Query(ctx, HourlySeries, domain.Between(start, end))
		require.NoError(t, err)
		assert.Len(t, got, 24*31)
	})
}

// RunCatalogStore exercises the CatalogStore contract.
func RunCatalogStore(t *testing.T, newStore func(t *testing.T) storage.CatalogStore) {
	t.Helper()
	ctx := context.Background()

	entries := []domain.CatalogEntry{
		{Key: 3, Name: "SDAC BE", Timeframe: domain.TimeframeHourly, Source: "ENTSO-E", Origin: domain.OriginOriginal},
		{Key: 1, Name: "Epex DAM", Timeframe: domain.TimeframeMonthly, Source: "Engie", Origin: domain.OriginDerived},
		{Key: 2, Name: "ZTP GTND", Timeframe: domain.TimeframeDaily, Source: "EEX", Origin: domain.OriginOriginal},
	}

	t.Run("UpsertAndList", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertEntries(ctx, entries))

		got, err := store.ListEntries(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []uint64{1, 2, 3}, []uint64{got[0].Key, got[1].Key, got[2].Key})
		assert.Equal(t, entries[1], got[0])
	})

	t.Run("Idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertEntries(ctx, entries))
		require.NoError(t, store.UpsertEntries(ctx, entries))
		require.NoError(t, store.UpsertEntries(ctx, entries[:1]))

		got, err := store.ListEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("Empty", func(t *testing.T) {
		store := newStore(t)
		got, err := store.ListEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

// SampleGridTariff returns the Fluvius Antwerpen drawdown tariff used across tests.
func SampleGridTariff() *domain.GridTariff {
	return &domain.GridTariff{
		Country:                 "BE",
		Provider:                "Fluvius Antwerpen",
		Direction:               domain.DirectionDrawdown,
		PeakUsageAvgMonthlyCost: 37.7649625,
		PeakUsageKWh:            0.00908,
		DataManagementStandard:  12.63,
		DataManagementDynamic:   13.71,
		PublicServicesKWh:       0.0215095,
		SurchargesKWh:           0.0011539,
		TransmissionChargesKWh:  0.0035578,
	}
}

// SampleExciseTariff returns the Belgian excise table used across tests.
func SampleExciseTariff() *domain.ExciseTariff {
	return &domain.ExciseTariff{
		Country: "BE",
		Brackets: []domain.Bracket{
			{LowerBound: 0, Rate: 0.0425755},
			{LowerBound: 3000, Rate: 0.04748},
			{LowerBound: 20000, Rate: 0.04546},
			{LowerBound: 50000, Rate: 0.04478},
			{LowerBound: 1000000, Rate: 0.04411},
			{LowerBound: 25000000, Rate: 0.03628},
		},
		EnergyContribution: 0.0019261,
	}
}

// RunTariffStores exercises the grid and excise tariff store contracts.
func RunTariffStores(t *testing.T, grid storage.GridTariffStore, excise storage.ExciseTariffStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GridReplaceAll", func(t *testing.T) {
		first := SampleGridTariff()
		injection := SampleGridTariff()
		injection.Direction = domain.DirectionInjection
		require.NoError(t, grid.ReplaceAll(ctx, []*domain.GridTariff{first, injection}))

		got, err := grid.Get(ctx, "BE", "Fluvius Antwerpen", domain.DirectionDrawdown)
		require.NoError(t, err)
		assert.Equal(t, first, got)

		second := SampleGridTariff()
		second.Provider = "Fluvius Limburg"
		require.NoError(t, grid.ReplaceAll(ctx, []*domain.GridTariff{second}))

		_, err = grid.Get(ctx, "BE", "Fluvius Antwerpen", domain.DirectionDrawdown)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		all, err := grid.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Fluvius Limburg", all[0].Provider)
	})

	t.Run("ExciseReplaceAll", func(t *testing.T) {
		be := SampleExciseTariff()
		nl := &domain.ExciseTariff{
			Country:            "NL",
			Brackets:           []domain.Bracket{{LowerBound: 0, Rate: 0.1}, {LowerBound: 10000, Rate: 0.05}},
			EnergyContribution: 0,
		}
		require.NoError(t, excise.ReplaceAll(ctx, []*domain.ExciseTariff{nl, be}))

		got, err := excise.Get(ctx, "BE")
		require.NoError(t, err)
		assert.Equal(t, be.Country, got.Country)
		assert.InDelta(t, be.EnergyContribution, got.EnergyContribution, 1e-12)
		assert.ElementsMatch(t, be.Brackets, got.Brackets)

		all, err := excise.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "BE", all[0].Country)
		assert.Equal(t, "NL", all[1].Country)

		_, err = excise.Get(ctx, "FR")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func withOrigin(k domain.SeriesKey, o domain.Origin) domain.SeriesKey {
	k.Origin = o
	return k
}

func assertSameValue(t *testing.T, want, got *domain.IndexingValue) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.Timeframe, got.Timeframe)
	assert.Equal(t, want.Origin.OrDefault(), got.Origin)
	assert.InDelta(t, want.Value, got.Value, 1e-9)
	assert.True(t, want.Timestamp.Equal(got.Timestamp), fmt.Sprintf("timestamp %v != %v", got.Timestamp, want.Timestamp))
}
