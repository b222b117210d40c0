package storage

import (
	"context"
	"time"

	"energy-tariffs/internal/domain"
)

// ValueStore provides access to indexing value storage.
// Rows are keyed by (partition_key, sort_key) where partition_key is
// source#origin#timeframe#name and sort_key is UTC epoch seconds.
type ValueStore interface {
	// Put upserts one value. Re-saving the same identity overwrites.
	// Returns ErrInvalidInput if the value fails validation.
	Put(ctx context.Context, v *domain.IndexingValue) error

	// PutBatch upserts multiple values. Items the store could not confirm are
	// returned as unprocessed; callers resubmit only those. A non-nil error
	// wrapping ErrInvalidInput means nothing was written.
	PutBatch(ctx context.Context, values []*domain.IndexingValue) ([]*domain.IndexingValue, error)

	// Get retrieves the value of a series at an exact instant. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key domain.SeriesKey, at time.Time) (*domain.IndexingValue, error)

	// Query retrieves values of a series within [start, end), ordered by timestamp ASC.
	// Nil bounds are open.
	Query(ctx context.Context, key domain.SeriesKey, r domain.TimeRange) ([]*domain.IndexingValue, error)
}

// CatalogStore provides access to the documentation index partition.
type CatalogStore interface {
	// UpsertEntries writes catalog rows keyed by entry.Key. Idempotent.
	UpsertEntries(ctx context.Context, entries []domain.CatalogEntry) error

	// ListEntries scans the catalog partition, ordered by key ASC.
	ListEntries(ctx context.Context) ([]domain.CatalogEntry, error)
}

// GridTariffStore provides access to grid tariff reference data.
type GridTariffStore interface {
	// ReplaceAll atomically replaces every stored grid tariff.
	ReplaceAll(ctx context.Context, tariffs []*domain.GridTariff) error

	// Get retrieves one tariff. Returns ErrNotFound if not exists.
	Get(ctx context.Context, country, provider string, direction domain.Direction) (*domain.GridTariff, error)

	// List retrieves all tariffs ordered by (country, provider, direction).
	List(ctx context.Context) ([]*domain.GridTariff, error)
}

// ExciseTariffStore provides access to excise tariff reference data.
type ExciseTariffStore interface {
	// ReplaceAll atomically replaces every stored excise tariff.
	ReplaceAll(ctx context.Context, tariffs []*domain.ExciseTariff) error

	// Get retrieves the tariff of a country. Returns ErrNotFound if not exists.
	Get(ctx context.Context, country string) (*domain.ExciseTariff, error)

	// List retrieves all tariffs ordered by country.
	List(ctx context.Context) ([]*domain.ExciseTariff, error)
}
