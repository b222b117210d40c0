// Package catalog maintains the documentation index: one row per distinct
// series that has ever been written.
package catalog

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/idhash"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/observability"
	"energy-tariffs/internal/storage"
)

// DefaultCacheSize is the number of series keys remembered as already indexed.
const DefaultCacheSize = 4096

// Entry is a catalog row with its printable ID.
type Entry struct {
	ID        string           `json:"ID"`
	Name      string           `json:"NAME"`
	Timeframe domain.Timeframe `json:"TIMEFRAME"`
	Source    string           `json:"SOURCE"`
	Origin    domain.Origin    `json:"ORIGIN"`
}

// Index records series in a CatalogStore.
type Index struct {
	store  storage.CatalogStore
	seen   *lru.Cache[uint64, struct{}]
	logger *zap.Logger
}

// NewIndex creates an Index. cacheSize <= 0 uses DefaultCacheSize.
func NewIndex(store storage.CatalogStore, cacheSize int, logger *zap.Logger) (*Index, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	seen, err := lru.New[uint64, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create catalog cache: %w", err)
	}
	return &Index{store: store, seen: seen, logger: logging.OrNop(logger)}, nil
}

// Record upserts a catalog entry for every series of values not yet seen by
// this process. Keys are only cached after the store accepted them.
func (ix *Index) Record(ctx context.Context, values []*domain.IndexingValue) error {
	var pending []domain.CatalogEntry
	batch := make(map[uint64]struct{})

	for _, v := range values {
		if v == nil {
			continue
		}
		entry := domain.CatalogEntryFor(v.Key())
		entry.Key = idhash.CatalogKeyFor(v.Key())
		if _, dup := batch[entry.Key]; dup {
			continue
		}
		batch[entry.Key] = struct{}{}
		if ix.seen.Contains(entry.Key) {
			observability.RecordCatalogCacheHit()
			continue
		}
		pending = append(pending, entry)
	}
	if len(pending) == 0 {
		return nil
	}

	if err := ix.store.UpsertEntries(ctx, pending); err != nil {
		return fmt.Errorf("upsert catalog entries: %w", err)
	}
	for _, e := range pending {
		ix.seen.Add(e.Key, struct{}{})
	}
	observability.RecordCatalogWrites(len(pending))
	ix.logger.Debug("catalog entries recorded", zap.Int("count", len(pending)))
	return nil
}

// List returns every catalog entry sorted by (source, name, timeframe, origin).
func (ix *Index) List(ctx context.Context) ([]Entry, error) {
	rows, err := ix.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			ID:        idhash.CatalogID(r.Key),
			Name:      r.Name,
			Timeframe: r.Timeframe,
			Source:    r.Source,
			Origin:    r.Origin.OrDefault(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Timeframe != b.Timeframe {
			return a.Timeframe < b.Timeframe
		}
		return a.Origin < b.Origin
	})
	return entries, nil
}

// Lookup returns the entry with the printable id produced by List.
func (ix *Index) Lookup(ctx context.Context, id string) (Entry, error) {
	key, err := idhash.ParseCatalogID(id)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", storage.ErrInvalidInput, err)
	}
	entries, err := ix.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	want := idhash.CatalogID(key)
	for _, e := range entries {
		if e.ID == want {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("catalog id %s: %w", id, storage.ErrNotFound)
}

// Forget drops the seen-cache so the next Record rewrites every entry.
func (ix *Index) Forget() {
	ix.seen.Purge()
}
