package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"energy-tariffs/internal/domain"
)

// ComputeCatalogKey computes the deterministic catalog key of a series.
// Formula: SHA256(name|timeframe|source|origin), last 8 bytes as big-endian uint64.
// The origin is normalised first so "" and ORIGINAL hash identically.
func ComputeCatalogKey(name string, timeframe domain.Timeframe, source string, origin domain.Origin) uint64 {
	data := fmt.Sprintf("%s|%s|%s|%s",
		name,
		string(timeframe),
		source,
		string(origin.OrDefault()),
	)

	hash := sha256.Sum256([]byte(data))
	return binary.BigEndian.Uint64(hash[len(hash)-8:])
}

// CatalogKeyFor computes the catalog key of a series key.
func CatalogKeyFor(k domain.SeriesKey) uint64 {
	return ComputeCatalogKey(k.Name, k.Timeframe, k.Source, k.Origin)
}

// CatalogID returns the printable base58 form of a catalog key.
func CatalogID(key uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	return base58.Encode(buf[:])
}

// ParseCatalogID reverses CatalogID.
func ParseCatalogID(id string) (uint64, error) {
	raw, err := base58.Decode(id)
	if err != nil {
		return 0, fmt.Errorf("decode catalog id: %w", err)
	}
	if len(raw) > 8 {
		return 0, fmt.Errorf("catalog id %q too long", id)
	}
	var buf [8]byte
	copy(buf[8-len(raw):], raw)
	return binary.BigEndian.Uint64(buf[:]), nil
}
