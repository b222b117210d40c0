package idhash

import (
	"testing"

	"energy-tariffs/internal/domain"
)

func TestComputeCatalogKey(t *testing.T) {
	tests := []struct {
		name      string
		index     string
		timeframe domain.Timeframe
		source    string
		origin    domain.Origin
	}{
		{
			name:      "hourly original",
			index:     "SDAC BE",
			timeframe: domain.TimeframeHourly,
			source:    "ENTSO-E",
			origin:    domain.OriginOriginal,
		},
		{
			name:      "monthly derived",
			index:     "Epex DAM",
			timeframe: domain.TimeframeMonthly,
			source:    "Engie",
			origin:    domain.OriginDerived,
		},
		{
			name:      "daily weekend series",
			index:     "ZTP GTWE",
			timeframe: domain.TimeframeDaily,
			source:    "EEX",
			origin:    domain.OriginOriginal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCatalogKey(tt.index, tt.timeframe, tt.source, tt.origin)

			// Verify determinism: same inputs should produce same output
			got2 := ComputeCatalogKey(tt.index, tt.timeframe, tt.source, tt.origin)
			if got != got2 {
				t.Errorf("ComputeCatalogKey() not deterministic: %d != %d", got, got2)
			}

			id := CatalogID(got)
			back, err := ParseCatalogID(id)
			if err != nil {
				t.Fatalf("ParseCatalogID(%q) error: %v", id, err)
			}
			if back != got {
				t.Errorf("ParseCatalogID(CatalogID(%d)) = %d", got, back)
			}
		})
	}
}

func TestComputeCatalogKey_DefaultOrigin(t *testing.T) {
	explicit := ComputeCatalogKey("SDAC BE", domain.TimeframeHourly, "ENTSO-E", domain.OriginOriginal)
	implicit := ComputeCatalogKey("SDAC BE", domain.TimeframeHourly, "ENTSO-E", "")

	if explicit != implicit {
		t.Errorf("empty origin should hash as ORIGINAL: %d != %d", implicit, explicit)
	}
}

func TestComputeCatalogKey_DifferentInputs(t *testing.T) {
	base := ComputeCatalogKey("SDAC BE", domain.TimeframeHourly, "ENTSO-E", domain.OriginOriginal)

	variants := map[string]uint64{
		"name":      ComputeCatalogKey("SDAC NL", domain.TimeframeHourly, "ENTSO-E", domain.OriginOriginal),
		"timeframe": ComputeCatalogKey("SDAC BE", domain.TimeframeDaily, "ENTSO-E", domain.OriginOriginal),
		"source":    ComputeCatalogKey("SDAC BE", domain.TimeframeHourly, "EEX", domain.OriginOriginal),
		"origin":    ComputeCatalogKey("SDAC BE", domain.TimeframeHourly, "ENTSO-E", domain.OriginDerived),
	}

	for field, key := range variants {
		if key == base {
			t.Errorf("changing %s should change the key", field)
		}
	}
}
