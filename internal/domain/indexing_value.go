package domain

import (
	"fmt"
	"time"
)

// Timeframe is the granularity of an observation.
type Timeframe string

const (
	TimeframeHourly  Timeframe = "HOURLY"
	TimeframeDaily   Timeframe = "DAILY"
	TimeframeMonthly Timeframe = "MONTHLY"
)

// String returns the string representation of Timeframe.
func (t Timeframe) String() string {
	return string(t)
}

// IsValid checks if the timeframe is a valid value.
func (t Timeframe) IsValid() bool {
	return t == TimeframeHourly || t == TimeframeDaily || t == TimeframeMonthly
}

// Origin tells whether a value was ingested verbatim or computed from other values.
type Origin string

const (
	OriginOriginal Origin = "ORIGINAL"
	OriginDerived  Origin = "DERIVED"
)

// String returns the string representation of Origin.
func (o Origin) String() string {
	return string(o)
}

// IsValid checks if the origin is a valid value.
func (o Origin) IsValid() bool {
	return o == OriginOriginal || o == OriginDerived
}

// OrDefault returns OriginOriginal for the empty origin.
func (o Origin) OrDefault() Origin {
	if o == "" {
		return OriginOriginal
	}
	return o
}

// IndexingValue is one observation of an energy-price index.
// Identity: (source, origin, timeframe, name, timestamp).
type IndexingValue struct {
	Name      string    // index name, e.g. "SDAC BE"
	Value     float64   // observed or derived value
	Timeframe Timeframe // HOURLY, DAILY or MONTHLY
	Timestamp time.Time // instant the value applies to
	Source    string    // provenance, e.g. "ENTSO-E"
	Origin    Origin    // ORIGINAL or DERIVED
}

// Key returns the series this value belongs to.
func (v *IndexingValue) Key() SeriesKey {
	return SeriesKey{
		Source:    v.Source,
		Origin:    v.Origin.OrDefault(),
		Timeframe: v.Timeframe,
		Name:      v.Name,
	}
}

// SortKey returns the UTC epoch seconds of the value timestamp.
func (v *IndexingValue) SortKey() int64 {
	return SortKey(v.Timestamp)
}

// SeriesKey identifies one logical series of observations.
type SeriesKey struct {
	Source    string
	Origin    Origin
	Timeframe Timeframe
	Name      string
}

// PartitionKey returns source#origin#timeframe#name.
func (k SeriesKey) PartitionKey() string {
	return fmt.Sprintf("%s#%s#%s#%s", k.Source, k.Origin.OrDefault(), k.Timeframe, k.Name)
}

// Normalize fills in the default origin.
func (k SeriesKey) Normalize() SeriesKey {
	k.Origin = k.Origin.OrDefault()
	return k
}

// Validate checks that the key names a complete series.
func (k SeriesKey) Validate() error {
	switch {
	case k.Source == "":
		return fmt.Errorf("source is required")
	case k.Name == "":
		return fmt.Errorf("name is required")
	case !k.Timeframe.IsValid():
		return fmt.Errorf("invalid timeframe %q", k.Timeframe)
	case !k.Origin.OrDefault().IsValid():
		return fmt.Errorf("invalid origin %q", k.Origin)
	}
	return nil
}

func (k SeriesKey) String() string {
	return k.PartitionKey()
}

// SortKey converts an instant to integer seconds since epoch (UTC).
func SortKey(t time.Time) int64 {
	return t.UTC().Unix()
}

// FromSortKey converts epoch seconds back to a UTC instant.
func FromSortKey(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
