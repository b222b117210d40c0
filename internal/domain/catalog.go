package domain

// CatalogPartition is the fixed partition holding all catalog rows.
const CatalogPartition = "indexingsettingdoc"

// CatalogEntry records that a series exists. It holds no values.
type CatalogEntry struct {
	Key       uint64 // stable hash of (name, timeframe, source, origin)
	Name      string
	Timeframe Timeframe
	Source    string
	Origin    Origin
}

// CatalogEntryFor returns the catalog entry for a series. Key is left to the caller.
func CatalogEntryFor(k SeriesKey) CatalogEntry {
	k = k.Normalize()
	return CatalogEntry{
		Name:      k.Name,
		Timeframe: k.Timeframe,
		Source:    k.Source,
		Origin:    k.Origin,
	}
}

// SeriesKey returns the series this entry describes.
func (e CatalogEntry) SeriesKey() SeriesKey {
	return SeriesKey{Source: e.Source, Origin: e.Origin, Timeframe: e.Timeframe, Name: e.Name}
}
