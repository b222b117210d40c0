package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"energy-tariffs/internal/catalog"
	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
)

// Series reads index values and the catalog.
type Series interface {
	Get(ctx context.Context, key domain.SeriesKey, at time.Time) (*domain.IndexingValue, error)
	Catalog() *catalog.Index
}

// Generator produces reports from stored data.
type Generator struct {
	series Series
	loc    *time.Location
	now    func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator. Months are cut in loc.
func NewGenerator(series Series, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{
		series: series,
		loc:    loc,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report of month.
func (g *Generator) Generate(ctx context.Context, month derivation.Month) (*Report, error) {
	ix := g.series.Catalog()
	if ix == nil {
		return nil, errors.New("reporting: series has no catalog")
	}
	entries, err := ix.List(ctx)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt: g.now(),
		Month:       month.String(),
		Location:    g.loc.String(),
	}
	at := month.Start(g.loc)
	for _, e := range entries {
		r.Series.Total++
		if e.Origin == domain.OriginDerived {
			r.Series.Derived++
		} else {
			r.Series.Original++
		}
		if e.Timeframe != domain.TimeframeMonthly {
			continue
		}

		key := domain.SeriesKey{Source: e.Source, Origin: e.Origin, Timeframe: e.Timeframe, Name: e.Name}
		v, err := g.series.Get(ctx, key, at)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && v == nil) {
			r.Missing = append(r.Missing, key.String())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		r.Values = append(r.Values, ValueRow{
			Name:   v.Name,
			Source: v.Source,
			Origin: v.Origin.OrDefault(),
			Date:   v.Timestamp.In(g.loc),
			Value:  v.Value,
		})
	}
	return r, nil
}
