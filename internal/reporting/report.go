// Package reporting renders monthly index statements.
package reporting

import (
	"time"

	"energy-tariffs/internal/domain"
)

// Report is the statement of one month's index values.
type Report struct {
	GeneratedAt time.Time
	Month       string // YYYY-MM
	Location    string

	// Series counts every catalogued series by origin.
	Series SeriesSummary

	// Values holds the monthly value of every monthly series, sorted like
	// the catalog.
	Values []ValueRow

	// Missing lists the monthly series without a value for the month.
	Missing []string
}

// SeriesSummary counts catalogued series.
type SeriesSummary struct {
	Total    int
	Original int
	Derived  int
}

// ValueRow is one monthly index value.
type ValueRow struct {
	Name   string
	Source string
	Origin domain.Origin
	Date   time.Time
	Value  float64
}

// Complete reports whether every monthly series has a value.
func (r *Report) Complete() bool {
	return len(r.Missing) == 0
}
