// Package tariff implements the graduated excise and grid cost formulas.
package tariff

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"energy-tariffs/internal/domain"
)

// Graduate sums usage over marginal-rate brackets. Each bracket runs from its
// lower bound to the next one; the last is unbounded.
func Graduate(brackets []domain.Bracket, usage float64) (float64, error) {
	if math.IsNaN(usage) || math.IsInf(usage, 0) {
		return 0, &InvalidInputError{Field: "usage", Reason: "not a finite number"}
	}

	sorted := make([]domain.Bracket, len(brackets))
	copy(sorted, brackets)
	for i, b := range sorted {
		if math.IsNaN(b.LowerBound) || math.IsInf(b.LowerBound, 0) {
			return 0, &InvalidInputError{Field: fmt.Sprintf("brackets[%d].lower_bound", i), Reason: "not a finite number"}
		}
		if math.IsNaN(b.Rate) || math.IsInf(b.Rate, 0) {
			return 0, &InvalidInputError{Field: fmt.Sprintf("brackets[%d].rate", i), Reason: "not a finite number"}
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LowerBound < sorted[j].LowerBound
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].LowerBound == sorted[i-1].LowerBound {
			return 0, &InvalidInputError{
				Field:  "brackets",
				Reason: fmt.Sprintf("duplicate lower bound %v", sorted[i].LowerBound),
			}
		}
	}

	total := 0.0
	for i, b := range sorted {
		hi := math.Inf(1)
		if i+1 < len(sorted) {
			hi = sorted[i+1].LowerBound
		}
		slice := math.Max(math.Min(usage, hi)-b.LowerBound, 0)
		total += float64(slice * b.Rate)
	}
	return total, nil
}

// Excise computes the yearly excise for usage: the graduated amount plus the
// flat energy contribution, rounded to 3 decimals.
func Excise(t domain.ExciseTariff, usage float64) (float64, error) {
	graduated, err := Graduate(t.Brackets, usage)
	if err != nil {
		return 0, fmt.Errorf("excise %s: %w", t.Country, err)
	}
	contribution := float64(usage * t.EnergyContribution)
	return round(graduated+contribution, 3), nil
}

// round rounds half away from zero on the shortest decimal form of v.
func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Round2 rounds v to 2 decimals the same way tariffs round to 3.
func Round2(v float64) float64 {
	return round(v, 2)
}
