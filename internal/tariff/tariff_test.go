package tariff

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage"
	"energy-tariffs/internal/storage/storagetest"
)

func TestGraduate(t *testing.T) {
	brackets := storagetest.SampleExciseTariff().Brackets

	got, err := Graduate(brackets, 5000)
	require.NoError(t, err)
	assert.Equal(t, 222.6865, round(got, 4))

	zero, err := Graduate(brackets, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)
}

func TestGraduate_OrderIndependent(t *testing.T) {
	brackets := storagetest.SampleExciseTariff().Brackets
	reversed := make([]domain.Bracket, len(brackets))
	for i, b := range brackets {
		reversed[len(brackets)-1-i] = b
	}

	a, err := Graduate(brackets, 123456)
	require.NoError(t, err)
	b, err := Graduate(reversed, 123456)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	// Input is not reordered in place.
	assert.Equal(t, 25000000.0, reversed[0].LowerBound)
}

func TestGraduate_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		brackets []domain.Bracket
		usage    float64
		field    string
	}{
		{
			name:     "duplicate lower bound",
			brackets: []domain.Bracket{{LowerBound: 0, Rate: 0.1}, {LowerBound: 0, Rate: 0.2}},
			usage:    10,
			field:    "brackets",
		},
		{
			name:     "non-finite rate",
			brackets: []domain.Bracket{{LowerBound: 0, Rate: math.NaN()}},
			usage:    10,
			field:    "brackets[0].rate",
		},
		{
			name:     "infinite bound",
			brackets: []domain.Bracket{{LowerBound: 0, Rate: 0.1}, {LowerBound: math.Inf(1), Rate: 0.2}},
			usage:    10,
			field:    "brackets[1].lower_bound",
		},
		{
			name:     "non-finite usage",
			brackets: []domain.Bracket{{LowerBound: 0, Rate: 0.1}},
			usage:    math.Inf(1),
			field:    "usage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Graduate(tt.brackets, tt.usage)
			require.Error(t, err)
			assert.ErrorIs(t, err, storage.ErrInvalidInput)

			var inv *InvalidInputError
			require.True(t, errors.As(err, &inv))
			assert.Equal(t, tt.field, inv.Field)
		})
	}
}

func TestExcise(t *testing.T) {
	be := *storagetest.SampleExciseTariff()

	tests := []struct {
		usage float64
		want  float64
	}{
		{usage: 5000, want: 232.317},
		{usage: 10000, want: 479.348},
		{usage: 0, want: 0},
	}
	for _, tt := range tests {
		got, err := Excise(be, tt.usage)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "usage %v", tt.usage)
	}
}

func TestGridCost(t *testing.T) {
	grid := *storagetest.SampleGridTariff()

	tests := []struct {
		peak, energy float64
		dynamic      bool
		want         float64
	}{
		{peak: 3, energy: 5000, dynamic: true, want: 303.511},
		{peak: 3, energy: 5000, dynamic: false, want: 302.431},
		{peak: 5, energy: 2000, dynamic: true, want: 273.137},
		{peak: 5, energy: 2000, dynamic: false, want: 272.057},
	}
	for _, tt := range tests {
		got, err := GridCost(grid, tt.peak, tt.energy, tt.dynamic)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestGridCost_NotImplemented(t *testing.T) {
	fr := *storagetest.SampleGridTariff()
	fr.Country = "FR"
	_, err := GridCost(fr, 3, 5000, true)
	assert.ErrorIs(t, err, ErrNotImplemented)

	var ni *NotImplementedError
	require.True(t, errors.As(err, &ni))
	assert.Equal(t, "FR", ni.Country)
	assert.Equal(t, domain.DirectionDrawdown, ni.Direction)

	injection := *storagetest.SampleGridTariff()
	injection.Direction = domain.DirectionInjection
	_, err = GridCost(injection, 3, 5000, true)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Contains(t, err.Error(), "INJECTION")
}
