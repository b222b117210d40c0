// Package pricing combines a stored index value with grid and excise costs
// into a customer end price.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/storage"
	"energy-tariffs/internal/tariff"
)

var (
	// ErrIndexNotFound is returned when the base index value is missing.
	ErrIndexNotFound = errors.New("index value not found")

	// ErrTariffNotFound is returned when no grid or excise tariff matches.
	ErrTariffNotFound = errors.New("tariff not found")

	// ErrTooManyRequests is returned when a batch exceeds MaxBatch.
	ErrTooManyRequests = errors.New("too many requests")
)

// MaxBatch bounds ComputeEndPrices.
const MaxBatch = 5

// IndexReader looks up a single index value. A miss returns (nil, nil) or
// storage.ErrNotFound.
type IndexReader interface {
	Get(ctx context.Context, key domain.SeriesKey, at time.Time) (*domain.IndexingValue, error)
}

// GridParams selects a grid tariff and the consumption it is applied to.
type GridParams struct {
	Country   string
	Provider  string
	Direction domain.Direction // empty means DRAWDOWN
	Power     float64          // peak kW
	Energy    float64          // kWh
	Dynamic   bool
}

// ExciseParams selects an excise tariff and the consumption it is applied to.
type ExciseParams struct {
	Country string
	Energy  float64 // kWh
}

// EndPriceRequest describes one end price.
type EndPriceRequest struct {
	Index         domain.SeriesKey
	At            time.Time
	Intercept     float64
	Slope         float64
	TaxMultiplier float64
	Grid          *GridParams
	Excise        *ExciseParams
}

// EndPrice is the computed price with its components.
type EndPrice struct {
	Index         *domain.IndexingValue
	GridPerUnit   float64
	ExcisePerUnit float64
	Price         float64
}

// Engine computes prices from the time series and the tariff stores.
type Engine struct {
	index  IndexReader
	grid   storage.GridTariffStore
	excise storage.ExciseTariffStore
	logger *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(index IndexReader, grid storage.GridTariffStore, excise storage.ExciseTariffStore, logger *zap.Logger) *Engine {
	return &Engine{
		index:  index,
		grid:   grid,
		excise: excise,
		logger: logging.OrNop(logger),
	}
}

// ComputeEndPrice returns (intercept + slope*index + grid/energy + excise/energy) * taxMultiplier.
// Any failing component fails the whole price.
func (e *Engine) ComputeEndPrice(ctx context.Context, req EndPriceRequest) (*EndPrice, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	idx, err := e.index.Get(ctx, req.Index, req.At)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get index %s: %w", req.Index, err)
	}
	if idx == nil {
		return nil, fmt.Errorf("%s at %s: %w", req.Index, req.At.Format(time.RFC3339), ErrIndexNotFound)
	}

	out := &EndPrice{Index: idx}
	if req.Grid != nil {
		cost, err := e.GridCost(ctx, *req.Grid)
		if err != nil {
			return nil, err
		}
		out.GridPerUnit = cost / req.Grid.Energy
	}
	if req.Excise != nil {
		cost, err := e.Excise(ctx, *req.Excise)
		if err != nil {
			return nil, err
		}
		out.ExcisePerUnit = cost / req.Excise.Energy
	}

	base := req.Intercept + float64(req.Slope*idx.Value)
	out.Price = float64((base + out.GridPerUnit + out.ExcisePerUnit) * req.TaxMultiplier)
	return out, nil
}

// ComputeEndPrices computes up to MaxBatch prices concurrently. Either every
// price is returned or none.
func (e *Engine) ComputeEndPrices(ctx context.Context, reqs map[string]EndPriceRequest) (map[string]*EndPrice, error) {
	if len(reqs) == 0 {
		return nil, &tariff.InvalidInputError{Field: "requests", Reason: "at least one request is required"}
	}
	if len(reqs) > MaxBatch {
		return nil, fmt.Errorf("%d requests, at most %d: %w", len(reqs), MaxBatch, ErrTooManyRequests)
	}

	keys := make([]string, 0, len(reqs))
	for k := range reqs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		mu  sync.Mutex
		out = make(map[string]*EndPrice, len(reqs))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		req := reqs[key]
		g.Go(func() error {
			p, err := e.ComputeEndPrice(gctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			mu.Lock()
			out[key] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GridCost returns the yearly grid cost for the given consumption.
func (e *Engine) GridCost(ctx context.Context, p GridParams) (float64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}
	direction := p.Direction
	if direction == "" {
		direction = domain.DirectionDrawdown
	}

	t, err := e.grid.Get(ctx, p.Country, p.Provider, direction)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("grid %s/%s/%s: %w", p.Country, p.Provider, direction, ErrTariffNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get grid tariff: %w", err)
	}

	cost, err := tariff.GridCost(*t, p.Power, p.Energy, p.Dynamic)
	if err != nil {
		return 0, fmt.Errorf("grid cost: %w", err)
	}
	e.logger.Debug("grid cost",
		zap.String("country", p.Country),
		zap.String("provider", p.Provider),
		zap.Float64("cost", cost),
	)
	return cost, nil
}

// Excise returns the excise cost for the given consumption.
func (e *Engine) Excise(ctx context.Context, p ExciseParams) (float64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}

	t, err := e.excise.Get(ctx, p.Country)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("excise %s: %w", p.Country, ErrTariffNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get excise tariff: %w", err)
	}

	cost, err := tariff.Excise(*t, p.Energy)
	if err != nil {
		return 0, fmt.Errorf("excise: %w", err)
	}
	return cost, nil
}

func (r EndPriceRequest) validate() error {
	if err := r.Index.Validate(); err != nil {
		return &tariff.InvalidInputError{Field: "index", Reason: err.Error()}
	}
	if r.At.IsZero() {
		return &tariff.InvalidInputError{Field: "at", Reason: "timestamp is required"}
	}
	for field, v := range map[string]float64{
		"intercept": r.Intercept,
		"slope":     r.Slope,
		"taxes":     r.TaxMultiplier,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &tariff.InvalidInputError{Field: field, Reason: "must be finite"}
		}
	}
	if r.Grid != nil {
		if err := perUnitEnergy("grid.energy", r.Grid.Energy); err != nil {
			return err
		}
	}
	if r.Excise != nil {
		if err := perUnitEnergy("excise.energy", r.Excise.Energy); err != nil {
			return err
		}
	}
	return nil
}

func (p GridParams) validate() error {
	switch {
	case p.Country == "":
		return &tariff.InvalidInputError{Field: "country", Reason: "is required"}
	case p.Provider == "":
		return &tariff.InvalidInputError{Field: "provider", Reason: "is required"}
	case p.Direction != "" && !p.Direction.IsValid():
		return &tariff.InvalidInputError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", p.Direction)}
	}
	return validEnergy(p.Energy)
}

func (p ExciseParams) validate() error {
	if p.Country == "" {
		return &tariff.InvalidInputError{Field: "country", Reason: "is required"}
	}
	return validEnergy(p.Energy)
}

// validEnergy accepts zero usage, which costs nothing.
func validEnergy(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &tariff.InvalidInputError{Field: "energy", Reason: "must be a non-negative number"}
	}
	return nil
}

// perUnitEnergy guards the division of a yearly cost into a per-kWh share.
func perUnitEnergy(field string, v float64) error {
	if v <= 0 {
		return &tariff.InvalidInputError{Field: field, Reason: "must be positive"}
	}
	return nil
}
