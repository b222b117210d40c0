package api

import (
	"context"
	"fmt"
	"time"

	"energy-tariffs/internal/catalog"
	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/pricing"
	"energy-tariffs/internal/storage"
)

// Series is the read side of the time-series repository.
type Series interface {
	Get(ctx context.Context, key domain.SeriesKey, at time.Time) (*domain.IndexingValue, error)
	Catalog() *catalog.Index
}

// Service holds what the request variants are dispatched to.
type Service struct {
	Series     Series
	Pricing    *pricing.Engine
	Calculator *derivation.Calculator
	Location   *time.Location
}

// IndexValue is the response body of a stored value.
type IndexValue struct {
	Name      string           `json:"NAME"`
	Value     float64          `json:"VALUE"`
	Timeframe domain.Timeframe `json:"TIMEFRAME"`
	Date      time.Time        `json:"DATE"`
	Source    string           `json:"SOURCE"`
	Origin    domain.Origin    `json:"ORIGIN"`
}

// EndPrice is the response body of /endprice.
type EndPrice struct {
	EndPrice      float64    `json:"END_PRICE"`
	Index         IndexValue `json:"INDEX"`
	GridPerUnit   float64    `json:"GRID_PER_UNIT"`
	ExcisePerUnit float64    `json:"EXCISE_PER_UNIT"`
}

// GridCost is the response body of /gridcost.
type GridCost struct {
	Country  string  `json:"COUNTRY"`
	Provider string  `json:"PROVIDER"`
	GridCost float64 `json:"GRID_COST"`
}

// Excise is the response body of /excise.
type Excise struct {
	Country    string  `json:"COUNTRY"`
	Energy     float64 `json:"ENERGY"`
	ExciseCost float64 `json:"EXCISE_COST"`
}

// Derived is the response body of /derive.
type Derived struct {
	CalculationDate string       `json:"CALCULATION_DATE"`
	Values          []IndexValue `json:"VALUES"`
}

func indexValue(v *domain.IndexingValue, loc *time.Location) IndexValue {
	return IndexValue{
		Name:      v.Name,
		Value:     v.Value,
		Timeframe: v.Timeframe,
		Date:      v.Timestamp.In(loc),
		Source:    v.Source,
		Origin:    v.Origin.OrDefault(),
	}
}

func endPrice(p *pricing.EndPrice, loc *time.Location) EndPrice {
	return EndPrice{
		EndPrice:      p.Price,
		Index:         indexValue(p.Index, loc),
		GridPerUnit:   p.GridPerUnit,
		ExcisePerUnit: p.ExcisePerUnit,
	}
}

// Dispatch executes req and returns its response body.
func (s *Service) Dispatch(ctx context.Context, req Request) (any, error) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}

	switch r := req.(type) {
	case IndexingSettingRequest:
		v, err := s.Series.Get(ctx, r.Key, r.At)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("%s at %s: %w", r.Key, r.At.Format(time.RFC3339), storage.ErrNotFound)
		}
		return indexValue(v, loc), nil

	case EndPriceRequest:
		p, err := s.Pricing.ComputeEndPrice(ctx, r.EndPriceRequest)
		if err != nil {
			return nil, err
		}
		return endPrice(p, loc), nil

	case EndPricesRequest:
		prices, err := s.Pricing.ComputeEndPrices(ctx, r.Requests)
		if err != nil {
			return nil, err
		}
		out := make(map[string]EndPrice, len(prices))
		for name, p := range prices {
			out[name] = endPrice(p, loc)
		}
		return out, nil

	case GridCostRequest:
		cost, err := s.Pricing.GridCost(ctx, r.GridParams)
		if err != nil {
			return nil, err
		}
		return GridCost{Country: r.Country, Provider: r.Provider, GridCost: cost}, nil

	case ExciseRequest:
		cost, err := s.Pricing.Excise(ctx, r.ExciseParams)
		if err != nil {
			return nil, err
		}
		return Excise{Country: r.Country, Energy: r.Energy, ExciseCost: cost}, nil

	case DeriveRequest:
		values, err := s.Calculator.Run(ctx, r.CalculationDate.In(loc))
		if err != nil {
			return nil, err
		}
		out := Derived{
			CalculationDate: r.CalculationDate.In(loc).Format(time.DateOnly),
			Values:          make([]IndexValue, 0, len(values)),
		}
		for _, v := range values {
			out.Values = append(out.Values, indexValue(v, loc))
		}
		return out, nil

	case ListRequest:
		ix := s.Series.Catalog()
		if ix == nil {
			if r.ID != "" {
				return nil, fmt.Errorf("catalog id %s: %w", r.ID, storage.ErrNotFound)
			}
			return []catalog.Entry{}, nil
		}
		if r.ID != "" {
			return ix.Lookup(ctx, r.ID)
		}
		entries, err := ix.List(ctx)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return entries, nil
	}
	return nil, fmt.Errorf("unhandled request %T", req)
}
