// Package api decodes tariff requests, dispatches them to the core packages
// and serves them over HTTP.
package api

import (
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/pricing"
)

// Request is one of the request variants below. The set is closed.
type Request interface {
	route() string
}

// IndexingSettingRequest looks up one stored index value.
type IndexingSettingRequest struct {
	Key domain.SeriesKey
	At  time.Time
}

// EndPriceRequest computes one end price.
type EndPriceRequest struct {
	pricing.EndPriceRequest
}

// EndPricesRequest computes up to pricing.MaxBatch named end prices.
type EndPricesRequest struct {
	Requests map[string]pricing.EndPriceRequest
}

// GridCostRequest computes a yearly grid cost.
type GridCostRequest struct {
	pricing.GridParams
}

// ExciseRequest computes an excise cost.
type ExciseRequest struct {
	pricing.ExciseParams
}

// DeriveRequest runs the derived-value calculator for a calculation date.
type DeriveRequest struct {
	CalculationDate time.Time
}

// ListRequest lists the catalog, or returns the single entry with ID.
type ListRequest struct {
	ID string
}

// Routes served by the Handler.
const (
	RouteIndexingSetting = "indexingsetting"
	RouteEndPrice        = "endprice"
	RouteEndPrices       = "endprices"
	RouteGridCost        = "gridcost"
	RouteExcise          = "excise"
	RouteDerive          = "derive"
	RouteList            = "list"
)

func (IndexingSettingRequest) route() string { return RouteIndexingSetting }
func (EndPriceRequest) route() string        { return RouteEndPrice }
func (EndPricesRequest) route() string       { return RouteEndPrices }
func (GridCostRequest) route() string        { return RouteGridCost }
func (ExciseRequest) route() string          { return RouteExcise }
func (DeriveRequest) route() string          { return RouteDerive }
func (ListRequest) route() string            { return RouteList }
