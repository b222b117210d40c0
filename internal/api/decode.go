package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/pricing"
	"energy-tariffs/internal/tariff"
)

type indexBody struct {
	Index     *string `json:"INDEX"`
	Source    *string `json:"SOURCE"`
	Year      *int    `json:"YEAR"`
	Month     *int    `json:"MONTH"`
	Date      *string `json:"DATE"`
	Timeframe *string `json:"TIMEFRAME"`
	Origin    *string `json:"ORIGIN"`
}

type gridBody struct {
	Country   *string  `json:"COUNTRY"`
	Provider  *string  `json:"PROVIDER"`
	Direction *string  `json:"DIRECTION"`
	Power     *float64 `json:"POWER"`
	Energy    *float64 `json:"ENERGY"`
	Dynamic   *bool    `json:"DYNAMIC"`
}

type exciseBody struct {
	Country *string  `json:"COUNTRY"`
	Energy  *float64 `json:"ENERGY"`
}

type endPriceBody struct {
	indexBody
	Intercept *float64    `json:"INTERCEPT"`
	Slope     *float64    `json:"SLOPE"`
	Taxes     *float64    `json:"TAXES"`
	Grid      *gridBody   `json:"GRID"`
	Excise    *exciseBody `json:"EXCISE"`
}

type listBody struct {
	ID *string `json:"ID"`
}

type deriveBody struct {
	CalculationDate *string `json:"CALCULATION_DATE"`
}

// Layouts accepted for zone-less dates; they are read in the operating zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Decode parses the body of route into a Request. Timestamps without a zone
// are read in loc. Every decoding failure matches storage.ErrInvalidInput.
func Decode(route string, body []byte, loc *time.Location) (Request, error) {
	switch route {
	case RouteList:
		var b listBody
		if err := unmarshal(body, &b); err != nil {
			return nil, err
		}
		if b.ID == nil {
			return ListRequest{}, nil
		}
		id := strings.TrimSpace(*b.ID)
		if id == "" {
			return nil, missing("ID")
		}
		return ListRequest{ID: id}, nil

	case RouteIndexingSetting:
		var b indexBody
		if err := unmarshal(body, &b); err != nil {
			return nil, err
		}
		key, at, err := b.resolve(loc)
		if err != nil {
			return nil, err
		}
		return IndexingSettingRequest{Key: key, At: at}, nil

	case RouteEndPrice:
		req, err := decodeEndPrice(body, loc)
		if err != nil {
			return nil, err
		}
		return EndPriceRequest{EndPriceRequest: req}, nil

	case RouteEndPrices:
		var raw map[string]json.RawMessage
		if err := unmarshal(body, &raw); err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, &tariff.InvalidInputError{Field: "body", Reason: "at least one request is required"}
		}
		reqs := make(map[string]pricing.EndPriceRequest, len(raw))
		for name, part := range raw {
			req, err := decodeEndPrice(part, loc)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			reqs[name] = req
		}
		return EndPricesRequest{Requests: reqs}, nil

	case RouteGridCost:
		var b gridBody
		if err := unmarshal(body, &b); err != nil {
			return nil, err
		}
		p, err := b.params()
		if err != nil {
			return nil, err
		}
		return GridCostRequest{GridParams: p}, nil

	case RouteExcise:
		var b exciseBody
		if err := unmarshal(body, &b); err != nil {
			return nil, err
		}
		p, err := b.params()
		if err != nil {
			return nil, err
		}
		return ExciseRequest{ExciseParams: p}, nil

	case RouteDerive:
		var b deriveBody
		if err := unmarshal(body, &b); err != nil {
			return nil, err
		}
		if b.CalculationDate == nil {
			return nil, missing("CALCULATION_DATE")
		}
		at, err := parseDate(*b.CalculationDate, loc)
		if err != nil {
			return nil, err
		}
		return DeriveRequest{CalculationDate: at}, nil
	}
	return nil, &tariff.InvalidInputError{Field: "route", Reason: fmt.Sprintf("unknown route %q", route)}
}

func unmarshal(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &tariff.InvalidInputError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func missing(field string) error {
	return &tariff.InvalidInputError{Field: field, Reason: "is required"}
}

func decodeEndPrice(body []byte, loc *time.Location) (pricing.EndPriceRequest, error) {
	var b endPriceBody
	if err := unmarshal(body, &b); err != nil {
		return pricing.EndPriceRequest{}, err
	}
	key, at, err := b.resolve(loc)
	if err != nil {
		return pricing.EndPriceRequest{}, err
	}
	switch {
	case b.Intercept == nil:
		return pricing.EndPriceRequest{}, missing("INTERCEPT")
	case b.Slope == nil:
		return pricing.EndPriceRequest{}, missing("SLOPE")
	case b.Taxes == nil:
		return pricing.EndPriceRequest{}, missing("TAXES")
	}

	req := pricing.EndPriceRequest{
		Index:         key,
		At:            at,
		Intercept:     *b.Intercept,
		Slope:         *b.Slope,
		TaxMultiplier: *b.Taxes,
	}
	if b.Grid != nil {
		p, err := b.Grid.params()
		if err != nil {
			return pricing.EndPriceRequest{}, fmt.Errorf("GRID: %w", err)
		}
		req.Grid = &p
	}
	if b.Excise != nil {
		p, err := b.Excise.params()
		if err != nil {
			return pricing.EndPriceRequest{}, fmt.Errorf("EXCISE: %w", err)
		}
		req.Excise = &p
	}
	return req, nil
}

// resolve builds the series key and the instant. YEAR and MONTH are required
// unless DATE is given.
func (b indexBody) resolve(loc *time.Location) (domain.SeriesKey, time.Time, error) {
	if b.Index == nil {
		return domain.SeriesKey{}, time.Time{}, missing("INDEX")
	}
	if b.Source == nil {
		return domain.SeriesKey{}, time.Time{}, missing("SOURCE")
	}

	key := domain.SeriesKey{
		Source:    *b.Source,
		Name:      *b.Index,
		Timeframe: domain.TimeframeMonthly,
		Origin:    domain.OriginOriginal,
	}
	if b.Timeframe != nil {
		key.Timeframe = domain.Timeframe(strings.ToUpper(*b.Timeframe))
	}
	if b.Origin != nil {
		key.Origin = domain.Origin(strings.ToUpper(*b.Origin))
	}
	if err := key.Validate(); err != nil {
		return domain.SeriesKey{}, time.Time{}, &tariff.InvalidInputError{Field: "INDEX", Reason: err.Error()}
	}

	if b.Date != nil {
		at, err := parseDate(*b.Date, loc)
		return key, at, err
	}
	switch {
	case b.Year == nil:
		return domain.SeriesKey{}, time.Time{}, missing("YEAR")
	case b.Month == nil:
		return domain.SeriesKey{}, time.Time{}, missing("MONTH")
	case *b.Month < 1 || *b.Month > 12:
		return domain.SeriesKey{}, time.Time{}, &tariff.InvalidInputError{Field: "MONTH", Reason: fmt.Sprintf("%d is not a month", *b.Month)}
	}
	return key, time.Date(*b.Year, time.Month(*b.Month), 1, 0, 0, 0, 0, loc), nil
}

// parseDate accepts zone-aware timestamps and zone-less dates, the latter
// interpreted in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	at, err := domain.ParseTimestamp(s)
	if err == nil {
		return at, nil
	}
	if errors.Is(err, domain.ErrNaiveTimestamp) {
		for _, layout := range naiveLayouts {
			if at, err := time.ParseInLocation(layout, strings.TrimSpace(s), loc); err == nil {
				return at, nil
			}
		}
	}
	return time.Time{}, &tariff.InvalidInputError{Field: "DATE", Reason: err.Error()}
}

func (b gridBody) params() (pricing.GridParams, error) {
	switch {
	case b.Country == nil:
		return pricing.GridParams{}, missing("COUNTRY")
	case b.Provider == nil:
		return pricing.GridParams{}, missing("PROVIDER")
	case b.Power == nil:
		return pricing.GridParams{}, missing("POWER")
	case b.Energy == nil:
		return pricing.GridParams{}, missing("ENERGY")
	case b.Dynamic == nil:
		return pricing.GridParams{}, missing("DYNAMIC")
	}
	p := pricing.GridParams{
		Country:  strings.ToUpper(*b.Country),
		Provider: *b.Provider,
		Power:    *b.Power,
		Energy:   *b.Energy,
		Dynamic:  *b.Dynamic,
	}
	if b.Direction != nil {
		p.Direction = domain.Direction(strings.ToUpper(*b.Direction))
	}
	return p, nil
}

func (b exciseBody) params() (pricing.ExciseParams, error) {
	switch {
	case b.Country == nil:
		return pricing.ExciseParams{}, missing("COUNTRY")
	case b.Energy == nil:
		return pricing.ExciseParams{}, missing("ENERGY")
	}
	return pricing.ExciseParams{Country: strings.ToUpper(*b.Country), Energy: *b.Energy}, nil
}
