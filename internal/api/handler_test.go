package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/catalog"
	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/idhash"
	"energy-tariffs/internal/pricing"
	"energy-tariffs/internal/storage/memory"
	"energy-tariffs/internal/storage/storagetest"
	"energy-tariffs/internal/timeseries"
)

var brussels = time.FixedZone("CET", 3600)

type fixture struct {
	handler http.Handler
	repo    *timeseries.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	ix, err := catalog.NewIndex(memory.NewCatalogStore(), 0, nil)
	require.NoError(t, err)
	repo := timeseries.NewRepository(memory.NewValueStore(), ix, timeseries.Options{}, nil)

	_, err = repo.PutBatch(ctx, []*domain.IndexingValue{
		{Name: "Epex DAM", Value: 1.1, Timeframe: domain.TimeframeMonthly, Timestamp: time.Date(2023, 5, 1, 0, 0, 0, 0, brussels), Source: "Engie", Origin: domain.OriginDerived},
		{Name: "SDAC BE", Value: 1, Timeframe: domain.TimeframeHourly, Timestamp: time.Date(2023, 6, 1, 0, 0, 0, 0, brussels), Source: "ENTSO-E"},
		{Name: "SDAC BE", Value: 2, Timeframe: domain.TimeframeHourly, Timestamp: time.Date(2023, 6, 1, 1, 0, 0, 0, brussels), Source: "ENTSO-E"},
	})
	require.NoError(t, err)

	grid := memory.NewGridTariffStore()
	require.NoError(t, grid.ReplaceAll(ctx, []*domain.GridTariff{storagetest.SampleGridTariff()}))
	excise := memory.NewExciseTariffStore()
	require.NoError(t, excise.ReplaceAll(ctx, []*domain.ExciseTariff{storagetest.SampleExciseTariff()}))

	rule := derivation.NewMonthlyAverageRule("epex",
		domain.SeriesKey{Source: "ENTSO-E", Timeframe: domain.TimeframeHourly, Name: "SDAC BE"},
		domain.SeriesKey{Source: "Engie", Name: "Epex DAM"},
		brussels, repo)

	svc := &Service{
		Series:     repo,
		Pricing:    pricing.NewEngine(repo, grid, excise, nil),
		Calculator: derivation.NewCalculator([]derivation.Rule{rule}, repo, nil),
		Location:   brussels,
	}
	return &fixture{handler: NewHandler(svc, nil), repo: repo}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestIndexingSetting(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/indexingsetting",
		`{"INDEX":"Epex DAM","SOURCE":"Engie","ORIGIN":"derived","YEAR":2023,"MONTH":5}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.1, body["VALUE"])
	assert.Equal(t, "MONTHLY", body["TIMEFRAME"])
	assert.Equal(t, "DERIVED", body["ORIGIN"])

	// A zone-less DATE is read in the operating zone.
	code, _ = f.do(t, http.MethodPost, "/indexingsetting",
		`{"INDEX":"Epex DAM","SOURCE":"Engie","ORIGIN":"DERIVED","DATE":"2023-05-01"}`)
	assert.Equal(t, http.StatusOK, code)

	code, body = f.do(t, http.MethodPost, "/indexingsetting",
		`{"INDEX":"Epex DAM","SOURCE":"Engie","ORIGIN":"DERIVED","YEAR":2023,"MONTH":6}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body["ERROR"])
}

func TestIndexingSetting_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"no index", `{"SOURCE":"Engie","YEAR":2023,"MONTH":5}`},
		{"no month", `{"INDEX":"Epex DAM","SOURCE":"Engie","YEAR":2023}`},
		{"no year", `{"INDEX":"Epex DAM","SOURCE":"Engie","MONTH":5}`},
		{"month 13", `{"INDEX":"Epex DAM","SOURCE":"Engie","YEAR":2023,"MONTH":13}`},
		{"bad timeframe", `{"INDEX":"Epex DAM","SOURCE":"Engie","TIMEFRAME":"WEEKLY","YEAR":2023,"MONTH":5}`},
		{"bad date", `{"INDEX":"Epex DAM","SOURCE":"Engie","DATE":"yesterday"}`},
		{"malformed", `{"INDEX":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, http.MethodPost, "/indexingsetting", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["ERROR"])
		})
	}
}

func TestEndPrice(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/endprice",
		`{"INDEX":"Epex DAM","SOURCE":"Engie","ORIGIN":"DERIVED","YEAR":2023,"MONTH":5,"INTERCEPT":1.0,"SLOPE":1.0,"TAXES":1.5}`)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 3.15, body["END_PRICE"], 1e-9)

	code, body = f.do(t, http.MethodPost, "/endprice",
		`{"INDEX":"Epex DAM","SOURCE":"Engie","ORIGIN":"DERIVED","YEAR":2023,"MONTH":5,"INTERCEPT":1.0,"SLOPE":1.0,"TAXES":1.5,
		  "GRID":{"COUNTRY":"BE","PROVIDER":"Fluvius Antwerpen","POWER":3,"ENERGY":5000,"DYNAMIC":true},
		  "EXCISE":{"COUNTRY":"BE","ENERGY":5000}}`)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, (2.1+303.511/5000+232.317/5000)*1.5, body["END_PRICE"], 1e-9)

	code, _ = f.do(t, http.MethodPost, "/endprice",
		`{"INDEX":"Epex DAM","SOURCE":"Engie","ORIGIN":"DERIVED","YEAR":2023,"MONTH":5,"SLOPE":1.0,"TAXES":1.5}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/endprice",
		`{"INDEX":"Epex DAM","SOURCE":"Engie","YEAR":2023,"MONTH":5,"INTERCEPT":1.0,"SLOPE":1.0,"TAXES":1.5}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEndPrices(t *testing.T) {
	f := newFixture(t)
	one := `{"INDEX":"Epex DAM","SOURCE":"Engie","ORIGIN":"DERIVED","YEAR":2023,"MONTH":5,"INTERCEPT":1.0,"SLOPE":1.0,"TAXES":1.5}`

	code, body := f.do(t, http.MethodPost, "/endprices", `{"a":`+one+`,"b":`+one+`}`)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body, 2)
	a := body["a"].(map[string]any)
	assert.InDelta(t, 3.15, a["END_PRICE"], 1e-9)

	six := `{"a":` + one + `,"b":` + one + `,"c":` + one + `,"d":` + one + `,"e":` + one + `,"f":` + one + `}`
	code, _ = f.do(t, http.MethodPost, "/endprices", six)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/endprices", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGridCostAndExcise(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/gridcost",
		`{"COUNTRY":"BE","PROVIDER":"Fluvius Antwerpen","POWER":3,"ENERGY":5000,"DYNAMIC":false}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 302.431, body["GRID_COST"])

	code, _ = f.do(t, http.MethodPost, "/gridcost",
		`{"COUNTRY":"BE","PROVIDER":"Fluvius Antwerpen","DIRECTION":"INJECTION","POWER":3,"ENERGY":5000,"DYNAMIC":false}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPost, "/gridcost", `{"COUNTRY":"BE","PROVIDER":"Fluvius Antwerpen"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.do(t, http.MethodPost, "/excise", `{"COUNTRY":"be","ENERGY":10000}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 479.348, body["EXCISE_COST"])
	assert.Equal(t, "BE", body["COUNTRY"])

	code, body = f.do(t, http.MethodPost, "/excise", `{"COUNTRY":"BE","ENERGY":0}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["EXCISE_COST"])

	code, _ = f.do(t, http.MethodPost, "/excise", `{"COUNTRY":"BE","ENERGY":-1}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeriveAndList(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/derive", `{"CALCULATION_DATE":"2023-06-15"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["VALUES"])

	code, body = f.do(t, http.MethodPost, "/derive", `{"CALCULATION_DATE":"2023-06-30"}`)
	require.Equal(t, http.StatusOK, code)
	values := body["VALUES"].([]any)
	require.Len(t, values, 1)
	assert.Equal(t, 1.5, values[0].(map[string]any)["VALUE"])

	stored, err := f.repo.Get(context.Background(),
		domain.SeriesKey{Source: "Engie", Origin: domain.OriginDerived, Timeframe: domain.TimeframeMonthly, Name: "Epex DAM"},
		time.Date(2023, 6, 1, 0, 0, 0, 0, brussels))
	require.NoError(t, err)
	require.NotNil(t, stored)

	code, _ = f.do(t, http.MethodPost, "/derive", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "ENTSO-E", entries[0].Source)
	assert.Equal(t, "Engie", entries[1].Source)
	assert.NotEmpty(t, entries[0].ID)

	code, body = f.do(t, http.MethodPost, "/list", `{"ID":"`+entries[1].ID+`"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Engie", body["SOURCE"])
	assert.Equal(t, "Epex DAM", body["NAME"])

	code, _ = f.do(t, http.MethodPost, "/list", `{"ID":"0OIl"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/list", `{"ID":"`+idhash.CatalogID(12345)+`"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/endprice", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDecode_EndPricesWrapsName(t *testing.T) {
	_, err := Decode(RouteEndPrices, []byte(`{"mine":{"SOURCE":"Engie"}}`), time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mine")
	assert.Equal(t, http.StatusBadRequest, StatusFor(err))
}
