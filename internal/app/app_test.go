package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/auth"
	"energy-tariffs/internal/calendar"
	"energy-tariffs/internal/config"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/storage/storagetest"
)

func newApp(t *testing.T, mutate func(c *config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_RejectsCountryWithoutHolidays(t *testing.T) {
	cfg := config.Default()
	cfg.Tariffs.ReferenceCountries = []string{"BE", "XX"}

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, calendar.ErrUnsupportedCountry)
}

func TestOpenStores(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []config.StoreConfig{
		{Backend: config.BackendMemory},
		{Backend: config.BackendSQLite, SQLitePath: ":memory:"},
	} {
		t.Run(backend.Backend, func(t *testing.T) {
			s, err := OpenStores(ctx, backend, nil)
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Grid.ReplaceAll(ctx, []*domain.GridTariff{storagetest.SampleGridTariff()}))
			_, err = s.Grid.Get(ctx, "BE", "Fluvius Antwerpen", domain.DirectionDrawdown)
			assert.NoError(t, err)
		})
	}

	_, err := OpenStores(ctx, config.StoreConfig{Backend: "dynamo"}, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestBuildRules(t *testing.T) {
	cfg := config.Default()
	a := newApp(t, nil)

	rules, err := BuildRules(cfg.Derivation, a.Location, a.Calendar, a.Repo, nil)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Epex DAM", rules[0].Name())
	assert.Equal(t, "Engie#DERIVED#MONTHLY#ZTP DAM", rules[1].Output().String())

	cfg.Derivation.Rules[0].Kind = "median"
	_, err = BuildRules(cfg.Derivation, a.Location, a.Calendar, a.Repo, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestApp_Derive(t *testing.T) {
	a := newApp(t, nil)
	ctx := context.Background()

	start := time.Date(2023, 5, 1, 0, 0, 0, 0, a.Location)
	_, err := a.Repo.PutBatch(ctx, storagetest.Hourly(start, 4))
	require.NoError(t, err)

	stored, err := a.Derive(ctx, time.Date(2023, 5, 15, 12, 0, 0, 0, a.Location))
	require.NoError(t, err)
	assert.Empty(t, stored, "mid-month is not eligible")

	// The ZTP rule has no daily prices and stays pending.
	stored, err = a.Derive(ctx, time.Date(2023, 5, 31, 12, 0, 0, 0, a.Location))
	require.NoError(t, err)
	assert.Equal(t, []string{"Engie#DERIVED#MONTHLY#Epex DAM"}, stored)

	v, err := a.Repo.Get(ctx, domain.SeriesKey{
		Source: "Engie", Origin: domain.OriginDerived, Timeframe: domain.TimeframeMonthly, Name: "Epex DAM",
	}, start)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 100.38, v.Value)
}

func TestApp_Handler(t *testing.T) {
	a := newApp(t, nil)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, config.BackendMemory, status.Backend)
	assert.Equal(t, []string{"Epex DAM", "ZTP DAM"}, status.Rules)

	resp, err = http.Get(srv.URL + "/list")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_HandlerWithAuth(t *testing.T) {
	secret := "test-secret"
	a := newApp(t, func(c *config.Config) { c.Auth.Secret = secret })
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	token := func(role auth.Role) string {
		tok, err := auth.IssueToken(auth.Claims{
			Role:             role,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}, []byte(secret))
		require.NoError(t, err)
		return tok
	}
	post := func(path, tok string) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(`{"CALCULATION_DATE":"2023-05-15"}`))
		require.NoError(t, err)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, post("/list", ""))
	assert.Equal(t, http.StatusOK, post("/list", token(auth.RoleViewer)))
	assert.Equal(t, http.StatusForbidden, post("/derive", token(auth.RoleViewer)))
	assert.Equal(t, http.StatusOK, post("/derive", token(auth.RoleOperator)))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
