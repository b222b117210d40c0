package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/refdata"
	pgstore "energy-tariffs/internal/storage/postgres"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.False(t, cfg.Auth.Enabled())

	require.Len(t, cfg.Derivation.Rules, 2)
	assert.Equal(t, domain.SeriesKey{
		Source:    "ENTSO-E",
		Origin:    domain.OriginOriginal,
		Timeframe: domain.TimeframeHourly,
		Name:      "SDAC BE",
	}, cfg.Derivation.Rules[0].Input.Key())
	assert.Equal(t, domain.OriginDerived, cfg.Derivation.Rules[1].Output.Key().Origin)
}

func TestParse(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte(`
store:
  backend: sqlite
  sqlite_path: /var/lib/tariffs.db
  timeout: 2s
  postgres_pool:
    max_conns: 8
    max_conn_idle_time: 5m
  retry:
    max_attempts: 3
tariffs:
  reference_countries: [BE, NL]
derivation:
  rules:
    - kind: monthly_average
      name: Epex NL
      input: {source: ENTSO-E, name: SDAC NL, timeframe: hourly}
      output: {source: Engie, name: Epex NL, timeframe: monthly, origin: derived}
refdata:
  grid:
    - provider: Fluvius Antwerpen
      path: /etc/tariffs/fluvius.xlsx
  excise: /etc/tariffs/excise.toml
`), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 3, cfg.Store.Retry.MaxAttempts)
	assert.Equal(t, int32(8), cfg.Store.PostgresPool.MaxConns)
	assert.Equal(t, 5*time.Minute, cfg.Store.PostgresPool.MaxConnIdleTime)
	assert.Equal(t, "Europe/Brussels", cfg.Tariffs.Timezone, "absent keys keep defaults")
	assert.Equal(t, []string{"BE", "NL"}, cfg.Tariffs.ReferenceCountries)
	require.Len(t, cfg.Derivation.Rules, 1)
	assert.Equal(t, domain.TimeframeMonthly, cfg.Derivation.Rules[0].Output.Key().Timeframe)
	assert.Equal(t, "Fluvius Antwerpen", cfg.RefData.Grid[0].Provider)
	assert.False(t, cfg.RefData.Empty())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		"STORE_BACKEND":       "postgres",
		"POSTGRES_DSN":        "postgres://localhost/tariffs",
		"HTTP_ADDR":           ":9000",
		"LOG_LEVEL":           "debug",
		"REFERENCE_COUNTRIES": "be, nl ,",
		"TARIFFS_JWT_SECRET":  "s3cret",
		"STORE_MIGRATE":       "true",
		"POSTGRES_MAX_CONNS":  "12",
		"SQLITE_PATH":         "",
	}))

	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"BE", "NL"}, cfg.Tariffs.ReferenceCountries)
	assert.True(t, cfg.Auth.Enabled())
	assert.True(t, cfg.Store.Migrate)
	assert.Equal(t, int32(12), cfg.Store.PostgresPool.MaxConns)
	assert.Empty(t, cfg.Store.SQLitePath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "dynamo" }, "unknown store backend"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }, "postgres_dsn"},
		{"clickhouse without dsn", func(c *Config) { c.Store.Backend = BackendClickHouse }, "clickhouse_dsn"},
		{"sqlite without path", func(c *Config) { c.Store.Backend = BackendSQLite }, "sqlite_path"},
		{"bad timezone", func(c *Config) { c.Tariffs.Timezone = "Mars/Olympus" }, "timezone"},
		{"no countries", func(c *Config) { c.Tariffs.ReferenceCountries = nil }, "reference_countries"},
		{"country without holidays", func(c *Config) { c.Tariffs.ReferenceCountries = []string{"be", "XX"} }, `"XX"`},
		{"pool min above max", func(c *Config) { c.Store.PostgresPool = pgstore.PoolConfig{MaxConns: 2, MinConns: 5} }, "postgres_pool"},
		{"unknown kind", func(c *Config) { c.Derivation.Rules[0].Kind = "median" }, "unknown rule kind"},
		{"missing weekend", func(c *Config) { c.Derivation.Rules[1].Weekend = SeriesConfig{} }, "weekend"},
		{"duplicate output", func(c *Config) { c.Derivation.Rules[1].Output = c.Derivation.Rules[0].Output }, "duplicate output"},
		{"grid without path", func(c *Config) { c.RefData.Grid = append(c.RefData.Grid, refdataGrid("Fluvius", "")) }, "refdata.grid[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariffs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":7070\"\n"), 0o644))
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("store: [\n"), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func refdataGrid(provider, path string) refdata.GridSource {
	return refdata.GridSource{Provider: provider, Path: path}
}
