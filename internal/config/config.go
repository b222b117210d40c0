// Package config loads service configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // operating timezone on hosts without zoneinfo

	"gopkg.in/yaml.v3"

	"energy-tariffs/internal/calendar"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/refdata"
	"energy-tariffs/internal/storage"
	pgstore "energy-tariffs/internal/storage/postgres"
)

// Store backends.
const (
	BackendMemory     = "memory"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Rule kinds.
const (
	KindMonthlyAverage = "monthly_average"
	KindWeekdayWeekend = "weekday_weekend"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full service configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Tariffs    TariffsConfig    `yaml:"tariffs"`
	Derivation DerivationConfig `yaml:"derivation"`
	RefData    refdata.Sources  `yaml:"refdata"`
	Logging    logging.Config   `yaml:"logging"`
}

// StoreConfig selects and tunes the storage backend.
type StoreConfig struct {
	Backend          string              `yaml:"backend"`
	PostgresDSN      string              `yaml:"postgres_dsn"`
	PostgresPool     pgstore.PoolConfig  `yaml:"postgres_pool"`
	ClickHouseDSN    string              `yaml:"clickhouse_dsn"`
	SQLitePath       string              `yaml:"sqlite_path"`
	Timeout          time.Duration       `yaml:"timeout"`
	Retry            storage.RetryPolicy `yaml:"retry"`
	CatalogCacheSize int                 `yaml:"catalog_cache_size"`
	// Migrate applies embedded migrations at startup.
	Migrate bool `yaml:"migrate"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig enables bearer-token auth when Secret is set.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// Enabled reports whether requests must carry a token.
func (a AuthConfig) Enabled() bool {
	return a.Secret != ""
}

// TariffsConfig holds the operating calendar.
type TariffsConfig struct {
	Timezone           string   `yaml:"timezone"`
	ReferenceCountries []string `yaml:"reference_countries"`
}

// Location loads the operating timezone.
func (t TariffsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalid, t.Timezone, err)
	}
	return loc, nil
}

// DerivationConfig lists the derived-value rules.
type DerivationConfig struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig describes one derived-value rule. Input applies to
// monthly_average, Weekday and Weekend to weekday_weekend.
type RuleConfig struct {
	Kind    string       `yaml:"kind"`
	Name    string       `yaml:"name"`
	Input   SeriesConfig `yaml:"input,omitempty"`
	Weekday SeriesConfig `yaml:"weekday,omitempty"`
	Weekend SeriesConfig `yaml:"weekend,omitempty"`
	Output  SeriesConfig `yaml:"output"`
}

// SeriesConfig names a series. Origin defaults to ORIGINAL.
type SeriesConfig struct {
	Source    string `yaml:"source"`
	Name      string `yaml:"name"`
	Timeframe string `yaml:"timeframe"`
	Origin    string `yaml:"origin,omitempty"`
}

// Key converts the config to a series key.
func (s SeriesConfig) Key() domain.SeriesKey {
	return domain.SeriesKey{
		Source:    s.Source,
		Origin:    domain.Origin(strings.ToUpper(s.Origin)),
		Timeframe: domain.Timeframe(strings.ToUpper(s.Timeframe)),
		Name:      s.Name,
	}.Normalize()
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:          BackendMemory,
			Timeout:          5 * time.Second,
			Retry:            storage.DefaultRetryPolicy(),
			CatalogCacheSize: 4096,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Tariffs: TariffsConfig{
			Timezone:           "Europe/Brussels",
			ReferenceCountries: slices.Clone(calendar.DefaultCountries),
		},
		Derivation: DerivationConfig{Rules: DefaultRules()},
		Logging:    logging.DefaultConfig(),
	}
}

// DefaultRules returns the Epex DAM and ZTP DAM rules.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			Kind:   KindMonthlyAverage,
			Name:   "Epex DAM",
			Input:  SeriesConfig{Source: "ENTSO-E", Name: "SDAC BE", Timeframe: "HOURLY"},
			Output: SeriesConfig{Source: "Engie", Name: "Epex DAM", Timeframe: "MONTHLY", Origin: "DERIVED"},
		},
		{
			Kind:    KindWeekdayWeekend,
			Name:    "ZTP DAM",
			Weekday: SeriesConfig{Source: "EEX", Name: "ZTP GTND", Timeframe: "DAILY"},
			Weekend: SeriesConfig{Source: "EEX", Name: "ZTP GTWE", Timeframe: "DAILY"},
			Output:  SeriesConfig{Source: "Engie", Name: "ZTP DAM", Timeframe: "MONTHLY", Origin: "DERIVED"},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path falls back to TARIFFS_CONFIG, then to defaults only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TARIFFS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from data keep their value.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("STORE_BACKEND", &c.Store.Backend)
	set("POSTGRES_DSN", &c.Store.PostgresDSN)
	set("CLICKHOUSE_DSN", &c.Store.ClickHouseDSN)
	set("SQLITE_PATH", &c.Store.SQLitePath)
	set("HTTP_ADDR", &c.HTTP.Addr)
	set("LOG_LEVEL", &c.Logging.Level)
	set("TARIFFS_TIMEZONE", &c.Tariffs.Timezone)
	set("TARIFFS_JWT_SECRET", &c.Auth.Secret)

	if v, ok := lookup("REFERENCE_COUNTRIES"); ok && v != "" {
		c.Tariffs.ReferenceCountries = splitCSV(v)
	}
	if v, ok := lookup("POSTGRES_MAX_CONNS"); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			c.Store.PostgresPool.MaxConns = int32(n)
		}
	}
	if v, ok := lookup("STORE_MIGRATE"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Store.Migrate = b
		}
	}
}

// Validate checks the configuration for errors a run would hit later.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			add("store.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			add("store.postgres_dsn is required for the postgres backend")
		}
	case BackendClickHouse:
		if c.Store.ClickHouseDSN == "" {
			add("store.clickhouse_dsn is required for the clickhouse backend")
		}
	default:
		add("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Timeout < 0 {
		add("store.timeout must not be negative")
	}
	if err := c.Store.PostgresPool.Validate(); err != nil {
		add("store.postgres_pool: %v", err)
	}

	if _, err := c.Tariffs.Location(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Tariffs.ReferenceCountries) == 0 {
		add("tariffs.reference_countries must not be empty")
	}
	supported := calendar.SupportedCountries()
	for _, country := range c.Tariffs.ReferenceCountries {
		if !slices.Contains(supported, strings.ToUpper(strings.TrimSpace(country))) {
			add("tariffs.reference_countries: no holiday data for %q (supported: %s)",
				country, strings.Join(supported, ", "))
		}
	}

	names := make(map[string]bool, len(c.Derivation.Rules))
	for i, r := range c.Derivation.Rules {
		if err := r.validate(); err != nil {
			add("derivation.rules[%d]: %v", i, err)
			continue
		}
		out := r.Output.Key().String()
		if names[out] {
			add("derivation.rules[%d]: duplicate output %s", i, out)
		}
		names[out] = true
	}

	for i, g := range c.RefData.Grid {
		if g.Provider == "" || g.Path == "" {
			add("refdata.grid[%d]: provider and path are required", i)
		}
	}

	return errors.Join(errs...)
}

func (r RuleConfig) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if err := r.Output.Key().Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	switch r.Kind {
	case KindMonthlyAverage:
		if err := r.Input.Key().Validate(); err != nil {
			return fmt.Errorf("input: %w", err)
		}
	case KindWeekdayWeekend:
		if err := r.Weekday.Key().Validate(); err != nil {
			return fmt.Errorf("weekday: %w", err)
		}
		if err := r.Weekend.Key().Validate(); err != nil {
			return fmt.Errorf("weekend: %w", err)
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
