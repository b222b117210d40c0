package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"energy-tariffs/internal/api"
	"energy-tariffs/internal/calendar"
	"energy-tariffs/internal/catalog"
	"energy-tariffs/internal/config"
	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/pricing"
	"energy-tariffs/internal/refdata"
	"energy-tariffs/internal/reporting"
	"energy-tariffs/internal/timeseries"
)

// App holds the wired services of one process.
type App struct {
	Config     config.Config
	Location   *time.Location
	Stores     *Stores
	Repo       *timeseries.Repository
	Calendar   *calendar.Calendar
	Calculator *derivation.Calculator
	Pricing    *pricing.Engine
	Service    *api.Service
	Reports    *reporting.Generator
	RefData    *refdata.Loader

	logger  *zap.Logger
	started time.Time

	mu      sync.Mutex
	lastRun derivationRun
}

type derivationRun struct {
	At     time.Time
	Stored int
	Err    string
}

// New opens the stores of cfg and wires every service on top of them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	loc, err := cfg.Tariffs.Location()
	if err != nil {
		return nil, err
	}

	stores, err := OpenStores(ctx, cfg.Store, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	a, err := build(cfg, loc, stores, logger)
	if err != nil {
		stores.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg config.Config, loc *time.Location, stores *Stores, logger *zap.Logger) (*App, error) {
	ix, err := catalog.NewIndex(stores.Catalog, cfg.Store.CatalogCacheSize, logger.Named("catalog"))
	if err != nil {
		return nil, err
	}
	repo := timeseries.NewRepository(stores.Values, ix, timeseries.Options{
		Timeout: cfg.Store.Timeout,
		Retry:   cfg.Store.Retry,
	}, logger.Named("timeseries"))

	cal := calendar.New(cfg.Tariffs.ReferenceCountries, nil)
	if err := cal.Validate(time.Now().In(loc).Year()); err != nil {
		return nil, fmt.Errorf("holiday calendar: %w", err)
	}
	rules, err := BuildRules(cfg.Derivation, loc, cal, repo, logger.Named("derivation"))
	if err != nil {
		return nil, err
	}
	calc := derivation.NewCalculator(rules, repo, logger.Named("derivation"))
	engine := pricing.NewEngine(repo, stores.Grid, stores.Excise, logger.Named("pricing"))

	return &App{
		Config:     cfg,
		Location:   loc,
		Stores:     stores,
		Repo:       repo,
		Calendar:   cal,
		Calculator: calc,
		Pricing:    engine,
		Service: &api.Service{
			Series:     repo,
			Pricing:    engine,
			Calculator: calc,
			Location:   loc,
		},
		Reports: reporting.NewGenerator(repo, loc),
		RefData: refdata.NewLoader(stores.Grid, stores.Excise, logger.Named("refdata")),
		logger:  logger,
		started: time.Now(),
	}, nil
}

// BuildRules turns rule configs into derivation rules reading from reader.
func BuildRules(cfg config.DerivationConfig, loc *time.Location, cal *calendar.Calendar, reader derivation.Reader, logger *zap.Logger) ([]derivation.Rule, error) {
	rules := make([]derivation.Rule, 0, len(cfg.Rules))
	for i, rc := range cfg.Rules {
		switch rc.Kind {
		case config.KindMonthlyAverage:
			rules = append(rules, derivation.NewMonthlyAverageRule(rc.Name, rc.Input.Key(), rc.Output.Key(), loc, reader))
		case config.KindWeekdayWeekend:
			rules = append(rules, derivation.NewWeekdayWeekendRule(rc.Name,
				rc.Weekday.Key(), rc.Weekend.Key(), rc.Output.Key(), loc, cal, reader, logger))
		default:
			return nil, fmt.Errorf("%w: derivation.rules[%d]: unknown rule kind %q", config.ErrInvalid, i, rc.Kind)
		}
	}
	return rules, nil
}

// LoadRefData loads the configured reference files, if any.
func (a *App) LoadRefData(ctx context.Context) error {
	if a.Config.RefData.Empty() {
		return nil
	}
	return a.RefData.Load(ctx, a.Config.RefData)
}

// Derive runs every rule for calculationDate and records the outcome for /status.
func (a *App) Derive(ctx context.Context, calculationDate time.Time) ([]string, error) {
	stored, err := a.Calculator.Run(ctx, calculationDate)

	run := derivationRun{At: time.Now(), Stored: len(stored)}
	if err != nil {
		run.Err = err.Error()
	}
	a.mu.Lock()
	a.lastRun = run
	a.mu.Unlock()

	names := make([]string, len(stored))
	for i, v := range stored {
		names[i] = v.Key().String()
	}
	return names, err
}

// RunScheduler derives once per interval for the current day in the
// operating timezone until ctx ends. Runs on other than the last day of a
// month store nothing. Each tick also resets the catalog seen-cache.
func (a *App) RunScheduler(ctx context.Context, interval time.Duration) error {
	a.logger.Info("derivation scheduler started", zap.Duration("interval", interval))

	tick := func() {
		// Catalog rows removed out of band are rewritten by the next write.
		if ix := a.Repo.Catalog(); ix != nil {
			ix.Forget()
		}
		stored, err := a.Derive(ctx, time.Now().In(a.Location))
		if err != nil {
			a.logger.Error("derivation run failed", zap.Error(err))
			return
		}
		if len(stored) > 0 {
			a.logger.Info("derived values stored", zap.Strings("series", stored))
		}
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

// Close releases the stores.
func (a *App) Close() {
	a.Stores.Close()
}
