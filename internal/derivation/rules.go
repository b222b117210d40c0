// Package derivation computes MONTHLY DERIVED index values from stored
// observations.
package derivation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"energy-tariffs/internal/calendar"
	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
)

// ErrDataNotYetAvailable means the source data for a month is incomplete.
// The month should be computed again later.
var ErrDataNotYetAvailable = errors.New("data not yet available")

// MaxWalkBack bounds the search for a prior business day.
const MaxWalkBack = 14

// Reader is the range-query side of the time-series repository.
type Reader interface {
	Query(ctx context.Context, key domain.SeriesKey, r domain.TimeRange) ([]*domain.IndexingValue, error)
}

// Rule computes one derived series for a month.
type Rule interface {
	Name() string
	// Output is the MONTHLY DERIVED series the rule writes.
	Output() domain.SeriesKey
	// Location is the operating time zone of the month boundaries.
	Location() *time.Location
	// Compute returns the month's value, or ErrDataNotYetAvailable.
	Compute(ctx context.Context, month Month) (float64, error)
}

func derivedKey(k domain.SeriesKey) domain.SeriesKey {
	k.Timeframe = domain.TimeframeMonthly
	k.Origin = domain.OriginDerived
	return k
}

// MonthlyAverageRule averages an HOURLY ORIGINAL series over a month.
type MonthlyAverageRule struct {
	name   string
	input  domain.SeriesKey
	output domain.SeriesKey
	loc    *time.Location
	reader Reader
}

// NewMonthlyAverageRule creates a MonthlyAverageRule.
func NewMonthlyAverageRule(name string, input, output domain.SeriesKey, loc *time.Location, reader Reader) *MonthlyAverageRule {
	return &MonthlyAverageRule{
		name:   name,
		input:  input.Normalize(),
		output: derivedKey(output),
		loc:    loc,
		reader: reader,
	}
}

func (r *MonthlyAverageRule) Name() string             { return r.name }
func (r *MonthlyAverageRule) Output() domain.SeriesKey { return r.output }
func (r *MonthlyAverageRule) Location() *time.Location { return r.loc }

// Compute returns the mean of every input value in the month, rounded to 2 decimals.
func (r *MonthlyAverageRule) Compute(ctx context.Context, month Month) (float64, error) {
	values, err := r.reader.Query(ctx, r.input, domain.Between(month.Start(r.loc), month.End(r.loc)))
	if err != nil {
		return 0, fmt.Errorf("query %s for %s: %w", r.input, month, err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("no %s values in %s: %w", r.input, month, ErrDataNotYetAvailable)
	}

	raw := make([]float64, len(values))
	for i, v := range values {
		raw[i] = v.Value
	}
	return mean2(raw), nil
}

// WeekdayWeekendRule averages a month of daily gas prices. Business days
// take the weekday series at that day; other days take the weekend series
// at the nearest prior business day, which may lie in the previous month.
type WeekdayWeekendRule struct {
	name     string
	weekday  domain.SeriesKey
	weekend  domain.SeriesKey
	output   domain.SeriesKey
	loc      *time.Location
	calendar *calendar.Calendar
	reader   Reader
	logger   *zap.Logger
}

// NewWeekdayWeekendRule creates a WeekdayWeekendRule.
func NewWeekdayWeekendRule(name string, weekday, weekend, output domain.SeriesKey, loc *time.Location, cal *calendar.Calendar, reader Reader, logger *zap.Logger) *WeekdayWeekendRule {
	return &WeekdayWeekendRule{
		name:     name,
		weekday:  weekday.Normalize(),
		weekend:  weekend.Normalize(),
		output:   derivedKey(output),
		loc:      loc,
		calendar: cal,
		reader:   reader,
		logger:   logging.OrNop(logger),
	}
}

func (r *WeekdayWeekendRule) Name() string             { return r.name }
func (r *WeekdayWeekendRule) Output() domain.SeriesKey { return r.output }
func (r *WeekdayWeekendRule) Location() *time.Location { return r.loc }

// Compute resolves every day of the month. One unresolved day leaves the
// whole month not yet available.
func (r *WeekdayWeekendRule) Compute(ctx context.Context, month Month) (float64, error) {
	start, end := month.Start(r.loc), month.End(r.loc)

	weekday, err := r.byDay(ctx, r.weekday, domain.Between(start, end))
	if err != nil {
		return 0, err
	}
	weekend, err := r.byDay(ctx, r.weekend, domain.Between(start.AddDate(0, 0, -MaxWalkBack), end))
	if err != nil {
		return 0, err
	}

	var (
		resolved   []float64
		unresolved []string
	)
	for _, d := range month.Days(r.loc) {
		business, err := r.calendar.IsBusinessDay(d)
		if err != nil {
			return 0, fmt.Errorf("rule %s: %w", r.name, err)
		}

		if business {
			if v, ok := weekday[dayKey(d)]; ok {
				resolved = append(resolved, v)
				continue
			}
			unresolved = append(unresolved, d.Format(time.DateOnly))
			continue
		}

		prior, found, err := r.calendar.PreviousBusinessDay(d, MaxWalkBack)
		if err != nil {
			return 0, fmt.Errorf("rule %s: %w", r.name, err)
		}
		if found {
			if v, ok := weekend[dayKey(prior)]; ok {
				resolved = append(resolved, v)
				continue
			}
		}
		unresolved = append(unresolved, d.Format(time.DateOnly))
	}

	if len(unresolved) > 0 {
		r.logger.Info("month has unresolved days",
			zap.String("rule", r.name),
			zap.String("month", month.String()),
			zap.Strings("days", unresolved),
		)
		return 0, fmt.Errorf("%d unresolved days in %s: %w", len(unresolved), month, ErrDataNotYetAvailable)
	}
	return mean2(resolved), nil
}

// byDay indexes a series by local calendar day.
func (r *WeekdayWeekendRule) byDay(ctx context.Context, key domain.SeriesKey, tr domain.TimeRange) (map[string]float64, error) {
	values, err := r.reader.Query(ctx, key, tr)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	out := make(map[string]float64, len(values))
	for _, v := range values {
		out[dayKey(v.Timestamp.In(r.loc))] = v.Value
	}
	return out, nil
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// mean2 returns the arithmetic mean rounded to 2 decimals.
func mean2(values []float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(values))))
	f, _ := avg.Round(2).Float64()
	return f
}
