package derivation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"energy-tariffs/internal/domain"
	"energy-tariffs/internal/logging"
	"energy-tariffs/internal/observability"
	"energy-tariffs/internal/storage"
)

// ErrMonthNotElapsed is returned when a backfill targets a month that has not
// reached its last day.
var ErrMonthNotElapsed = errors.New("month not yet elapsed")

// Writer is the batch-write side of the time-series repository.
type Writer interface {
	PutBatch(ctx context.Context, values []*domain.IndexingValue) (storage.BatchResult, error)
}

// Calculator runs every rule for a month and stores the results.
type Calculator struct {
	rules  []Rule
	writer Writer
	logger *zap.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(rules []Rule, writer Writer, logger *zap.Logger) *Calculator {
	return &Calculator{rules: rules, writer: writer, logger: logging.OrNop(logger)}
}

// Rules returns the configured rules.
func (c *Calculator) Rules() []Rule {
	return c.rules
}

// Compute returns the derived values due on calculationDate: none unless it
// is the last day of a month.
func (c *Calculator) Compute(ctx context.Context, calculationDate time.Time) ([]*domain.IndexingValue, error) {
	month, ok := EligibleMonth(calculationDate)
	if !ok {
		c.logger.Debug("no month completed",
			zap.String("calculation_date", calculationDate.Format(time.DateOnly)))
		return nil, nil
	}
	return c.computeMonth(ctx, month)
}

// computeMonth runs every rule for month. Rules whose data is not yet
// available are skipped.
func (c *Calculator) computeMonth(ctx context.Context, month Month) ([]*domain.IndexingValue, error) {
	var out []*domain.IndexingValue

	for _, rule := range c.rules {
		value, err := rule.Compute(ctx, month)
		if errors.Is(err, ErrDataNotYetAvailable) {
			observability.RecordDerivation(rule.Output().Name, "pending")
			c.logger.Info("derived value not yet available",
				zap.String("rule", rule.Name()),
				zap.String("month", month.String()),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			observability.RecordDerivation(rule.Output().Name, "failed")
			return nil, fmt.Errorf("derive %s for %s: %w", rule.Name(), month, err)
		}

		key := rule.Output()
		out = append(out, &domain.IndexingValue{
			Name:      key.Name,
			Value:     value,
			Timeframe: domain.TimeframeMonthly,
			Timestamp: month.Start(rule.Location()),
			Source:    key.Source,
			Origin:    domain.OriginDerived,
		})
		c.logger.Info("derived value computed",
			zap.String("rule", rule.Name()),
			zap.String("month", month.String()),
			zap.Float64("value", value),
		)
	}
	return out, nil
}

// Run computes the values due on calculationDate and stores them.
func (c *Calculator) Run(ctx context.Context, calculationDate time.Time) ([]*domain.IndexingValue, error) {
	values, err := c.Compute(ctx, calculationDate)
	if err != nil {
		return nil, err
	}
	return c.store(ctx, values)
}

// RunMonth backfills month and stores the values. asOf is the caller's
// current date; a month that has not elapsed by then is ErrMonthNotElapsed.
func (c *Calculator) RunMonth(ctx context.Context, month Month, asOf time.Time) ([]*domain.IndexingValue, error) {
	if !month.ElapsedBy(asOf) {
		return nil, fmt.Errorf("%s as of %s: %w", month, asOf.Format(time.DateOnly), ErrMonthNotElapsed)
	}
	values, err := c.computeMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return c.store(ctx, values)
}

func (c *Calculator) store(ctx context.Context, values []*domain.IndexingValue) ([]*domain.IndexingValue, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if _, err := c.writer.PutBatch(ctx, values); err != nil {
		return nil, fmt.Errorf("store derived values: %w", err)
	}
	for _, v := range values {
		observability.RecordDerivation(v.Name, "stored")
	}
	return values, nil
}
