package storage

import (
	"fmt"
	"math"
	"time"

	"energy-tariffs/internal/domain"
)

// ValidateValue checks a value before it reaches a backend.
// Errors wrap ErrInvalidInput and name the offending field.
func ValidateValue(v *domain.IndexingValue) error {
	if v == nil {
		return fmt.Errorf("nil value: %w", ErrInvalidInput)
	}
	if err := v.Key().Validate(); err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalidInput)
	}
	if v.Timestamp.IsZero() {
		return fmt.Errorf("timestamp of %s: %w: %w", v.Key(), domain.ErrNaiveTimestamp, ErrInvalidInput)
	}
	if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
		return fmt.Errorf("value of %s at %s is not finite: %w", v.Key(), v.Timestamp.Format(time.RFC3339), ErrInvalidInput)
	}
	return nil
}

// ValidateKey checks a series key used for reads.
func ValidateKey(key domain.SeriesKey) error {
	if err := key.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalidInput)
	}
	return nil
}

// ValidateInstant rejects the zero time used as a lookup instant.
func ValidateInstant(at time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("lookup instant: %w: %w", domain.ErrNaiveTimestamp, ErrInvalidInput)
	}
	return nil
}

// ValidateRange checks query bounds.
func ValidateRange(r domain.TimeRange) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %w", err, ErrInvalidInput)
	}
	return nil
}

// Normalized returns a copy of v with the default origin filled in and the
// timestamp truncated to whole seconds, matching the sort key resolution.
func Normalized(v *domain.IndexingValue) *domain.IndexingValue {
	c := *v
	c.Origin = c.Origin.OrDefault()
	c.Timestamp = c.Timestamp.Truncate(time.Second)
	return &c
}
