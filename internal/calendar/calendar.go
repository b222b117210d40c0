// Package calendar decides which days are business days across a set of
// reference countries.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrUnsupportedCountry is returned for a country without holiday data.
var ErrUnsupportedCountry = errors.New("unsupported holiday country")

// HolidayFunc returns the public holidays of a country in a year.
// Only the calendar date of each returned time is used.
type HolidayFunc func(country string, year int) ([]time.Time, error)

// DefaultCountries are the reference countries for gas-day substitution.
var DefaultCountries = []string{"BE", "NL", "DE", "FR", "GB"}

type date struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) date {
	y, m, d := t.Date()
	return date{y, m, d}
}

type cacheKey struct {
	country string
	year    int
}

// Calendar is a business-day calendar: Monday to Friday, excluding the
// holidays of every reference country. Holiday lookups are cached per
// (country, year).
type Calendar struct {
	countries []string
	holidays  HolidayFunc

	mu    sync.Mutex
	cache map[cacheKey]map[date]struct{}
}

// New creates a Calendar. A nil fn uses RickarHolidays.
func New(countries []string, fn HolidayFunc) *Calendar {
	if fn == nil {
		fn = RickarHolidays
	}
	normalized := make([]string, 0, len(countries))
	for _, c := range countries {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(c)))
	}
	return &Calendar{
		countries: normalized,
		holidays:  fn,
		cache:     make(map[cacheKey]map[date]struct{}),
	}
}

// Countries returns the reference countries.
func (c *Calendar) Countries() []string {
	out := make([]string, len(c.countries))
	copy(out, c.countries)
	return out
}

// Validate loads the holidays of every country for year, surfacing
// configuration errors before a run starts.
func (c *Calendar) Validate(year int) error {
	for _, country := range c.countries {
		if _, err := c.load(country, year); err != nil {
			return err
		}
	}
	return nil
}

// IsBusinessDay reports whether the calendar date of day is a weekday that
// is not a holiday in any reference country.
func (c *Calendar) IsBusinessDay(day time.Time) (bool, error) {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false, nil
	}

	d := dateOf(day)
	for _, country := range c.countries {
		set, err := c.load(country, d.year)
		if err != nil {
			return false, err
		}
		if _, ok := set[d]; ok {
			return false, nil
		}
	}
	return true, nil
}

// PreviousBusinessDay walks back from the day before day to the nearest
// business day, giving up after maxDays steps.
func (c *Calendar) PreviousBusinessDay(day time.Time, maxDays int) (time.Time, bool, error) {
	for i := 1; i <= maxDays; i++ {
		candidate := day.AddDate(0, 0, -i)
		ok, err := c.IsBusinessDay(candidate)
		if err != nil {
			return time.Time{}, false, err
		}
		if ok {
			return candidate, true, nil
		}
	}
	return time.Time{}, false, nil
}

func (c *Calendar) load(country string, year int) (map[date]struct{}, error) {
	key := cacheKey{country: country, year: year}

	c.mu.Lock()
	defer c.mu.Unlock()

	if set, ok := c.cache[key]; ok {
		return set, nil
	}

	days, err := c.holidays(country, year)
	if err != nil {
		return nil, fmt.Errorf("holidays of %s in %d: %w", country, year, err)
	}
	set := make(map[date]struct{}, len(days))
	for _, d := range days {
		set[dateOf(d)] = struct{}{}
	}
	c.cache[key] = set
	return set, nil
}
