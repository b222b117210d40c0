package derivation

import (
	"fmt"
	"time"
)

// Month is a calendar month, independent of any time zone.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month of t in t's own location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "2006-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first instant of the month in loc.
func (m Month) Start(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// End returns the first instant of the following month in loc.
func (m Month) End(loc *time.Location) time.Time {
	return m.Start(loc).AddDate(0, 1, 0)
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.Start(time.UTC).AddDate(0, 1, 0))
}

// Before reports whether m precedes o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// ElapsedBy reports whether m can be computed on date: date is the last day
// of m or later, in date's own location.
func (m Month) ElapsedBy(date time.Time) bool {
	return m.Before(MonthOf(date.AddDate(0, 0, 1)))
}

// Days returns midnight in loc of every day of the month.
func (m Month) Days(loc *time.Location) []time.Time {
	var days []time.Time
	for d := m.Start(loc); d.Month() == m.Month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// EligibleMonth returns the month of calculationDate if the following day
// falls in a different month, i.e. calculationDate is the last day of a
// month that can now be computed.
func EligibleMonth(calculationDate time.Time) (Month, bool) {
	tomorrow := calculationDate.AddDate(0, 0, 1)
	if tomorrow.Month() == calculationDate.Month() {
		return Month{}, false
	}
	return MonthOf(calculationDate), true
}
