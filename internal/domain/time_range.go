package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNaiveTimestamp is returned when a textual timestamp carries no zone offset.
var ErrNaiveTimestamp = errors.New("timestamp has no zone information")

// TimeRange is a half-open interval [Start, End). A nil bound is open.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// Between returns the range [start, end).
func Between(start, end time.Time) TimeRange {
	return TimeRange{Start: &start, End: &end}
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	sec := SortKey(t)
	if r.Start != nil && sec < SortKey(*r.Start) {
		return false
	}
	if r.End != nil && sec >= SortKey(*r.End) {
		return false
	}
	return true
}

// Bounds returns the range as sort keys. Open bounds are reported via ok flags.
func (r TimeRange) Bounds() (start int64, hasStart bool, end int64, hasEnd bool) {
	if r.Start != nil {
		start, hasStart = SortKey(*r.Start), true
	}
	if r.End != nil {
		end, hasEnd = SortKey(*r.End), true
	}
	return
}

// Validate rejects zero-valued bounds and inverted ranges.
func (r TimeRange) Validate() error {
	if r.Start != nil && r.Start.IsZero() {
		return fmt.Errorf("start: %w", ErrNaiveTimestamp)
	}
	if r.End != nil && r.End.IsZero() {
		return fmt.Errorf("end: %w", ErrNaiveTimestamp)
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return fmt.Errorf("end %s before start %s", r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}

// Accepted layouts for ParseTimestamp. All of them require an offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04Z07:00",
}

// ParseTimestamp parses a zone-aware timestamp. Strings without an explicit
// offset or Z suffix return ErrNaiveTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, fmt.Errorf("%q: %w", s, ErrNaiveTimestamp)
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// MonthStart returns midnight of the first day of t's month in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
