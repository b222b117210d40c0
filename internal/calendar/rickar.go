package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/nl"
)

var nationalHolidays = map[string][]*cal.Holiday{
	"BE": be.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
	"GB": gb.Holidays,
	"NL": nl.Holidays,
}

// SupportedCountries lists the countries RickarHolidays knows.
func SupportedCountries() []string {
	out := make([]string, 0, len(nationalHolidays))
	for c := range nationalHolidays {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// RickarHolidays is the default HolidayFunc, backed by the national holiday
// lists of github.com/rickar/cal. Both the actual and the observed date of
// each holiday count.
func RickarHolidays(country string, year int) ([]time.Time, error) {
	list, ok := nationalHolidays[country]
	if !ok {
		return nil, fmt.Errorf("%q: %w", country, ErrUnsupportedCountry)
	}

	var days []time.Time
	for _, h := range list {
		actual, observed := h.Calc(year)
		if !actual.IsZero() {
			days = append(days, actual)
		}
		if !observed.IsZero() && !observed.Equal(actual) {
			days = append(days, observed)
		}
	}
	return days, nil
}
