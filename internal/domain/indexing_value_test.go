package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSeriesKey_PartitionKey(t *testing.T) {
	tests := []struct {
		name string
		key  SeriesKey
		want string
	}{
		{
			name: "explicit origin",
			key:  SeriesKey{Source: "ENTSO-E", Origin: OriginOriginal, Timeframe: TimeframeHourly, Name: "SDAC BE"},
			want: "ENTSO-E#ORIGINAL#HOURLY#SDAC BE",
		},
		{
			name: "empty origin defaults to ORIGINAL",
			key:  SeriesKey{Source: "EEX", Timeframe: TimeframeDaily, Name: "ZTP GTND"},
			want: "EEX#ORIGINAL#DAILY#ZTP GTND",
		},
		{
			name: "derived",
			key:  SeriesKey{Source: "Engie", Origin: OriginDerived, Timeframe: TimeframeMonthly, Name: "Epex DAM"},
			want: "Engie#DERIVED#MONTHLY#Epex DAM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.PartitionKey(); got != tt.want {
				t.Errorf("PartitionKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSortKey_ZoneIndependent(t *testing.T) {
	brussels, err := time.LoadLocation("Europe/Brussels")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	local := time.Date(2023, 5, 1, 2, 0, 0, 0, brussels)
	utc := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	if SortKey(local) != SortKey(utc) {
		t.Errorf("SortKey(%v) = %d, want %d", local, SortKey(local), SortKey(utc))
	}
	if !FromSortKey(SortKey(local)).Equal(local) {
		t.Errorf("FromSortKey round trip lost the instant")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input     string
		wantNaive bool
		wantErr   bool
		want      time.Time
	}{
		{input: "2023-05-01T00:00:00Z", want: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		{input: "2023-05-01T02:00:00+02:00", want: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		{input: "2023-05-01 02:00+02:00", want: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		{input: "2023-05-01 00:00", wantNaive: true, wantErr: true},
		{input: "2023-05-01T00:00:00", wantNaive: true, wantErr: true},
		{input: "2023-05-01", wantNaive: true, wantErr: true},
		{input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimestamp(%q) expected error", tt.input)
				}
				if errors.Is(err, ErrNaiveTimestamp) != tt.wantNaive {
					t.Errorf("ParseTimestamp(%q) naive = %v, want %v", tt.input, errors.Is(err, ErrNaiveTimestamp), tt.wantNaive)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimeRange_Contains(t *testing.T) {
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	r := Between(start, end)

	if !r.Contains(start) {
		t.Error("start bound should be inclusive")
	}
	if r.Contains(end) {
		t.Error("end bound should be exclusive")
	}
	if !(TimeRange{}).Contains(end) {
		t.Error("open range should contain everything")
	}
	if err := (TimeRange{Start: &end, End: &start}).Validate(); err == nil {
		t.Error("inverted range should fail validation")
	}
}
