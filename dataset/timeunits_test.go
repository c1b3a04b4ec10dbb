package dataset

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units string
		value float64
		want  time.Time
	}{
		{"days since 1950-01-01 00:00:00 UTC", 27394, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"days since 1950-01-01", 0.25, time.Date(1950, 1, 1, 6, 0, 0, 0, time.UTC)},
		{"seconds since 1970-01-01T00:00:00Z", 86400, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"hours since 2000-01-01 12:00", 12, time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"minutes since 2000-1-1", 90, time.Date(2000, 1, 1, 1, 30, 0, 0, time.UTC)},
		{"Days since 1950-01-01 00:00:00", -1, time.Date(1949, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			d, err := ParseTimeUnits(tt.units, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Decode(tt.value))
		})
	}
}

func TestParseTimeUnitsErrors(t *testing.T) {
	for _, tc := range []struct{ units, calendar string }{
		{"", ""},
		{"days", ""},
		{"fortnights since 2000-01-01", ""},
		{"days since yesterday", ""},
		{"days since 2000-01-01", "360_day"},
	} {
		_, err := ParseTimeUnits(tc.units, tc.calendar)
		assert.True(t, errors.Is(err, ErrTimeUnits), "units %q calendar %q", tc.units, tc.calendar)
	}
}

func TestDecodeNaNTime(t *testing.T) {
	d, err := ParseTimeUnits("days since 1950-01-01", "gregorian")
	require.NoError(t, err)
	assert.True(t, d.Decode(math.NaN()).IsZero())
}
