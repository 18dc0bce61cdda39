package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowHalfOpen(t *testing.T) {
	start := time.Date(2025, 12, 3, 12, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(5 * time.Minute)}

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(start.Add(5*time.Minute-time.Nanosecond)))
	assert.False(t, w.Contains(start.Add(5*time.Minute)))
	assert.False(t, w.Contains(start.Add(-time.Nanosecond)))
}

func TestInAnyWindow(t *testing.T) {
	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	windows := []Window{
		{Start: base, End: base.Add(time.Minute)},
		{Start: base.Add(10 * time.Minute), End: base.Add(12 * time.Minute)},
	}
	assert.True(t, InAnyWindow(base.Add(11*time.Minute), windows))
	assert.False(t, InAnyWindow(base.Add(5*time.Minute), windows))
	assert.False(t, InAnyWindow(base, nil))
}

func TestStepsIteratesMinutes(t *testing.T) {
	start := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	count := 0
	Steps(start, start.Add(time.Hour), time.Minute, func(time.Time) bool {
		count++
		return true
	})
	assert.Equal(t, 60, count)
	assert.Equal(t, 60, MinutesBetween(start, start.Add(time.Hour)))
}

func TestDiurnalFactor(t *testing.T) {
	weekdayPeak := time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC) // Wednesday
	weekdayTrough := time.Date(2025, 12, 3, 21, 0, 0, 0, time.UTC)
	saturdayPeak := time.Date(2025, 12, 6, 9, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, DiurnalFactor(weekdayPeak), 1e-9)
	assert.InDelta(t, 0.2, DiurnalFactor(weekdayTrough), 1e-9)
	assert.InDelta(t, 0.85, DiurnalFactor(saturdayPeak), 1e-9)
}

func TestParseRFC3339(t *testing.T) {
	ts, err := ParseRFC3339("2025-12-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01T00:00:00Z", ISOSecond(ts))
	assert.Equal(t, "20251201000000", Compact(ts))

	_, err = ParseRFC3339("")
	assert.Error(t, err)
}
