package utils

import (
	"fmt"
	"math"
	"time"
)

const (
	// ISOMillis is the timestamp layout used for event-level columns.
	ISOMillis = "2006-01-02T15:04:05.000000Z"
	// ISOSeconds is the timestamp layout used for sampled metric columns.
	ISOSeconds = "2006-01-02T15:04:05Z"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls in [Start, End).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t.UTC(), nil
}

// MinutesBetween returns the whole minutes from start to end.
func MinutesBetween(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// InAnyWindow reports whether ts falls in at least one of the half-open windows.
func InAnyWindow(ts time.Time, windows []Window) bool {
	for _, w := range windows {
		if w.Contains(ts) {
			return true
		}
	}
	return false
}

// Steps calls fn for every instant from start (inclusive) to end (exclusive) spaced by step.
// Iteration stops early when fn returns false.
func Steps(start, end time.Time, step time.Duration, fn func(time.Time) bool) {
	for cursor := start; cursor.Before(end); cursor = cursor.Add(step) {
		if !fn(cursor) {
			return
		}
	}
}

// DiurnalFactor shapes arrival rates: a sinusoidal day curve peaking mid-afternoon UTC,
// dampened on weekends and floored at 0.2.
func DiurnalFactor(ts time.Time) float64 {
	hour := float64(ts.Hour()) + float64(ts.Minute())/60.0
	base := 0.55 + 0.45*math.Sin((hour-3)/24.0*2*math.Pi)
	weekend := 1.0
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		weekend = 0.85
	}
	return math.Max(0.2, base) * weekend
}

// ISO formats ts in UTC with microseconds.
func ISO(ts time.Time) string {
	return ts.UTC().Format(ISOMillis)
}

// ISOSecond formats ts in UTC truncated to seconds.
func ISOSecond(ts time.Time) string {
	return ts.UTC().Format(ISOSeconds)
}

// Compact formats ts as yyyymmddHHMMSS for identifiers.
func Compact(ts time.Time) string {
	return ts.UTC().Format("20060102150405")
}
