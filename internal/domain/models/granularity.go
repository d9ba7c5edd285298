package models

import "time"

// Granularity is the period length of a candle.
type Granularity string

const (
	Gran1m  Granularity = "1m"
	Gran5m  Granularity = "5m"
	Gran15m Granularity = "15m"
	Gran30m Granularity = "30m"
	Gran1h  Granularity = "1h"
	Gran1d  Granularity = "1d"
)

// IsValidGranularity returns true if g is a supported granularity.
func IsValidGranularity(g Granularity) bool {
	switch g {
	case Gran1m, Gran5m, Gran15m, Gran30m, Gran1h, Gran1d:
		return true
	default:
		return false
	}
}

// DefaultGranularity returns the default granularity.
func DefaultGranularity() Granularity { return Gran1h }

// NormalizeGranularity converts a raw string to a valid granularity (or default).
func NormalizeGranularity(s string) Granularity {
	if s == "" {
		return DefaultGranularity()
	}
	g := Granularity(s)
	if IsValidGranularity(g) {
		return g
	}
	return DefaultGranularity()
}

// Duration returns the period length.
func (g Granularity) Duration() time.Duration {
	switch g {
	case Gran1m:
		return time.Minute
	case Gran5m:
		return 5 * time.Minute
	case Gran15m:
		return 15 * time.Minute
	case Gran30m:
		return 30 * time.Minute
	case Gran1h:
		return time.Hour
	case Gran1d:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// Intraday reports whether the granularity is finer than one day.
func (g Granularity) Intraday() bool { return g != Gran1d }

// PeriodStart truncates t (in UTC) to the start of its period.
func (g Granularity) PeriodStart(t time.Time) time.Time {
	return t.UTC().Truncate(g.Duration())
}

// PeriodsBetween counts the period starts in [start, end).
func (g Granularity) PeriodsBetween(start, end time.Time) int {
	start = g.PeriodStart(start)
	end = end.UTC()
	if !end.After(start) {
		return 0
	}
	d := g.Duration()
	n := int(end.Sub(start) / d)
	if start.Add(time.Duration(n) * d).Before(end) {
		n++
	}
	return n
}
