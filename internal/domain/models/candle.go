package models

import (
	"fmt"
	"sort"
	"time"
)

// Candle represents one canonical OHLCV record. Timestamp is the UTC
// period start; Source names the provider the record came from.
type Candle struct {
	Instrument  string
	Timestamp   time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	Granularity Granularity
	Source      string
}

// Validate checks the OHLC consistency invariant:
// high >= max(open, close) >= min(open, close) >= low.
func (c Candle) Validate() error {
	if c.Instrument == "" {
		return fmt.Errorf("candle: instrument required")
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("candle: timestamp required")
	}
	hi, lo := c.Open, c.Open
	if c.Close > hi {
		hi = c.Close
	}
	if c.Close < lo {
		lo = c.Close
	}
	if c.High < hi || c.Low > lo {
		return fmt.Errorf("candle %s %s: ohlc out of order (o=%g h=%g l=%g c=%g)",
			c.Instrument, c.Timestamp.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close)
	}
	return nil
}

// Gap marks a sub-range of the requested window with no candle coverage
// from any provider. End is exclusive (the start of the first covered
// period after the gap, or the end of the requested range).
type Gap struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Periods int       `json:"periods"`
}

// Contains reports whether the period starting at ts falls inside the gap.
func (g Gap) Contains(ts time.Time) bool {
	return !ts.Before(g.Start) && ts.Before(g.End)
}

// CandleSeries is an ordered, deduplicated candle sequence for one
// (instrument, granularity) with an explicit gap set. Candles are sorted
// by strictly increasing timestamp; gaps are recorded, never interpolated.
type CandleSeries struct {
	Instrument  string
	Granularity Granularity
	Start       time.Time
	End         time.Time
	Candles     []Candle
	Gaps        []Gap

	// Dropped counts malformed provider records discarded while the
	// series was acquired. It travels with the artifact so a later
	// stage can report it.
	Dropped int
}

// InGap reports whether the period starting at ts falls inside any
// recorded gap.
func (s *CandleSeries) InGap(ts time.Time) bool {
	for _, g := range s.Gaps {
		if g.Contains(ts) {
			return true
		}
	}
	return false
}

// GapPeriods returns the total number of periods covered by recorded gaps.
func (s *CandleSeries) GapPeriods() int {
	n := 0
	for _, g := range s.Gaps {
		n += g.Periods
	}
	return n
}

// Runs splits the series into maximal gap-free sub-runs: consecutive
// candles exactly one granularity step apart. Indicator lookbacks reset
// at every run boundary.
func (s *CandleSeries) Runs() [][]Candle {
	if len(s.Candles) == 0 {
		return nil
	}
	step := s.Granularity.Duration()
	var runs [][]Candle
	start := 0
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].Timestamp.Equal(s.Candles[i-1].Timestamp.Add(step)) {
			runs = append(runs, s.Candles[start:i])
			start = i
		}
	}
	return append(runs, s.Candles[start:])
}

// SortAndVerify orders candles by timestamp and verifies the uniqueness
// invariant. It returns an error on duplicate timestamps.
func (s *CandleSeries) SortAndVerify() error {
	sort.Slice(s.Candles, func(i, j int) bool {
		return s.Candles[i].Timestamp.Before(s.Candles[j].Timestamp)
	})
	for i := 1; i < len(s.Candles); i++ {
		if s.Candles[i].Timestamp.Equal(s.Candles[i-1].Timestamp) {
			return fmt.Errorf("series %s/%s: duplicate timestamp %s",
				s.Instrument, s.Granularity, s.Candles[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
