package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	applogger "FXPull/pkg/logger"
)

// nopMetrics satisfies repository.Metrics without touching a registry.
type nopMetrics struct{}

func (nopMetrics) RecordProviderRequest(string, string)  {}
func (nopMetrics) RecordProviderLatency(string, float64) {}
func (nopMetrics) RecordRetry(string)                    {}
func (nopMetrics) RecordCandlesMerged(string, int)       {}
func (nopMetrics) RecordGap(string, int)                 {}
func (nopMetrics) RecordDropped(string, int)             {}
func (nopMetrics) RecordStageDuration(string, float64)   {}

type fakeProvider struct {
	name              string
	intradayRetention time.Duration
	calls             int
	fetch             func(instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error)
}

func (p *fakeProvider) Name() string                      { return p.name }
func (p *fakeProvider) Supports(models.Granularity) bool  { return true }
func (p *fakeProvider) Retention(g models.Granularity) time.Duration {
	if g.Intraday() {
		return p.intradayRetention
	}
	return 0
}

func (p *fakeProvider) FetchCandles(_ context.Context, instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
	p.calls++
	return p.fetch(instrument, g, start, end)
}

// gridCandles generates one candle per period of [start, end).
func gridCandles(instrument string, g models.Granularity, start, end time.Time, source string, closePrice float64) []models.Candle {
	step := g.Duration()
	var out []models.Candle
	for t := g.PeriodStart(start); t.Before(end); t = t.Add(step) {
		out = append(out, models.Candle{
			Instrument:  instrument,
			Timestamp:   t,
			Open:        closePrice,
			High:        closePrice + 0.001,
			Low:         closePrice - 0.001,
			Close:       closePrice,
			Granularity: g,
			Source:      source,
		})
	}
	return out
}

func fullCoverage(source string, closePrice float64) func(string, models.Granularity, time.Time, time.Time) ([]models.Candle, int, error) {
	return func(instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
		return gridCandles(instrument, g, start, end, source, closePrice), 0, nil
	}
}

func newTestOrchestrator(t *testing.T, now time.Time, providers ...*fakeProvider) *SourceOrchestrator {
	t.Helper()
	list := make([]drepo.CandleProvider, 0, len(providers))
	for _, p := range providers {
		list = append(list, p)
	}
	o := NewSourceOrchestrator(list, nil, nopMetrics{}, applogger.Nop(), OrchestratorOptions{
		MaxRetries:     2,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	})
	o.now = func() time.Time { return now }
	return o
}

func TestBuildSeriesWithinRetentionNeverCallsFallback(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	primary := &fakeProvider{name: "primary", intradayRetention: 30 * 24 * time.Hour, fetch: fullCoverage("primary", 1.10)}
	fallback := &fakeProvider{name: "fallback", fetch: fullCoverage("fallback", 1.10)}
	o := newTestOrchestrator(t, now, primary, fallback)

	start := now.Add(-10 * 24 * time.Hour)
	series, _, err := o.BuildSeries(context.Background(), "EURUSD", models.Gran1h, start, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fallback.calls != 0 {
		t.Fatalf("expected no fallback calls, got %d", fallback.calls)
	}
	if primary.calls == 0 {
		t.Fatal("expected primary to be called")
	}
	for _, c := range series.Candles {
		if c.Source != "primary" {
			t.Fatalf("expected only primary-sourced candles, got %s at %s", c.Source, c.Timestamp)
		}
	}
}

func TestBuildSeriesSplitsAtRetentionBoundary(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	retention := 30 * 24 * time.Hour
	primary := &fakeProvider{
		name:              "primary",
		intradayRetention: retention,
		fetch: func(instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
			if start.Before(now.Add(-retention)) {
				return nil, 0, models.NewProviderError("primary", models.ErrUnsupportedRange, nil)
			}
			return gridCandles(instrument, g, start, end, "primary", 1.10), 0, nil
		},
	}
	fallback := &fakeProvider{name: "fallback", fetch: fullCoverage("fallback", 1.10)}
	o := newTestOrchestrator(t, now, primary, fallback)

	start := now.Add(-45 * 24 * time.Hour)
	series, _, err := o.BuildSeries(context.Background(), "EURUSD", models.Gran5m, start, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(series.Gaps); got != 0 {
		t.Fatalf("expected zero gaps, got %d: %v", got, series.Gaps)
	}
	wantPeriods := models.Gran5m.PeriodsBetween(start, now)
	if len(series.Candles) != wantPeriods {
		t.Fatalf("expected %d candles, got %d", wantPeriods, len(series.Candles))
	}

	cutoff := now.Add(-retention)
	for i, c := range series.Candles {
		if i > 0 && !series.Candles[i-1].Timestamp.Before(c.Timestamp) {
			t.Fatalf("timestamps not strictly increasing at index %d", i)
		}
		want := "primary"
		if c.Timestamp.Before(cutoff) {
			want = "fallback"
		}
		if c.Source != want {
			t.Fatalf("candle at %s: expected source %s, got %s", c.Timestamp, want, c.Source)
		}
	}
}

func TestBuildSeriesRecordsGapForMissingCoverage(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	holeStart := now.Add(-5 * 24 * time.Hour)
	holeEnd := now.Add(-2 * 24 * time.Hour)
	withHole := func(instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
		var out []models.Candle
		for _, c := range gridCandles(instrument, g, start, end, "primary", 1.10) {
			if !c.Timestamp.Before(holeStart) && c.Timestamp.Before(holeEnd) {
				continue
			}
			out = append(out, c)
		}
		return out, 0, nil
	}
	primary := &fakeProvider{name: "primary", fetch: withHole}
	fallback := &fakeProvider{name: "fallback", fetch: withHole}
	o := newTestOrchestrator(t, now, primary, fallback)

	start := now.Add(-10 * 24 * time.Hour)
	series, _, err := o.BuildSeries(context.Background(), "EURUSD", models.Gran1h, start, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series.Gaps) != 1 {
		t.Fatalf("expected one gap, got %d: %v", len(series.Gaps), series.Gaps)
	}
	gap := series.Gaps[0]
	if !gap.Start.Equal(holeStart) || !gap.End.Equal(holeEnd) {
		t.Fatalf("gap [%s, %s), want [%s, %s)", gap.Start, gap.End, holeStart, holeEnd)
	}
	if gap.Periods != 72 {
		t.Fatalf("expected 72 gap periods, got %d", gap.Periods)
	}
}

func TestBuildSeriesAuthFailureIsFatal(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	authFail := func(string, models.Granularity, time.Time, time.Time) ([]models.Candle, int, error) {
		return nil, 0, models.NewProviderError("x", models.ErrAuthFailed, nil)
	}
	primary := &fakeProvider{name: "primary", fetch: authFail}
	fallback := &fakeProvider{name: "fallback", fetch: authFail}
	o := newTestOrchestrator(t, now, primary, fallback)

	_, _, err := o.BuildSeries(context.Background(), "EURUSD", models.Gran1h, now.Add(-24*time.Hour), now)
	if !errors.Is(err, models.ErrAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestBuildSeriesRetriesRateLimited(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	attempts := 0
	primary := &fakeProvider{
		name: "primary",
		fetch: func(instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
			attempts++
			if attempts == 1 {
				return nil, 0, models.NewProviderError("primary", models.ErrRateLimited, nil)
			}
			return gridCandles(instrument, g, start, end, "primary", 1.10), 0, nil
		},
	}
	o := newTestOrchestrator(t, now, primary)

	series, _, err := o.BuildSeries(context.Background(), "EURUSD", models.Gran1h, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if len(series.Candles) != 24 {
		t.Fatalf("expected 24 candles, got %d", len(series.Candles))
	}
}

func TestBuildSeriesPrefersPrimaryOnCollision(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	retention := 2 * 24 * time.Hour
	cutoff := now.Add(-retention)
	primary := &fakeProvider{
		name:              "primary",
		intradayRetention: retention,
		fetch:             fullCoverage("primary", 1.10),
	}
	// Sloppy fallback overshoots its requested window into the primary's
	// territory, forcing timestamp collisions at the boundary.
	fallback := &fakeProvider{
		name: "fallback",
		fetch: func(instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
			return gridCandles(instrument, g, start, end.Add(3*time.Hour), "fallback", 1.20), 0, nil
		},
	}
	o := newTestOrchestrator(t, now, primary, fallback)

	start := now.Add(-4 * 24 * time.Hour)
	series, _, err := o.BuildSeries(context.Background(), "EURUSD", models.Gran1h, start, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range series.Candles {
		want := "primary"
		if c.Timestamp.Before(cutoff) {
			want = "fallback"
		}
		if c.Source != want {
			t.Fatalf("candle at %s: expected source %s, got %s", c.Timestamp, want, c.Source)
		}
	}
	if err := series.SortAndVerify(); err != nil {
		t.Fatalf("duplicate timestamps after merge: %v", err)
	}
}

func TestBuildSeriesCountsDropped(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	primary := &fakeProvider{
		name: "primary",
		fetch: func(instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
			return gridCandles(instrument, g, start, end, "primary", 1.10), 3, nil
		},
	}
	o := newTestOrchestrator(t, now, primary)

	_, dropped, err := o.BuildSeries(context.Background(), "EURUSD", models.Gran1h, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 3 {
		t.Fatalf("expected 3 dropped, got %d", dropped)
	}
}
