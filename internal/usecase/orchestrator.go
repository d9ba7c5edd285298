package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	"FXPull/internal/service/ratelimit"
	applogger "FXPull/pkg/logger"
)

// rangeState tracks one sub-range through the acquisition state machine.
type rangeState int

const (
	stateRequested rangeState = iota
	statePrimaryAttempted
	stateFallbackAttempted
	stateFulfilled
	stateGapRecorded
)

func (s rangeState) String() string {
	switch s {
	case stateRequested:
		return "requested"
	case statePrimaryAttempted:
		return "primary_attempted"
	case stateFallbackAttempted:
		return "fallback_attempted"
	case stateFulfilled:
		return "fulfilled"
	case stateGapRecorded:
		return "gap_recorded"
	default:
		return "unknown"
	}
}

// subRange is one contiguous portion of the requested window routed to
// a provider priority list.
type subRange struct {
	Start, End time.Time
	Providers  []drepo.CandleProvider
	State      rangeState
	Source     string
}

// OrchestratorOptions bounds retries and backoff per provider call.
type OrchestratorOptions struct {
	MaxRetries     uint64
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// Rates holds requests-per-minute budgets keyed by provider name.
	Rates map[string]float64
}

// SourceOrchestrator builds one gap-aware CandleSeries per request from
// a priority-ordered provider list. Provider failures are absorbed into
// fallbacks and recorded gaps; only authentication failure, or every
// provider failing immediately for the entire range, is fatal.
type SourceOrchestrator struct {
	providers []drepo.CandleProvider // priority order, primary first
	limiter   *ratelimit.Limiter
	metrics   drepo.Metrics
	l         *applogger.Logger
	opts      OrchestratorOptions

	now func() time.Time
}

// NewSourceOrchestrator creates a SourceOrchestrator. The first provider
// is the primary; the rest are fallbacks in priority order.
func NewSourceOrchestrator(providers []drepo.CandleProvider, limiter *ratelimit.Limiter, metrics drepo.Metrics, l *applogger.Logger, opts OrchestratorOptions) *SourceOrchestrator {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffInitial == 0 {
		opts.BackoffInitial = time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 8 * time.Second
	}
	return &SourceOrchestrator{
		providers: providers,
		limiter:   limiter,
		metrics:   metrics,
		l:         l,
		opts:      opts,
		now:       time.Now,
	}
}

// BuildSeries acquires, merges, and gap-annotates candles for
// [start, end). The returned dropped count sums malformed records
// dropped across all provider calls.
func (o *SourceOrchestrator) BuildSeries(ctx context.Context, instrument string, g models.Granularity, start, end time.Time) (*models.CandleSeries, int, error) {
	if len(o.providers) == 0 {
		return nil, 0, fmt.Errorf("orchestrator: no providers configured")
	}
	start = g.PeriodStart(start)
	end = end.UTC()
	if !end.After(start) {
		return nil, 0, fmt.Errorf("orchestrator: empty range")
	}

	subRanges := o.split(instrument, g, start, end)

	type merged struct {
		candle models.Candle
		prio   int
	}
	byPeriod := make(map[int64]merged)
	dropped := 0
	anySuccess := false
	dead := make(map[string]bool) // providers with failed credentials
	var lastErr error

	for i := range subRanges {
		sub := &subRanges[i]
		for prio, p := range o.providers {
			if !inPriorityList(sub.Providers, p) || dead[p.Name()] {
				continue
			}
			if prio == 0 {
				sub.State = statePrimaryAttempted
			} else {
				sub.State = stateFallbackAttempted
			}

			candles, d, err := o.fetchWithRetry(ctx, p, instrument, g, sub.Start, sub.End)
			if err != nil {
				lastErr = err
				if errors.Is(err, models.ErrAuthFailed) {
					dead[p.Name()] = true
				}
				o.l.Warn("provider failed for sub-range",
					applogger.String("provider", p.Name()),
					applogger.String("instrument", instrument),
					applogger.Time("start", sub.Start),
					applogger.Time("end", sub.End),
					applogger.Error(err))
				continue
			}

			anySuccess = true
			dropped += d
			for _, c := range candles {
				key := c.Timestamp.Unix()
				prev, ok := byPeriod[key]
				if !ok {
					byPeriod[key] = merged{candle: c, prio: prio}
					continue
				}
				// Collision across providers: prefer higher priority,
				// log the disagreement instead of discarding silently.
				keep, other := prev, merged{candle: c, prio: prio}
				if other.prio < keep.prio {
					keep, other = other, keep
					byPeriod[key] = keep
				}
				if diff := math.Abs(keep.candle.Close - other.candle.Close); diff > 0 {
					o.l.Warn("overlapping candle disagreement",
						applogger.String("instrument", instrument),
						applogger.Time("timestamp", c.Timestamp),
						applogger.String("kept", keep.candle.Source),
						applogger.String("discarded", other.candle.Source),
						applogger.Float64("close_diff", diff))
				}
			}
			if len(candles) > 0 {
				sub.State = stateFulfilled
				sub.Source = p.Name()
				break
			}
			// Empty success: the provider answered but had nothing. Let
			// lower-priority providers try before the range gaps out.
		}
		if sub.State != stateFulfilled {
			sub.State = stateGapRecorded
			o.l.Info("sub-range recorded as gap",
				applogger.String("instrument", instrument),
				applogger.Time("start", sub.Start),
				applogger.Time("end", sub.End),
				applogger.String("state", sub.State.String()))
		}
	}

	if len(dead) == len(o.providers) {
		return nil, dropped, models.NewProviderError("all", models.ErrAuthFailed, lastErr)
	}
	if !anySuccess {
		return nil, dropped, fmt.Errorf("orchestrator: all providers failed for %s [%s, %s): %w",
			instrument, start.Format(time.RFC3339), end.Format(time.RFC3339), lastErr)
	}

	series := &models.CandleSeries{
		Instrument:  instrument,
		Granularity: g,
		Start:       start,
		End:         end,
	}
	for _, m := range byPeriod {
		series.Candles = append(series.Candles, m.candle)
	}
	if err := series.SortAndVerify(); err != nil {
		return nil, dropped, err
	}
	series.Gaps = computeGaps(g, start, end, byPeriod)

	o.metrics.RecordCandlesMerged(instrument, len(series.Candles))
	o.metrics.RecordGap(instrument, series.GapPeriods())
	if dropped > 0 {
		o.metrics.RecordDropped("candle", dropped)
	}
	o.l.Info("series built",
		applogger.String("instrument", instrument),
		applogger.String("granularity", string(g)),
		applogger.Int("candles", len(series.Candles)),
		applogger.Int("gap_periods", series.GapPeriods()),
		applogger.Int("dropped", dropped))

	return series, dropped, nil
}

// split classifies the requested window against the primary's retention
// and produces sub-ranges with their provider priority lists. The
// portion older than the primary's retention goes straight to the
// fallbacks; the primary is never called for it.
func (o *SourceOrchestrator) split(instrument string, g models.Granularity, start, end time.Time) []subRange {
	primary := o.providers[0]
	usable := func(p drepo.CandleProvider, subStart time.Time) bool {
		if !p.Supports(g) {
			return false
		}
		ret := p.Retention(g)
		return ret == 0 || !subStart.Before(o.now().Add(-ret))
	}

	ret := primary.Retention(g)
	if !primary.Supports(g) || ret == 0 {
		return []subRange{{Start: start, End: end, Providers: o.candidates(g, start, usable)}}
	}

	cutoff := g.PeriodStart(o.now().Add(-ret))
	if !start.Before(cutoff) {
		// Entirely inside the primary's window.
		return []subRange{{Start: start, End: end, Providers: o.candidates(g, start, usable)}}
	}
	if !end.After(cutoff) {
		// Entirely outside: fallback-only.
		return []subRange{{Start: start, End: end, Providers: o.fallbacksFor(g, start)}}
	}

	o.l.Info("splitting range at primary retention boundary",
		applogger.String("instrument", instrument),
		applogger.String("primary", primary.Name()),
		applogger.Time("cutoff", cutoff))
	return []subRange{
		{Start: start, End: cutoff, Providers: o.fallbacksFor(g, start)},
		{Start: cutoff, End: end, Providers: o.candidates(g, cutoff, usable)},
	}
}

func (o *SourceOrchestrator) candidates(g models.Granularity, subStart time.Time, usable func(drepo.CandleProvider, time.Time) bool) []drepo.CandleProvider {
	out := make([]drepo.CandleProvider, 0, len(o.providers))
	for _, p := range o.providers {
		if usable(p, subStart) {
			out = append(out, p)
		}
	}
	return out
}

// fallbacksFor lists fallback providers able to serve a sub-range that
// starts at subStart.
func (o *SourceOrchestrator) fallbacksFor(g models.Granularity, subStart time.Time) []drepo.CandleProvider {
	out := make([]drepo.CandleProvider, 0, len(o.providers))
	for _, p := range o.providers[1:] {
		if !p.Supports(g) {
			continue
		}
		if ret := p.Retention(g); ret != 0 && subStart.Before(o.now().Add(-ret)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// fetchWithRetry calls one provider under its rate budget, retrying
// RateLimited and Unavailable with capped exponential backoff. All other
// failures are permanent for this provider.
func (o *SourceOrchestrator) fetchWithRetry(ctx context.Context, p drepo.CandleProvider, instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
	var (
		candles []models.Candle
		dropped int
	)
	op := func() error {
		if rate, ok := o.opts.Rates[p.Name()]; ok && rate > 0 && o.limiter != nil {
			if err := o.limiter.Wait(ctx, p.Name(), rate, rate/60); err != nil {
				return backoff.Permanent(err)
			}
		}
		began := time.Now()
		cs, d, err := p.FetchCandles(ctx, instrument, g, start, end)
		o.metrics.RecordProviderLatency(p.Name(), time.Since(began).Seconds())
		if err != nil {
			o.metrics.RecordProviderRequest(p.Name(), outcomeOf(err))
			if errors.Is(err, models.ErrRateLimited) || errors.Is(err, models.ErrUnavailable) {
				o.metrics.RecordRetry(p.Name())
				return err
			}
			return backoff.Permanent(err)
		}
		o.metrics.RecordProviderRequest(p.Name(), "ok")
		candles, dropped = cs, d
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.opts.BackoffInitial
	bo.MaxInterval = o.opts.BackoffMax
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, o.opts.MaxRetries), ctx))
	if err != nil {
		return nil, 0, err
	}
	return candles, dropped, nil
}

// computeGaps walks the period grid of [start, end) and merges every
// uncovered stretch into a Gap. End is exclusive.
func computeGaps[T any](g models.Granularity, start, end time.Time, covered map[int64]T) []models.Gap {
	step := g.Duration()
	var gaps []models.Gap
	var open *models.Gap
	for t := g.PeriodStart(start); t.Before(end); t = t.Add(step) {
		if _, ok := covered[t.Unix()]; ok {
			if open != nil {
				gaps = append(gaps, *open)
				open = nil
			}
			continue
		}
		if open == nil {
			open = &models.Gap{Start: t, End: t.Add(step), Periods: 1}
		} else {
			open.End = t.Add(step)
			open.Periods++
		}
	}
	if open != nil {
		gaps = append(gaps, *open)
	}
	return gaps
}

func inPriorityList(list []drepo.CandleProvider, p drepo.CandleProvider) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}

// outcomeOf maps a taxonomy error to a metrics label.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, models.ErrUnsupportedRange):
		return "unsupported_range"
	case errors.Is(err, models.ErrMalformed):
		return "malformed"
	case errors.Is(err, models.ErrAuthFailed):
		return "auth_failed"
	default:
		return "unavailable"
	}
}
