package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"FXPull/internal/domain/models"
	"FXPull/pkg/cache"
	applogger "FXPull/pkg/logger"
)

type countingProvider struct {
	calls   int
	candles []models.Candle
	err     error
}

func (p *countingProvider) Name() string                              { return "counting" }
func (p *countingProvider) Supports(models.Granularity) bool          { return true }
func (p *countingProvider) Retention(models.Granularity) time.Duration { return 0 }

func (p *countingProvider) FetchCandles(context.Context, string, models.Granularity, time.Time, time.Time) ([]models.Candle, int, error) {
	p.calls++
	if p.err != nil {
		return nil, 0, p.err
	}
	return p.candles, 1, nil
}

func TestCachedProviderServesSecondCallFromCache(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	inner := &countingProvider{candles: []models.Candle{
		{Instrument: "EURUSD", Timestamp: start, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Granularity: models.Gran1h, Source: "counting"},
	}}
	p := NewCachedCandleProvider(inner, cache.NewMemoryCache(), time.Minute, applogger.Nop())

	ctx := context.Background()
	first, dropped, err := p.FetchCandles(ctx, "EURUSD", models.Gran1h, start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, dropped)
	require.Len(t, first, 1)

	second, dropped, err := p.FetchCandles(ctx, "EURUSD", models.Gran1h, start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, dropped)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls, "second call must come from cache")
}

func TestCachedProviderDistinguishesWindows(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	inner := &countingProvider{}
	p := NewCachedCandleProvider(inner, cache.NewMemoryCache(), time.Minute, applogger.Nop())

	ctx := context.Background()
	_, _, err := p.FetchCandles(ctx, "EURUSD", models.Gran1h, start, start.Add(time.Hour))
	require.NoError(t, err)
	_, _, err = p.FetchCandles(ctx, "EURUSD", models.Gran1h, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCachedProviderNeverCachesFailures(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	inner := &countingProvider{err: models.NewProviderError("counting", models.ErrUnavailable, nil)}
	p := NewCachedCandleProvider(inner, cache.NewMemoryCache(), time.Minute, applogger.Nop())

	ctx := context.Background()
	_, _, err := p.FetchCandles(ctx, "EURUSD", models.Gran1h, start, start.Add(time.Hour))
	require.Error(t, err)
	_, _, err = p.FetchCandles(ctx, "EURUSD", models.Gran1h, start, start.Add(time.Hour))
	require.Error(t, err)
	require.Equal(t, 2, inner.calls, "failures must not be cached")
}
