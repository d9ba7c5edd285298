package repository

import (
	"context"
	"errors"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	"FXPull/pkg/cache"
	applogger "FXPull/pkg/logger"
)

// cachedRange is the serialized cache entry for one provider response.
type cachedRange struct {
	Candles []models.Candle `json:"candles"`
	Dropped int             `json:"dropped"`
}

// CachedCandleProvider decorates a CandleProvider with response caching
// keyed by (provider, instrument, granularity, window). Historical
// windows never change, so re-runs and resumed pipelines skip the
// network entirely. Only successful responses are cached; failures
// always go back to the provider.
type CachedCandleProvider struct {
	inner drepo.CandleProvider
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

// NewCachedCandleProvider wraps inner with a response cache.
func NewCachedCandleProvider(inner drepo.CandleProvider, svc cache.Service, ttl time.Duration, l *applogger.Logger) drepo.CandleProvider {
	return &CachedCandleProvider{inner: inner, cache: svc, ttl: ttl, l: l}
}

func (p *CachedCandleProvider) Name() string { return p.inner.Name() }

func (p *CachedCandleProvider) Supports(g models.Granularity) bool { return p.inner.Supports(g) }

func (p *CachedCandleProvider) Retention(g models.Granularity) time.Duration {
	return p.inner.Retention(g)
}

func (p *CachedCandleProvider) FetchCandles(ctx context.Context, instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
	key := cache.GenerateKeyWithParams("candles",
		p.inner.Name(), instrument, string(g), start.Unix(), end.Unix())

	var entry cachedRange
	err := p.cache.Get(ctx, key, &entry)
	if err == nil {
		return entry.Candles, entry.Dropped, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) && p.l != nil {
		p.l.Warn("candle cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	candles, dropped, err := p.inner.FetchCandles(ctx, instrument, g, start, end)
	if err != nil {
		return nil, 0, err
	}

	if setErr := p.cache.Set(ctx, key, cachedRange{Candles: candles, Dropped: dropped}, p.ttl); setErr != nil && p.l != nil {
		p.l.Warn("candle cache write failed", applogger.String("key", key), applogger.Error(setErr))
	}
	return candles, dropped, nil
}
