package di

import (
	"context"
	"fmt"
	"time"

	drepo "FXPull/internal/domain/repository"
	"FXPull/internal/handler/api"
	internalrepo "FXPull/internal/repository"
	"FXPull/internal/service/alphavantage"
	"FXPull/internal/service/finnhub"
	"FXPull/internal/service/newsapi"
	"FXPull/internal/service/ratelimit"
	"FXPull/internal/service/yahoo"
	"FXPull/internal/usecase"
	"FXPull/pkg/cache"
	pkgch "FXPull/pkg/clickhouse"
	"FXPull/pkg/config"
	xhttp "FXPull/pkg/http"
	applogger "FXPull/pkg/logger"
	"FXPull/pkg/metrics"
	"FXPull/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideLimiter creates the shared per-provider rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideCacheService creates the response cache, or nil when caching
// is disabled. Redis-backed when configured, in-memory otherwise.
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return cache.NewLayeredCache(rc), nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideCandleProviders creates the candle providers in priority
// order: the primary first, then the fallbacks the orchestrator walks
// when a range is outside the primary's retention.
func ProvideCandleProviders(cfg *config.Config, svc cache.Service, l *applogger.Logger) []drepo.CandleProvider {
	wrap := func(p drepo.CandleProvider) drepo.CandleProvider {
		if svc == nil {
			return p
		}
		return internalrepo.NewCachedCandleProvider(p, svc, cfg.Cache.TTL, l)
	}

	primary := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.BaseURL,
		time.Duration(cfg.Finnhub.IntradayRetentionDays)*24*time.Hour,
		cfg.Fetch.Timeout,
		l,
	)
	av := alphavantage.New(cfg.AlphaVantage.APIKey, cfg.AlphaVantage.BaseURL, cfg.Fetch.Timeout, l)
	yh := yahoo.New(
		cfg.Yahoo.BaseURL,
		time.Duration(cfg.Yahoo.IntradayRetentionDays)*24*time.Hour,
		cfg.Fetch.Timeout,
		l,
	)

	return []drepo.CandleProvider{wrap(primary), wrap(av), wrap(yh)}
}

// ProvideNewsProvider creates the news provider.
func ProvideNewsProvider(cfg *config.Config, l *applogger.Logger) drepo.NewsProvider {
	return newsapi.New(
		cfg.News.APIKey,
		cfg.News.BaseURL,
		time.Duration(cfg.News.RetentionDays)*24*time.Hour,
		cfg.News.PageSize,
		cfg.Fetch.Timeout,
		l,
	)
}

// ProvideOrchestrator creates the source orchestrator.
func ProvideOrchestrator(
	providers []drepo.CandleProvider,
	limiter *ratelimit.Limiter,
	metrics drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SourceOrchestrator {
	return usecase.NewSourceOrchestrator(providers, limiter, metrics, l, usecase.OrchestratorOptions{
		MaxRetries:     uint64(cfg.Fetch.MaxRetries),
		BackoffInitial: cfg.Fetch.BackoffInitial,
		BackoffMax:     cfg.Fetch.BackoffMax,
		Rates: map[string]float64{
			finnhub.Name:      cfg.Finnhub.RatePerMin,
			alphavantage.Name: cfg.AlphaVantage.RatePerMin,
			yahoo.Name:        cfg.Yahoo.RatePerMin,
		},
	})
}

// ProvideNewsUsecase creates the news fetch/align use case.
func ProvideNewsUsecase(
	provider drepo.NewsProvider,
	limiter *ratelimit.Limiter,
	metrics drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.NewsUsecase {
	return usecase.NewNewsUsecase(provider, limiter, metrics, l, usecase.NewsOptions{
		WindowDays:     cfg.News.WindowDays,
		MaxRetries:     uint64(cfg.Fetch.MaxRetries),
		BackoffInitial: cfg.Fetch.BackoffInitial,
		BackoffMax:     cfg.Fetch.BackoffMax,
		RatePerMin:     cfg.News.RatePerMin,
	})
}

// ProvideIndicatorEngine creates the indicator engine.
func ProvideIndicatorEngine(l *applogger.Logger) *usecase.IndicatorEngine {
	return usecase.NewIndicatorEngine(l)
}

// ProvideAssembler creates the dataset assembler.
func ProvideAssembler(l *applogger.Logger) *usecase.DatasetAssembler {
	return usecase.NewDatasetAssembler(l)
}

// ProvideArtifactStore creates the file-based artifact store.
func ProvideArtifactStore(cfg *config.Config, l *applogger.Logger) (drepo.ArtifactStore, error) {
	return internalrepo.NewFileStore(cfg.DataDir, l)
}

// ProvideWarehouse creates the ClickHouse candle warehouse, or nil
// when the warehouse is disabled.
func ProvideWarehouse(cfg *config.Config, l *applogger.Logger) (drepo.CandleWarehouse, error) {
	if !cfg.Warehouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Warehouse.ClickHouse.Host),
		pkgch.WithPort(cfg.Warehouse.ClickHouse.Port),
		pkgch.WithDatabase(cfg.Warehouse.ClickHouse.Database),
		pkgch.WithCredentials(cfg.Warehouse.ClickHouse.User, cfg.Warehouse.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.Warehouse.ClickHouse.DialTimeout, cfg.Warehouse.ClickHouse.ReadTimeout, cfg.Warehouse.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	wh := internalrepo.NewCHWarehouse(client, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := wh.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return wh, nil
}

// ProvidePipeline creates the staged pipeline.
func ProvidePipeline(
	orchestrator *usecase.SourceOrchestrator,
	news *usecase.NewsUsecase,
	engine *usecase.IndicatorEngine,
	assembler *usecase.DatasetAssembler,
	store drepo.ArtifactStore,
	warehouse drepo.CandleWarehouse,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(orchestrator, news, engine, assembler, store, warehouse, metrics, l)
}

// ProvideArtifactsUseCase creates the artifact inspection use case.
func ProvideArtifactsUseCase(store drepo.ArtifactStore, warehouse drepo.CandleWarehouse) *usecase.ArtifactsUseCase {
	return usecase.NewArtifactsUseCase(store, warehouse)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(l *applogger.Logger, artifacts *usecase.ArtifactsUseCase) xhttp.Handler {
	return api.NewArtifactsHandler(l, artifacts)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	pipeline *usecase.Pipeline,
	handler xhttp.Handler,
	warehouse drepo.CandleWarehouse,
) *server.App {
	return server.New(cfg, l, pipeline, handler, warehouse)
}
