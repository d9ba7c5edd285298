package repository

import (
	"context"
	"time"

	"FXPull/internal/domain/models"
)

// CandleProvider adapts one external market-data API to the canonical
// candle shape. Implementations are stateless and perform no merging;
// failures are reported through the models error taxonomy.
type CandleProvider interface {
	// Name identifies the provider in logs, metrics, and Candle.Source.
	Name() string

	// Supports reports whether the provider can serve the granularity.
	Supports(g models.Granularity) bool

	// Retention returns how far back from now the provider can serve the
	// granularity. Zero means unlimited.
	Retention(g models.Granularity) time.Duration

	// FetchCandles returns normalized candles for [start, end). Candles
	// that fail normalization are dropped and counted in dropped.
	FetchCandles(ctx context.Context, instrument string, g models.Granularity, start, end time.Time) (candles []models.Candle, dropped int, err error)
}

// NewsProvider adapts one external news API to the canonical article shape.
type NewsProvider interface {
	Name() string
	// Retention returns how far back from now articles can be queried.
	Retention() time.Duration
	FetchArticles(ctx context.Context, instrument string, start, end time.Time) (articles []models.Article, dropped int, err error)
}

// ArtifactStore persists the three stage artifacts, keyed by
// (instrument, granularity). Re-writing a key replaces only that key's
// artifact; stages never mutate another stage's output.
type ArtifactStore interface {
	WriteSeries(s *models.CandleSeries) error
	ReadSeries(instrument string, g models.Granularity) (*models.CandleSeries, error)

	WriteArticles(instrument string, articles []models.Article, dropped int) error
	ReadArticles(instrument string) ([]models.Article, int, error)

	WriteIndicatorRows(instrument string, g models.Granularity, rows []models.IndicatorRow) error
	ReadIndicatorRows(instrument string, g models.Granularity) ([]models.IndicatorRow, error)

	WriteDataset(instrument string, g models.Granularity, rows []models.ModelReadyRow, report *models.RunReport) error
	ReadDataset(instrument string, g models.Granularity) ([]models.ModelReadyRow, error)
	ReadReport(instrument string, g models.Granularity) (*models.RunReport, error)
}

// CandleWarehouse mirrors merged canonical candles into a columnar
// store for ad-hoc querying; the pipeline itself only reads artifacts.
type CandleWarehouse interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, candles []models.Candle) error
	GetCandles(ctx context.Context, instrument string, g models.Granularity, from, to time.Time) ([]models.Candle, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordProviderRequest(provider, outcome string)
	RecordProviderLatency(provider string, seconds float64)
	RecordRetry(provider string)
	RecordCandlesMerged(instrument string, n int)
	RecordGap(instrument string, periods int)
	RecordDropped(kind string, n int)
	RecordStageDuration(stage string, seconds float64)
}
