package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"FXPull/internal/domain/models"
	applogger "FXPull/pkg/logger"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), applogger.Nop())
	require.NoError(t, err)
	return store
}

func TestFileStoreSeriesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	series := &models.CandleSeries{
		Instrument:  "EURUSD",
		Granularity: models.Gran1h,
		Start:       start,
		End:         start.Add(4 * time.Hour),
		Candles: []models.Candle{
			{Instrument: "EURUSD", Timestamp: start, Open: 1.1, High: 1.2, Low: 1.05, Close: 1.15, Volume: 100, Granularity: models.Gran1h, Source: "finnhub"},
			{Instrument: "EURUSD", Timestamp: start.Add(time.Hour), Open: 1.15, High: 1.18, Low: 1.1, Close: 1.12, Granularity: models.Gran1h, Source: "yahoo"},
		},
		Gaps:    []models.Gap{{Start: start.Add(2 * time.Hour), End: start.Add(4 * time.Hour), Periods: 2}},
		Dropped: 3,
	}
	require.NoError(t, store.WriteSeries(series))

	got, err := store.ReadSeries("EURUSD", models.Gran1h)
	require.NoError(t, err)
	require.Equal(t, series.Start, got.Start)
	require.Equal(t, series.End, got.End)
	require.Equal(t, series.Gaps, got.Gaps)
	require.Equal(t, 3, got.Dropped)
	require.Len(t, got.Candles, 2)
	require.Equal(t, series.Candles[0], got.Candles[0])
	require.Equal(t, "yahoo", got.Candles[1].Source)
}

func TestFileStoreArticlesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	articles := []models.Article{
		{Instrument: "EURUSD", PublishedAt: at, Headline: "euro, commas \"and quotes\"", Body: "body text", URL: "https://example.com/a", Source: "wire"},
	}
	require.NoError(t, store.WriteArticles("EURUSD", articles, 2))

	got, dropped, err := store.ReadArticles("EURUSD")
	require.NoError(t, err)
	require.Equal(t, 2, dropped)
	require.Equal(t, articles, got)
}

func TestFileStoreIndicatorRowsPreserveUndefined(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := []models.IndicatorRow{
		{
			Candle: models.Candle{Instrument: "EURUSD", Timestamp: start, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Granularity: models.Gran1h, Source: "finnhub"},
			Values: map[string]float64{},
		},
		{
			Candle: models.Candle{Instrument: "EURUSD", Timestamp: start.Add(time.Hour), Open: 1.15, High: 1.2, Low: 1.1, Close: 1.18, Granularity: models.Gran1h, Source: "finnhub"},
			Values: map[string]float64{models.IndReturn1: 0.0261, models.IndRSI14: 61.5},
		},
	}
	require.NoError(t, store.WriteIndicatorRows("EURUSD", models.Gran1h, rows))

	got, err := store.ReadIndicatorRows("EURUSD", models.Gran1h)
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, defined := got[0].Value(models.IndReturn1)
	require.False(t, defined, "undefined cell must stay undefined")
	v, defined := got[1].Value(models.IndReturn1)
	require.True(t, defined)
	require.Equal(t, 0.0261, v)
}

func TestFileStoreDatasetAndReportRoundTrip(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := []models.ModelReadyRow{
		{
			Instrument:   "EURUSD",
			PeriodStart:  start,
			Open:         1.1, High: 1.2, Low: 1.0, Close: 1.15, Volume: 10,
			Indicators:   map[string]float64{models.IndSMA20: 1.12},
			NewsScore:    0.5,
			ArticleCount: 2,
		},
	}
	report := &models.RunReport{
		Instrument:      "EURUSD",
		Granularity:     models.Gran1h,
		Start:           start,
		End:             start.Add(24 * time.Hour),
		Gaps:            []models.Gap{{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), Periods: 1}},
		ExcludedPeriods: 1,
		RowsEmitted:     1,
		GeneratedAt:     start.Add(25 * time.Hour),
	}
	require.NoError(t, store.WriteDataset("EURUSD", models.Gran1h, rows, report))

	gotRows, err := store.ReadDataset("EURUSD", models.Gran1h)
	require.NoError(t, err)
	require.Equal(t, rows, gotRows)

	gotReport, err := store.ReadReport("EURUSD", models.Gran1h)
	require.NoError(t, err)
	require.Equal(t, report, gotReport)
}

func TestFileStoreOverwriteReplacesOnlyOwnKey(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	write := func(instrument string, n int) {
		var candles []models.Candle
		for i := 0; i < n; i++ {
			candles = append(candles, models.Candle{
				Instrument: instrument, Timestamp: start.Add(time.Duration(i) * time.Hour),
				Open: 1, High: 1, Low: 1, Close: 1, Granularity: models.Gran1h, Source: "finnhub",
			})
		}
		require.NoError(t, store.WriteSeries(&models.CandleSeries{
			Instrument: instrument, Granularity: models.Gran1h,
			Start: start, End: start.Add(time.Duration(n) * time.Hour), Candles: candles,
		}))
	}
	write("EURUSD", 3)
	write("GBPUSD", 5)
	write("EURUSD", 1) // overwrite

	eur, err := store.ReadSeries("EURUSD", models.Gran1h)
	require.NoError(t, err)
	require.Len(t, eur.Candles, 1)

	gbp, err := store.ReadSeries("GBPUSD", models.Gran1h)
	require.NoError(t, err)
	require.Len(t, gbp.Candles, 5)
}
