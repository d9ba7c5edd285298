package usecase

import (
	"math"

	"FXPull/internal/domain/models"
	"FXPull/internal/services/features"
	applogger "FXPull/pkg/logger"
)

// IndicatorEngine maps a CandleSeries to IndicatorRows. Lookbacks are
// evaluated per gap-free run: a recorded gap resets every window, so no
// value is ever smoothed across missing periods.
type IndicatorEngine struct {
	l *applogger.Logger
}

// NewIndicatorEngine creates an IndicatorEngine.
func NewIndicatorEngine(l *applogger.Logger) *IndicatorEngine {
	return &IndicatorEngine{l: l}
}

// Compute returns one row per candle, in timestamp order. An indicator
// appears in a row's Values only once its lookback is satisfied within
// the row's run; absence means undefined, never zero.
func (e *IndicatorEngine) Compute(series *models.CandleSeries) []models.IndicatorRow {
	rows := make([]models.IndicatorRow, 0, len(series.Candles))
	for _, run := range series.Runs() {
		rows = append(rows, computeRun(run)...)
	}
	e.l.Info("indicators computed",
		applogger.String("instrument", series.Instrument),
		applogger.String("granularity", string(series.Granularity)),
		applogger.Int("rows", len(rows)))
	return rows
}

func computeRun(run []models.Candle) []models.IndicatorRow {
	closes := features.Closes(run)

	columns := map[string][]float64{
		models.IndSMA20:    features.SMA(closes, 20),
		models.IndEMA12:    features.EMA(closes, 12),
		models.IndEMA26:    features.EMA(closes, 26),
		models.IndRSI14:    features.RSI(closes, 14),
		models.IndATR14:    features.ATR(run, 14),
		models.IndZScore20: features.ZScore(closes, 20),
		models.IndReturn1:  features.Returns(closes, 1),
		models.IndReturn5:  features.Returns(closes, 5),
	}
	columns[models.IndMACD], columns[models.IndMACDSignal] = features.MACD(closes)
	columns[models.IndBBUpper], columns[models.IndBBLower], columns[models.IndBBPercent] = features.Bollinger(closes, 20, 2.0)

	rows := make([]models.IndicatorRow, len(run))
	for i, c := range run {
		values := make(map[string]float64, len(models.IndicatorCatalog))
		for _, name := range models.IndicatorCatalog {
			if v := columns[name][i]; !math.IsNaN(v) {
				values[name] = v
			}
		}
		rows[i] = models.IndicatorRow{Candle: c, Values: values}
	}
	return rows
}
