package usecase

import (
	"testing"
	"time"

	"FXPull/internal/domain/models"
	applogger "FXPull/pkg/logger"
)

func testSeries(candles []models.Candle, gaps []models.Gap) *models.CandleSeries {
	s := &models.CandleSeries{
		Instrument:  "EURUSD",
		Granularity: models.Gran1h,
		Candles:     candles,
		Gaps:        gaps,
	}
	if len(candles) > 0 {
		s.Start = candles[0].Timestamp
		s.End = candles[len(candles)-1].Timestamp.Add(time.Hour)
	}
	return s
}

func TestComputeLookbackDiscipline(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	candles := gridCandles("EURUSD", models.Gran1h, start, start.Add(50*time.Hour), "primary", 1.10)
	engine := NewIndicatorEngine(applogger.Nop())

	rows := engine.Compute(testSeries(candles, nil))
	if len(rows) != len(candles) {
		t.Fatalf("expected %d rows, got %d", len(candles), len(rows))
	}

	// lookback: index of first defined row per indicator
	firstDefined := map[string]int{
		models.IndSMA20:      19,
		models.IndEMA12:      11,
		models.IndEMA26:      25,
		models.IndRSI14:      14,
		models.IndMACD:       25,
		models.IndMACDSignal: 33,
		models.IndBBUpper:    19,
		models.IndBBLower:    19,
		models.IndBBPercent:  19,
		models.IndATR14:      14,
		models.IndZScore20:   19,
		models.IndReturn1:    1,
		models.IndReturn5:    5,
	}
	for name, first := range firstDefined {
		for i := range rows {
			_, defined := rows[i].Value(name)
			if i < first && defined {
				t.Fatalf("%s defined at row %d, before lookback %d", name, i, first)
			}
			if i >= first && !defined {
				t.Fatalf("%s undefined at row %d, lookback %d satisfied", name, i, first)
			}
		}
	}
}

func TestComputeGapResetsLookback(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	first := gridCandles("EURUSD", models.Gran1h, start, start.Add(30*time.Hour), "primary", 1.10)
	resume := start.Add(40 * time.Hour)
	second := gridCandles("EURUSD", models.Gran1h, resume, resume.Add(30*time.Hour), "primary", 1.11)
	candles := append(append([]models.Candle{}, first...), second...)

	gap := models.Gap{Start: start.Add(30 * time.Hour), End: resume, Periods: 10}
	engine := NewIndicatorEngine(applogger.Nop())
	rows := engine.Compute(testSeries(candles, []models.Gap{gap}))

	// The run after the gap must warm up from scratch: its first row
	// has no 1-period return, its 20th is the first with an SMA.
	resumeIdx := len(first)
	if _, ok := rows[resumeIdx].Value(models.IndReturn1); ok {
		t.Fatal("return_1 defined on first row after gap")
	}
	if _, ok := rows[resumeIdx+18].Value(models.IndSMA20); ok {
		t.Fatal("sma_20 defined before post-gap lookback satisfied")
	}
	if _, ok := rows[resumeIdx+19].Value(models.IndSMA20); !ok {
		t.Fatal("sma_20 undefined after post-gap lookback satisfied")
	}
}

func TestComputeNoLookAhead(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	candles := gridCandles("EURUSD", models.Gran1h, start, start.Add(40*time.Hour), "primary", 1.10)
	engine := NewIndicatorEngine(applogger.Nop())

	full := engine.Compute(testSeries(candles, nil))
	truncated := engine.Compute(testSeries(candles[:30], nil))

	// A value at row i must not change when later candles are removed.
	for i := 0; i < 30; i++ {
		for _, name := range models.IndicatorCatalog {
			fv, fok := full[i].Value(name)
			tv, tok := truncated[i].Value(name)
			if fok != tok || (fok && fv != tv) {
				t.Fatalf("%s at row %d depends on future periods", name, i)
			}
		}
	}
}
