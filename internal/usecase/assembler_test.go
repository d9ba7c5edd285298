package usecase

import (
	"testing"
	"time"

	"FXPull/internal/domain/models"
	applogger "FXPull/pkg/logger"
)

func TestAssembleExcludesGapPeriods(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	gapStart := start.Add(2 * 24 * time.Hour)
	gapEnd := gapStart.Add(3 * 24 * time.Hour)
	end := start.Add(8 * 24 * time.Hour)

	var candles []models.Candle
	for _, c := range gridCandles("EURUSD", models.Gran1h, start, end, "primary", 1.10) {
		if !c.Timestamp.Before(gapStart) && c.Timestamp.Before(gapEnd) {
			continue
		}
		candles = append(candles, c)
	}
	series := &models.CandleSeries{
		Instrument:  "EURUSD",
		Granularity: models.Gran1h,
		Start:       start,
		End:         end,
		Candles:     candles,
		Gaps:        []models.Gap{{Start: gapStart, End: gapEnd, Periods: 72}},
	}

	engine := NewIndicatorEngine(applogger.Nop())
	rows := engine.Compute(series)
	signals := AlignArticles("EURUSD", models.Gran1h, start, end, nil)

	assembler := NewDatasetAssembler(applogger.Nop())
	out, report, err := assembler.Assemble(AssembleInput{Series: series, Rows: rows, Signals: signals})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, row := range out {
		if !row.PeriodStart.Before(gapStart) && row.PeriodStart.Before(gapEnd) {
			t.Fatalf("row fabricated inside gap at %s", row.PeriodStart)
		}
	}
	if report.ExcludedPeriods != 72 {
		t.Fatalf("expected 72 excluded periods, got %d", report.ExcludedPeriods)
	}
	if report.RowsEmitted != len(out) {
		t.Fatalf("report rows %d != emitted %d", report.RowsEmitted, len(out))
	}
	if len(out) != len(candles) {
		t.Fatalf("expected %d rows, got %d", len(candles), len(out))
	}
}

func TestAssembleJoinsNewsSignals(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	candles := gridCandles("EURUSD", models.Gran1h, start, end, "primary", 1.10)
	series := &models.CandleSeries{
		Instrument:  "EURUSD",
		Granularity: models.Gran1h,
		Start:       start,
		End:         end,
		Candles:     candles,
	}

	engine := NewIndicatorEngine(applogger.Nop())
	rows := engine.Compute(series)
	articles := []models.Article{
		article("EURUSD", start.Add(time.Hour+10*time.Minute), "euro rallies strongly"),
	}
	signals := AlignArticles("EURUSD", models.Gran1h, start, end, articles)

	assembler := NewDatasetAssembler(applogger.Nop())
	out, _, err := assembler.Assemble(AssembleInput{Series: series, Rows: rows, Signals: signals})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(out))
	}
	for _, row := range out {
		if row.PeriodStart.Equal(start.Add(time.Hour)) {
			if row.ArticleCount != 1 || row.NewsScore <= 0 {
				t.Fatalf("expected positive signal joined, got count=%d score=%v", row.ArticleCount, row.NewsScore)
			}
			continue
		}
		if row.ArticleCount != 0 || row.NewsScore != 0 {
			t.Fatalf("expected neutral default at %s", row.PeriodStart)
		}
	}
}

func TestAssembleMissingSignalFallsBackToNeutral(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	candles := gridCandles("EURUSD", models.Gran1h, start, end, "primary", 1.10)
	series := &models.CandleSeries{
		Instrument:  "EURUSD",
		Granularity: models.Gran1h,
		Start:       start,
		End:         end,
		Candles:     candles,
	}
	engine := NewIndicatorEngine(applogger.Nop())
	rows := engine.Compute(series)

	assembler := NewDatasetAssembler(applogger.Nop())
	out, _, err := assembler.Assemble(AssembleInput{Series: series, Rows: rows, Signals: nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range out {
		if row.NewsScore != 0 || row.ArticleCount != 0 {
			t.Fatalf("expected neutral fallback, got score=%v count=%d", row.NewsScore, row.ArticleCount)
		}
	}
}

func TestAssembleReportsMalformedCounts(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	candles := gridCandles("EURUSD", models.Gran1h, start, end, "primary", 1.10)
	series := &models.CandleSeries{
		Instrument:  "EURUSD",
		Granularity: models.Gran1h,
		Start:       start,
		End:         end,
		Candles:     candles,
	}
	engine := NewIndicatorEngine(applogger.Nop())
	rows := engine.Compute(series)

	assembler := NewDatasetAssembler(applogger.Nop())
	_, report, err := assembler.Assemble(AssembleInput{
		Series:            series,
		Rows:              rows,
		MalformedCandles:  2,
		MalformedArticles: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.MalformedCandles != 2 || report.MalformedArticles != 5 {
		t.Fatalf("report counters wrong: %+v", report)
	}
}
