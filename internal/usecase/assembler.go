package usecase

import (
	"fmt"
	"time"

	"FXPull/internal/domain/models"
	applogger "FXPull/pkg/logger"
)

// DatasetAssembler joins indicator rows with aligned news signals into
// the final model-ready table. Periods inside recorded gaps are
// excluded, never fabricated, and every exclusion is counted into the
// run report.
type DatasetAssembler struct {
	l *applogger.Logger

	now func() time.Time
}

// NewDatasetAssembler creates a DatasetAssembler.
func NewDatasetAssembler(l *applogger.Logger) *DatasetAssembler {
	return &DatasetAssembler{l: l, now: time.Now}
}

// AssembleInput carries one run's artifacts plus its data-quality
// counters into the join.
type AssembleInput struct {
	Series            *models.CandleSeries
	Rows              []models.IndicatorRow
	Signals           []models.NewsSignal
	MalformedCandles  int
	MalformedArticles int
}

// Assemble produces the model-ready rows and the run report. Rows come
// out strictly increasing by period with no duplicates; a period
// missing its news signal falls back to the neutral default.
func (a *DatasetAssembler) Assemble(in AssembleInput) ([]models.ModelReadyRow, *models.RunReport, error) {
	series := in.Series
	if series == nil {
		return nil, nil, fmt.Errorf("assembler: series required")
	}

	signalFor := make(map[int64]models.NewsSignal, len(in.Signals))
	for _, s := range in.Signals {
		signalFor[s.PeriodStart.Unix()] = s
	}

	rows := make([]models.ModelReadyRow, 0, len(in.Rows))
	var lastPeriod time.Time
	for _, ir := range in.Rows {
		if series.InGap(ir.Timestamp) {
			continue
		}
		if !lastPeriod.IsZero() && !ir.Timestamp.After(lastPeriod) {
			return nil, nil, fmt.Errorf("assembler: rows out of order at %s", ir.Timestamp.Format(time.RFC3339))
		}
		lastPeriod = ir.Timestamp

		row := models.ModelReadyRow{
			Instrument:  series.Instrument,
			PeriodStart: ir.Timestamp,
			Open:        ir.Open,
			High:        ir.High,
			Low:         ir.Low,
			Close:       ir.Close,
			Volume:      ir.Volume,
			Indicators:  ir.Values,
		}
		if s, ok := signalFor[ir.Timestamp.Unix()]; ok {
			row.NewsScore = s.Score
			row.ArticleCount = s.ArticleCount
		}
		rows = append(rows, row)
	}

	report := &models.RunReport{
		Instrument:        series.Instrument,
		Granularity:       series.Granularity,
		Start:             series.Start,
		End:               series.End,
		Gaps:              series.Gaps,
		MalformedCandles:  in.MalformedCandles,
		MalformedArticles: in.MalformedArticles,
		ExcludedPeriods:   series.GapPeriods(),
		RowsEmitted:       len(rows),
		GeneratedAt:       a.now().UTC(),
	}

	a.l.Info("dataset assembled",
		applogger.String("instrument", series.Instrument),
		applogger.Int("rows", len(rows)),
		applogger.Int("excluded_periods", report.ExcludedPeriods))
	return rows, report, nil
}
