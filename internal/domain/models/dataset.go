package models

import "time"

// ModelReadyRow is one fully joined output record: a candle period, its
// indicator values, and the news signal for the same period. Rows are
// append-only and never fabricated for gap periods.
type ModelReadyRow struct {
	Instrument   string
	PeriodStart  time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Indicators   map[string]float64
	NewsScore    float64
	ArticleCount int
}

// RunReport summarizes data completeness for one (instrument, range)
// run: recorded gaps, dropped malformed records, and periods excluded
// from the final dataset. It is emitted alongside the artifacts so a
// partial dataset is never silent.
type RunReport struct {
	Instrument      string      `json:"instrument"`
	Granularity     Granularity `json:"granularity"`
	Start           time.Time   `json:"start"`
	End             time.Time   `json:"end"`
	Gaps            []Gap       `json:"gaps"`
	MalformedCandles int        `json:"malformed_candles"`
	MalformedArticles int       `json:"malformed_articles"`
	ExcludedPeriods int         `json:"excluded_periods"`
	RowsEmitted     int         `json:"rows_emitted"`
	GeneratedAt     time.Time   `json:"generated_at"`
}
