package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FXPull/internal/domain/models"
	pkgch "FXPull/pkg/clickhouse"
	applogger "FXPull/pkg/logger"
)

// CHWarehouse implements CandleWarehouse backed by ClickHouse. It is an
// optional mirror of the merged canonical series for ad-hoc SQL; the
// file artifacts remain the source of truth.
type CHWarehouse struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHWarehouse(ch *pkgch.Client, l *applogger.Logger) *CHWarehouse {
	return &CHWarehouse{ch: ch, db: ch.DB(), l: l}
}

var schemaStmts = []string{
	`CREATE DATABASE IF NOT EXISTS fxpull`,
	`CREATE TABLE IF NOT EXISTS fxpull.candles (
        instrument  LowCardinality(String),
        granularity LowCardinality(String),
        ts          DateTime('UTC'),
        open        Float64,
        high        Float64,
        low         Float64,
        close       Float64,
        vol         Float64,
        source      LowCardinality(String)
    ) ENGINE = ReplacingMergeTree
      ORDER BY (instrument, granularity, ts)`,
}

// Init ensures the database and candle table exist (idempotent).
func (w *CHWarehouse) Init(ctx context.Context) error {
	return w.ch.InitSchema(ctx, schemaStmts)
}

// StoreBatch inserts candles in one batch. Re-inserting the same
// periods is safe: the ReplacingMergeTree collapses duplicates by key.
func (w *CHWarehouse) StoreBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("warehouse begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fxpull.candles (instrument, granularity, ts, open, high, low, close, vol, source)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("warehouse prepare: %w", err)
	}
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			c.Instrument, string(c.Granularity), c.Timestamp,
			c.Open, c.High, c.Low, c.Close, c.Volume, c.Source); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("warehouse insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("warehouse commit: %w", err)
	}

	if w.l != nil {
		w.l.Info("warehouse batch stored",
			applogger.String("instrument", candles[0].Instrument),
			applogger.Int("rows", len(candles)),
			applogger.Duration("duration_ms", time.Since(start)))
	}
	return nil
}

func (w *CHWarehouse) GetCandles(ctx context.Context, instrument string, g models.Granularity, from, to time.Time) ([]models.Candle, error) {
	const q = `
        SELECT instrument, granularity, ts, open, high, low, close, vol, source
        FROM fxpull.candles FINAL
        WHERE instrument = ? AND granularity = ? AND ts >= ? AND ts < ?
        ORDER BY ts ASC
    `
	rows, err := w.db.QueryContext(ctx, q, instrument, string(g), from, to)
	if err != nil {
		if w.l != nil {
			w.l.Error("warehouse get_candles query error",
				applogger.String("instrument", instrument),
				applogger.String("granularity", string(g)),
				applogger.Error(err))
		}
		return nil, fmt.Errorf("warehouse get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var (
			c    models.Candle
			gran string
		)
		if err := rows.Scan(&c.Instrument, &gran, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Source); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Granularity = models.Granularity(gran)
		c.Timestamp = c.Timestamp.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (w *CHWarehouse) Health(ctx context.Context) error {
	return w.ch.Health(ctx)
}

func (w *CHWarehouse) Close() error {
	return w.ch.Close()
}
