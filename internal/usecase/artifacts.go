package usecase

import (
	"context"
	"fmt"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
)

// ArtifactsUseCase provides read access to persisted artifacts for the
// inspection API.
type ArtifactsUseCase struct {
	store     drepo.ArtifactStore
	warehouse drepo.CandleWarehouse // may be nil
}

func NewArtifactsUseCase(store drepo.ArtifactStore, warehouse drepo.CandleWarehouse) *ArtifactsUseCase {
	return &ArtifactsUseCase{store: store, warehouse: warehouse}
}

type GetSeriesParams struct {
	Instrument  string
	Granularity models.Granularity
	Limit       int
}

type GetSeriesResult struct {
	Instrument  string
	Granularity string
	Start       time.Time
	End         time.Time
	Count       int
	GapPeriods  int
	Candles     []models.Candle
	Gaps        []models.Gap
}

func (uc *ArtifactsUseCase) GetSeries(p GetSeriesParams) (*GetSeriesResult, error) {
	if p.Instrument == "" {
		return nil, fmt.Errorf("instrument required")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	series, err := uc.store.ReadSeries(p.Instrument, p.Granularity)
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	candles := series.Candles
	if len(candles) > p.Limit {
		candles = candles[len(candles)-p.Limit:]
	}

	return &GetSeriesResult{
		Instrument:  series.Instrument,
		Granularity: string(series.Granularity),
		Start:       series.Start,
		End:         series.End,
		Count:       len(candles),
		GapPeriods:  series.GapPeriods(),
		Candles:     candles,
		Gaps:        series.Gaps,
	}, nil
}

func (uc *ArtifactsUseCase) GetReport(instrument string, g models.Granularity) (*models.RunReport, error) {
	if instrument == "" {
		return nil, fmt.Errorf("instrument required")
	}
	report, err := uc.store.ReadReport(instrument, g)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return report, nil
}

type GetDatasetParams struct {
	Instrument  string
	Granularity models.Granularity
	Limit       int
}

func (uc *ArtifactsUseCase) GetDataset(p GetDatasetParams) ([]models.ModelReadyRow, error) {
	if p.Instrument == "" {
		return nil, fmt.Errorf("instrument required")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}
	rows, err := uc.store.ReadDataset(p.Instrument, p.Granularity)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(rows) > p.Limit {
		rows = rows[len(rows)-p.Limit:]
	}
	return rows, nil
}

// GetWarehouseCandles queries the columnar mirror directly; it fails
// when mirroring is disabled.
func (uc *ArtifactsUseCase) GetWarehouseCandles(ctx context.Context, instrument string, g models.Granularity, from, to time.Time) ([]models.Candle, error) {
	if uc.warehouse == nil {
		return nil, fmt.Errorf("warehouse disabled")
	}
	if from.After(to) {
		return nil, fmt.Errorf("from must be <= to")
	}
	candles, err := uc.warehouse.GetCandles(ctx, instrument, g, from, to)
	if err != nil {
		return nil, fmt.Errorf("warehouse candles: %w", err)
	}
	return candles, nil
}
