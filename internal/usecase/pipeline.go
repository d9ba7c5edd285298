package usecase

import (
	"context"
	"fmt"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	applogger "FXPull/pkg/logger"
)

// Request is one fully resolved pipeline invocation target.
type Request struct {
	Instrument  string
	Granularity models.Granularity
	Start       time.Time
	End         time.Time
}

func (r Request) validate() error {
	if r.Instrument == "" {
		return fmt.Errorf("request: instrument required")
	}
	if !models.IsValidGranularity(r.Granularity) {
		return fmt.Errorf("request: invalid granularity %q", r.Granularity)
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("request: empty range")
	}
	return nil
}

// Pipeline wires the four stages over a shared artifact store. Each
// stage reads the prior stage's artifact and overwrites only its own,
// so any stage can be re-run for the same key in isolation.
type Pipeline struct {
	orchestrator *SourceOrchestrator
	news         *NewsUsecase
	engine       *IndicatorEngine
	assembler    *DatasetAssembler
	store        drepo.ArtifactStore
	warehouse    drepo.CandleWarehouse // optional mirror, may be nil
	metrics      drepo.Metrics
	l            *applogger.Logger
	quality      *applogger.QualityCollector
}

// NewPipeline creates a Pipeline. warehouse may be nil when mirroring
// is disabled.
func NewPipeline(
	orchestrator *SourceOrchestrator,
	news *NewsUsecase,
	engine *IndicatorEngine,
	assembler *DatasetAssembler,
	store drepo.ArtifactStore,
	warehouse drepo.CandleWarehouse,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *Pipeline {
	return &Pipeline{
		orchestrator: orchestrator,
		news:         news,
		engine:       engine,
		assembler:    assembler,
		store:        store,
		warehouse:    warehouse,
		metrics:      metrics,
		l:            l,
		quality:      applogger.NewQualityCollector(),
	}
}

// RunFetch acquires the canonical candle series and persists it as the
// raw artifact.
func (p *Pipeline) RunFetch(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	defer p.timeStage("fetch")()

	series, dropped, err := p.orchestrator.BuildSeries(ctx, req.Instrument, req.Granularity, req.Start, req.End)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", req.Instrument, err)
	}
	series.Dropped = dropped
	p.quality.Add(req.Instrument, "malformed_candle", dropped)

	if err := p.store.WriteSeries(series); err != nil {
		return fmt.Errorf("write series %s: %w", req.Instrument, err)
	}
	if p.warehouse != nil && len(series.Candles) > 0 {
		if err := p.warehouse.StoreBatch(ctx, series.Candles); err != nil {
			// The artifact is the source of truth; a warehouse miss is
			// an observability loss, not a stage failure.
			p.l.Warn("warehouse mirror failed",
				applogger.String("instrument", req.Instrument),
				applogger.Error(err))
		}
	}
	return nil
}

// RunNews acquires articles for the window and persists them as the
// raw news artifact.
func (p *Pipeline) RunNews(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	defer p.timeStage("news")()

	articles, dropped, err := p.news.FetchArticles(ctx, req.Instrument, req.Start, req.End)
	if err != nil {
		return fmt.Errorf("news %s: %w", req.Instrument, err)
	}
	p.quality.Add(req.Instrument, "malformed_article", dropped)
	if err := p.store.WriteArticles(req.Instrument, articles, dropped); err != nil {
		return fmt.Errorf("write articles %s: %w", req.Instrument, err)
	}
	return nil
}

// RunIndicators computes indicator rows from the stored series.
func (p *Pipeline) RunIndicators(_ context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	defer p.timeStage("indicators")()

	series, err := p.store.ReadSeries(req.Instrument, req.Granularity)
	if err != nil {
		return fmt.Errorf("read series %s: %w", req.Instrument, err)
	}
	rows := p.engine.Compute(series)
	if err := p.store.WriteIndicatorRows(req.Instrument, req.Granularity, rows); err != nil {
		return fmt.Errorf("write indicator rows %s: %w", req.Instrument, err)
	}
	return nil
}

// RunDataset joins stored indicator rows with aligned news signals into
// the model-ready artifact plus its run report.
func (p *Pipeline) RunDataset(_ context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	defer p.timeStage("dataset")()

	series, err := p.store.ReadSeries(req.Instrument, req.Granularity)
	if err != nil {
		return fmt.Errorf("read series %s: %w", req.Instrument, err)
	}
	rows, err := p.store.ReadIndicatorRows(req.Instrument, req.Granularity)
	if err != nil {
		return fmt.Errorf("read indicator rows %s: %w", req.Instrument, err)
	}
	articles, droppedArticles, err := p.store.ReadArticles(req.Instrument)
	if err != nil {
		// News is optional input: a dataset without news carries the
		// neutral default everywhere.
		p.l.Warn("no news artifact, using neutral defaults",
			applogger.String("instrument", req.Instrument),
			applogger.Error(err))
		articles, droppedArticles = nil, 0
	}

	signals := AlignArticles(req.Instrument, req.Granularity, series.Start, series.End, articles)
	out, report, err := p.assembler.Assemble(AssembleInput{
		Series:            series,
		Rows:              rows,
		Signals:           signals,
		MalformedCandles:  series.Dropped,
		MalformedArticles: droppedArticles,
	})
	if err != nil {
		return fmt.Errorf("assemble %s: %w", req.Instrument, err)
	}
	if err := p.store.WriteDataset(req.Instrument, req.Granularity, out, report); err != nil {
		return fmt.Errorf("write dataset %s: %w", req.Instrument, err)
	}
	return nil
}

// RunAll executes fetch, news, indicators, and dataset in order.
func (p *Pipeline) RunAll(ctx context.Context, req Request) error {
	if err := p.RunFetch(ctx, req); err != nil {
		return err
	}
	if err := p.RunNews(ctx, req); err != nil {
		return err
	}
	if err := p.RunIndicators(ctx, req); err != nil {
		return err
	}
	if err := p.RunDataset(ctx, req); err != nil {
		return err
	}

	// One aggregated defect line per bucket instead of a log entry per
	// discarded record.
	for _, e := range p.quality.Drain() {
		p.l.Warn("data quality defects",
			applogger.String("instrument", e.Instrument),
			applogger.String("kind", e.Kind),
			applogger.Int("count", e.Count))
	}
	return nil
}

func (p *Pipeline) timeStage(stage string) func() {
	began := time.Now()
	return func() {
		p.metrics.RecordStageDuration(stage, time.Since(began).Seconds())
	}
}
