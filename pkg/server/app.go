package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	"FXPull/internal/usecase"
	"FXPull/pkg/config"
	xhttp "FXPull/pkg/http"
	applogger "FXPull/pkg/logger"
	"FXPull/pkg/util"
)

// App encapsulates the application lifecycle: either a one-shot
// pipeline stage over all configured pairs, or the inspection server.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	pipeline   *usecase.Pipeline
	handler    xhttp.Handler
	warehouse  drepo.CandleWarehouse
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	pipeline *usecase.Pipeline,
	handler xhttp.Handler,
	warehouse drepo.CandleWarehouse,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		pipeline:  pipeline,
		handler:   handler,
		warehouse: warehouse,
	}
}

// Run executes the named stage and returns when it completes. The
// "serve" stage blocks until interrupted.
func (a *App) Run(stage string) error {
	switch stage {
	case "fetch", "news", "indicators", "dataset", "all":
		return a.runStage(stage)
	case "serve":
		return a.serve()
	default:
		return fmt.Errorf("unknown stage %q (want fetch, news, indicators, dataset, all or serve)", stage)
	}
}

// runStage runs one pipeline stage for every configured pair. A pair
// failure is logged and the remaining pairs still run; the error is
// surfaced once the loop finishes.
func (a *App) runStage(stage string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.closeWarehouse()

	reqs, err := a.requests()
	if err != nil {
		return err
	}

	a.l.Info("stage starting",
		applogger.String("stage", stage),
		applogger.Strings("pairs", a.cfg.Pairs),
		applogger.Time("start", reqs[0].Start),
		applogger.Time("end", reqs[0].End),
	)

	var failed int
	var lastErr error
	for _, req := range reqs {
		if err := a.runOne(ctx, stage, req); err != nil {
			a.l.Error("stage failed for instrument",
				applogger.String("stage", stage),
				applogger.String("instrument", req.Instrument),
				applogger.Error(err),
			)
			failed++
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%s: %d of %d instruments failed: %w", stage, failed, len(reqs), lastErr)
	}

	a.l.Info("stage complete", applogger.String("stage", stage))
	return nil
}

func (a *App) runOne(ctx context.Context, stage string, req usecase.Request) error {
	switch stage {
	case "fetch":
		return a.pipeline.RunFetch(ctx, req)
	case "news":
		return a.pipeline.RunNews(ctx, req)
	case "indicators":
		return a.pipeline.RunIndicators(ctx, req)
	case "dataset":
		return a.pipeline.RunDataset(ctx, req)
	default:
		return a.pipeline.RunAll(ctx, req)
	}
}

// requests expands the configured pairs and range into one pipeline
// request per pair. An empty range end means now.
func (a *App) requests() ([]usecase.Request, error) {
	if len(a.cfg.Pairs) == 0 {
		return nil, fmt.Errorf("no pairs configured")
	}

	start, ok := util.ParseTime(a.cfg.Range.Start)
	if !ok {
		return nil, fmt.Errorf("range start %q: unparseable time", a.cfg.Range.Start)
	}
	end := time.Now().UTC()
	if a.cfg.Range.End != "" {
		if end, ok = util.ParseTime(a.cfg.Range.End); !ok {
			return nil, fmt.Errorf("range end %q: unparseable time", a.cfg.Range.End)
		}
	}

	g := models.NormalizeGranularity(a.cfg.Granularity)
	reqs := make([]usecase.Request, 0, len(a.cfg.Pairs))
	for _, pair := range a.cfg.Pairs {
		reqs = append(reqs, usecase.Request{
			Instrument:  strings.ToUpper(pair),
			Granularity: g,
			Start:       start,
			End:         end,
		})
	}
	return reqs, nil
}

// serve starts the inspection HTTP server and blocks until interrupted.
func (a *App) serve() error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops the server and closes infrastructure.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	a.closeWarehouse()

	a.l.Info("shutdown complete")
	return nil
}

func (a *App) closeWarehouse() {
	if a.warehouse == nil {
		return
	}
	if err := a.warehouse.Close(); err != nil {
		a.l.Warn("warehouse close error", applogger.Error(err))
	}
}
