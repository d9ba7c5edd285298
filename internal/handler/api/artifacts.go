package api

import (
	"github.com/labstack/echo/v4"

	"FXPull/internal/domain/models"
	"FXPull/internal/usecase"
	xhttp "FXPull/pkg/http"
	xlogger "FXPull/pkg/logger"
)

// ArtifactsHandler exposes the persisted pipeline artifacts for
// inspection over HTTP.
type ArtifactsHandler struct {
	logger    *xlogger.Logger
	artifacts *usecase.ArtifactsUseCase
}

func NewArtifactsHandler(logger *xlogger.Logger, artifacts *usecase.ArtifactsUseCase) *ArtifactsHandler {
	return &ArtifactsHandler{logger: logger, artifacts: artifacts}
}

func (h *ArtifactsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/series", h.Series)
	g.GET("/report", h.Report)
	g.GET("/dataset", h.Dataset)
	g.GET("/warehouse/candles", h.WarehouseCandles)
	e.GET("/healthz", h.Health)
}

func (h *ArtifactsHandler) Series(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.artifacts.GetSeries(usecase.GetSeriesParams{
		Instrument:  req.Instrument,
		Granularity: models.NormalizeGranularity(req.Granularity),
		Limit:       req.Limit,
	})
	if err != nil {
		h.logger.Error("series read error", xlogger.Error(err))
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ArtifactsHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.artifacts.GetReport(req.Instrument, models.NormalizeGranularity(req.Granularity))
	if err != nil {
		h.logger.Error("report read error", xlogger.Error(err))
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ArtifactsHandler) Dataset(c echo.Context) error {
	req := &models.DatasetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.artifacts.GetDataset(usecase.GetDatasetParams{
		Instrument:  req.Instrument,
		Granularity: models.NormalizeGranularity(req.Granularity),
		Limit:       req.Limit,
	})
	if err != nil {
		h.logger.Error("dataset read error", xlogger.Error(err))
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ArtifactsHandler) WarehouseCandles(c echo.Context) error {
	req := &models.WarehouseCandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, ok := xhttp.ParseTime(req.From)
	if !ok {
		return xhttp.BadRequestResponse(c, "from: unparseable time")
	}
	to, ok := xhttp.ParseTime(req.To)
	if !ok {
		return xhttp.BadRequestResponse(c, "to: unparseable time")
	}

	candles, err := h.artifacts.GetWarehouseCandles(c.Request().Context(),
		req.Instrument, models.NormalizeGranularity(req.Granularity), from, to)
	if err != nil {
		h.logger.Error("warehouse read error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError(err.Error()))
	}
	return xhttp.ListResponse(c, candles, int64(len(candles)))
}

func (h *ArtifactsHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
