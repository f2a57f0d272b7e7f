package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	models "KiranaCash/internal/domain/models"
	domrepo "KiranaCash/internal/domain/repository"
	domsvc "KiranaCash/internal/domain/service"
	svcmetrics "KiranaCash/internal/service/metrics"
	"KiranaCash/internal/usecase"
	xhttp "KiranaCash/pkg/http"
	xlogger "KiranaCash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ForecastService is what the forecast routes need from the use case.
type ForecastService interface {
	Forecast(ctx context.Context, p usecase.ForecastParams) (*models.PredictionResult, error)
	Checklist(ctx context.Context, p usecase.ForecastParams) (*models.Checklist, error)
	Greedy(amount int) (models.Inventory, int, error)
}

// Exporter writes training tables.
type Exporter interface {
	Export(ctx context.Context, kind domrepo.DatasetKind, from, to time.Time, w io.Writer) (int, error)
}

// ForecastEchoHandler serves forecasts, the checklist view, the greedy
// utility and training exports.
type ForecastEchoHandler struct {
	logger   *xlogger.Logger
	forecast ForecastService
	exporter Exporter
}

func NewForecastEchoHandler(logger *xlogger.Logger, forecast ForecastService, exporter Exporter) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, forecast: forecast, exporter: exporter}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/forecast/checklist", h.Checklist)
	g.GET("/greedy", h.Greedy)
	if h.exporter != nil {
		g.GET("/dataset", h.Dataset)
	}
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	start := time.Now()
	defer observe("forecast", start)

	p, verr := readForecastParams(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.forecast.Forecast(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Checklist(c echo.Context) error {
	start := time.Now()
	defer observe("checklist", start)

	p, verr := readForecastParams(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cl, err := h.forecast.Checklist(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, "checklist", err)
	}
	return xhttp.SuccessResponse(c, cl)
}

func (h *ForecastEchoHandler) Greedy(c echo.Context) error {
	req := &models.GreedyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	inv, rem, err := h.forecast.Greedy(req.Amount)
	if err != nil {
		return h.fail(c, "greedy", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"amount":    req.Amount,
		"inventory": inv,
		"remainder": rem,
	})
}

func (h *ForecastEchoHandler) Dataset(c echo.Context) error {
	start := time.Now()
	defer observe("dataset", start)

	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, _ := xhttp.ParseDay(req.From)
	to, _ := xhttp.ParseDay(req.To)
	kind := domrepo.NormalizeDatasetKind(req.Kind)

	var buf bytes.Buffer
	n, err := h.exporter.Export(c.Request().Context(), kind, from, to, &buf)
	if err != nil {
		return h.fail(c, "dataset", err)
	}
	name := fmt.Sprintf("%s_%s_%s.csv", kind, req.From, req.To)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Response().Header().Set("X-Row-Count", fmt.Sprint(n))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func readForecastParams(c echo.Context) (usecase.ForecastParams, interface{}) {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return usecase.ForecastParams{}, verr
	}
	var p usecase.ForecastParams
	if req.Date != "" {
		d, ok := xhttp.ParseDay(req.Date)
		if !ok {
			return p, []xhttp.ValidationError{{Code: "ERR_DATETIME", Field: "date", Message: "date must be a date in YYYY-MM-DD form"}}
		}
		p.Date = d
	}
	if req.YesterdayCash != "" {
		v, ok := xhttp.ParseAmount(req.YesterdayCash)
		if !ok {
			return p, []xhttp.ValidationError{{Code: "ERR_AMOUNT", Field: "yesterday_cash", Message: "yesterday_cash must be a non-negative number"}}
		}
		p.YesterdayCash = &v
	}
	return p, nil
}

// fail maps domain errors onto AppErrors.
func (h *ForecastEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, domsvc.ErrMalformedInput):
		appErr = xhttp.BadRequestError(err.Error())
		svcmetrics.ForecastErrors.WithLabelValues(endpoint, "malformed_input").Inc()
	case errors.Is(err, domsvc.ErrModelLoad):
		appErr = xhttp.ServiceUnavailableError(xhttp.CodeModelsUnavailable, "models not found, run training first").WithError(err)
		svcmetrics.ForecastErrors.WithLabelValues(endpoint, "model_load").Inc()
	case errors.Is(err, domsvc.ErrInference):
		appErr = xhttp.InternalError(xhttp.CodeInference, "forecast failed").WithError(err)
		svcmetrics.ForecastErrors.WithLabelValues(endpoint, "inference").Inc()
	default:
		appErr = xhttp.InternalError("", "something went wrong").WithError(err)
		svcmetrics.ForecastErrors.WithLabelValues(endpoint, "internal").Inc()
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func observe(endpoint string, start time.Time) {
	svcmetrics.ForecastLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
