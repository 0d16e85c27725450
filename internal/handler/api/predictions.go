package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"StockPred/internal/domain/models"
	"StockPred/internal/usecase"
	xhttp "StockPred/pkg/http"
	xlogger "StockPred/pkg/logger"
)

// PredictionsHandler serves forecasts.
type PredictionsHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.PredictionUseCase
	timeout time.Duration
}

func NewPredictionsHandler(logger *xlogger.Logger, uc *usecase.PredictionUseCase) *PredictionsHandler {
	return &PredictionsHandler{logger: logger, uc: uc, timeout: 30 * time.Second}
}

func (h *PredictionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/predict", h.Predict)
	g.GET("/predictions", h.PredictAll)
	g.GET("/predictions/latest", h.Latest)
	g.GET("/predictions/list", h.List)
}

func (h *PredictionsHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	res, err := h.uc.Predict(ctx, usecase.PredictParams{
		Symbol: req.Symbol,
		Class:  models.PredictionClass(req.Class),
		N:      req.N,
	})
	if err != nil {
		return h.fail(c, "predict", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, usecase.Present(*res))
}

func (h *PredictionsHandler) PredictAll(c echo.Context) error {
	req := &models.PredictAllRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := withTimeout(c, h.timeout)
	defer cancel()

	preds, errs, err := h.uc.PredictAll(ctx, req.Symbol, req.N)
	if err != nil {
		return h.fail(c, "predict_all", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":      req.Symbol,
		"predictions": usecase.PresentAll(preds),
		"errors":      errs,
	})
}

// Latest returns stored predictions without running inference.
func (h *PredictionsHandler) Latest(c echo.Context) error {
	req := &models.LatestPredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	preds, err := h.uc.Latest(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "latest_predictions", err)
	}
	return xhttp.ListResponse(c, usecase.PresentAll(preds), int64(len(preds)))
}

// List returns stored predictions across symbols, highest confidence first.
func (h *PredictionsHandler) List(c echo.Context) error {
	req := &models.PredictionFilter{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	preds, err := h.uc.List(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "list_predictions", err)
	}
	return xhttp.ListResponse(c, usecase.PresentAll(preds), int64(len(preds)))
}

func (h *PredictionsHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
