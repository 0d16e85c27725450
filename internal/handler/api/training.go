package api

import (
	"github.com/labstack/echo/v4"

	"StockPred/internal/domain/models"
	"StockPred/internal/service/ratelimit"
	"StockPred/internal/usecase"
	xhttp "StockPred/pkg/http"
	xlogger "StockPred/pkg/logger"
)

// TrainingHandler enqueues training and lists artifacts.
type TrainingHandler struct {
	logger *xlogger.Logger
	uc     *usecase.TrainingUseCase
	queue  usecase.Enqueuer
	rl     *ratelimit.Limiter
}

// NewTrainingHandler builds the handler. A nil queue makes POST /api/train run synchronously.
func NewTrainingHandler(logger *xlogger.Logger, uc *usecase.TrainingUseCase, q usecase.Enqueuer, rl *ratelimit.Limiter) *TrainingHandler {
	return &TrainingHandler{logger: logger, uc: uc, queue: q, rl: rl}
}

func (h *TrainingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/train", h.Train)
	g.GET("/models", h.Models)
	g.GET("/training-runs", h.Runs)
}

func (h *TrainingHandler) Train(c echo.Context) error {
	if h.rl != nil && !h.rl.Allow(c.RealIP()) {
		h.logger.Warn("train rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many training requests"))
	}
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	params, err := usecase.TrainParamsFrom(*req)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("classes", err.Error()))
	}
	for _, class := range params.Classes {
		if _, err := h.uc.Profiles().Get(class); err != nil {
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
	}

	if h.queue != nil {
		id, err := h.queue.Enqueue(c.Request().Context(), usecase.TrainJobType, req)
		if err != nil {
			h.logger.Error("enqueue training", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		return xhttp.AcceptedResponse(c, map[string]string{"job_id": id})
	}

	report, err := h.uc.TrainBatch(c.Request().Context(), params)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *TrainingHandler) Models(c echo.Context) error {
	req := &models.ModelsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.uc.Models(c.Request().Context(), models.PredictionClass(req.Class))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	if req.Scope != "" {
		filtered := list[:0]
		for _, a := range list {
			if a.Scope == req.Scope {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *TrainingHandler) Runs(c echo.Context) error {
	class := models.PredictionClass(c.QueryParam("class"))
	if _, err := h.uc.Profiles().Get(class); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	runs, err := h.uc.Runs(c.Request().Context(), class, xhttp.ParseIntDefault(c.QueryParam("limit"), 50))
	if err != nil {
		h.logger.Error("list training runs", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, runs, int64(len(runs)))
}
