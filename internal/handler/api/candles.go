package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"StockPred/internal/domain/models"
	"StockPred/internal/usecase"
	xhttp "StockPred/pkg/http"
	xlogger "StockPred/pkg/logger"
	"StockPred/pkg/util"
)

type CandlesHandler struct {
	logger *xlogger.Logger
	uc     *usecase.CandlesUseCase
}

func NewCandlesHandler(logger *xlogger.Logger, uc *usecase.CandlesUseCase) *CandlesHandler {
	return &CandlesHandler{logger: logger, uc: uc}
}

func (h *CandlesHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/candles", h.Candles)
}

func (h *CandlesHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	to := time.Now().UTC()
	if req.To != "" {
		t, ok := xhttp.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to", "invalid time"))
		}
		to = util.EndOfDay(t)
	}
	from := to.AddDate(-1, 0, 0)
	if req.From != "" {
		t, ok := xhttp.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from", "invalid time"))
		}
		from = util.StartOfDay(t)
	}
	if from.After(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from", "from must be <= to"))
	}

	res, err := h.uc.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol: req.Symbol,
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
