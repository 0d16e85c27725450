package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"StockPred/internal/domain/models"
	"StockPred/internal/services/calendar"
	xhttp "StockPred/pkg/http"
	xlogger "StockPred/pkg/logger"
	"StockPred/pkg/util"
)

// Calendar is the subset of the trading calendar exposed over HTTP.
type Calendar interface {
	TargetDateFor(class models.PredictionClass, start time.Time) (time.Time, error)
	IsTradingDay(d time.Time) bool
	NextTradingDay(d time.Time) time.Time
	CountTradingDays(start, end time.Time) int
	Holidays(year int) []calendar.Holiday
}

type CalendarHandler struct {
	logger *xlogger.Logger
	cal    Calendar
	now    func() time.Time
}

func NewCalendarHandler(logger *xlogger.Logger, cal Calendar) *CalendarHandler {
	return &CalendarHandler{logger: logger, cal: cal, now: time.Now}
}

func (h *CalendarHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/calendar")
	g.GET("/target-date", h.TargetDate)
	g.GET("/trading-day", h.TradingDay)
	g.GET("/count", h.Count)
	g.GET("/holidays", h.Holidays)
}

func (h *CalendarHandler) TargetDate(c echo.Context) error {
	req := &models.TargetDateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := util.StartOfDay(h.now())
	if req.Start != "" {
		d, err := calendar.ParseDate(req.Start)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("start", err.Error()))
		}
		start = d
	}
	target, err := h.cal.TargetDateFor(models.PredictionClass(req.Class), start)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{
		"class":       req.Class,
		"start":       start.Format(time.DateOnly),
		"target_date": target.Format(time.DateOnly),
	})
}

func (h *CalendarHandler) TradingDay(c echo.Context) error {
	req := &models.TradingDayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	d, err := calendar.ParseDate(req.Date)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("date", err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"date":             d.Format(time.DateOnly),
		"is_trading_day":   h.cal.IsTradingDay(d),
		"next_trading_day": h.cal.NextTradingDay(d).Format(time.DateOnly),
	})
}

func (h *CalendarHandler) Count(c echo.Context) error {
	req := &models.CountTradingDaysRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, err := calendar.ParseDate(req.Start)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("start", err.Error()))
	}
	end, err := calendar.ParseDate(req.End)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("end", err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"start":        req.Start,
		"end":          req.End,
		"trading_days": h.cal.CountTradingDays(start, end),
	})
}

func (h *CalendarHandler) Holidays(c echo.Context) error {
	year := xhttp.ParseIntDefault(c.QueryParam("year"), h.now().Year())
	if year < 1900 || year > 2200 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("year", "year out of range"))
	}
	hs := h.cal.Holidays(year)
	return xhttp.ListResponse(c, hs, int64(len(hs)))
}
