package service

import (
	"context"
	"time"

	"StockPred/internal/domain/models"
)

// Forecaster produces a horizon forecast from an instrument's recent history.
type Forecaster interface {
	Predict(ctx context.Context, class models.PredictionClass, series []models.Candle) (models.Forecast, error)
}

// TradingCalendar answers exchange-day questions.
type TradingCalendar interface {
	TargetDateFor(class models.PredictionClass, start time.Time) (time.Time, error)
	AddTradingDays(start time.Time, n int) time.Time
	IsTradingDay(d time.Time) bool
	CountTradingDays(start, end time.Time) int
}
