package repository

import (
	"context"
	"time"

	"StockPred/internal/domain/models"
)

// CandleStore provides daily OHLCV history. Series are returned in ascending date order.
type CandleStore interface {
	LatestCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error)
	Candles(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Candle, error)
	SaveCandles(ctx context.Context, candles []models.Candle) error
	Symbols(ctx context.Context) ([]string, error)
}

// TrainingStore keeps the history of training attempts.
type TrainingStore interface {
	RecordRun(ctx context.Context, run models.TrainingRun) error
	Runs(ctx context.Context, class models.PredictionClass, limit int) ([]models.TrainingRun, error)
}

// PredictionStore persists stamped predictions.
type PredictionStore interface {
	SavePredictions(ctx context.Context, ps []models.Prediction) error
	LatestPredictions(ctx context.Context, symbol string) ([]models.Prediction, error)
	// ListPredictions orders by confidence, then prediction date, both descending.
	ListPredictions(ctx context.Context, f models.PredictionFilter) ([]models.Prediction, error)
}

// Publisher fans predictions out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, p models.Prediction) error
	PublishBatch(ctx context.Context, ps []models.Prediction) error
	Close() error
}

type Metrics interface {
	RecordTraining(class, status string, seconds, accuracy float64)
	RecordPrediction(class, direction string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
