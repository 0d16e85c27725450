package models

import "time"

// Direction of a forecast.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Forecast is the raw output of the horizon predictor.
type Forecast struct {
	Class           PredictionClass `json:"class"`
	Direction       Direction       `json:"direction"`
	Confidence      float64         `json:"confidence"`
	PredictedReturn float64         `json:"predicted_return"`
	CurrentPrice    float64         `json:"current_price"`
	TargetPrice     float64         `json:"target_price"`
	StopLoss        float64         `json:"stop_loss"`
	HorizonDays     int             `json:"horizon_days"`
	ArtifactID      string          `json:"artifact_id"`
}

// Prediction is a forecast stamped with dates and trading levels for downstream consumers.
type Prediction struct {
	Forecast
	Symbol                 string    `json:"symbol"`
	PredictionDate         time.Time `json:"prediction_date"`
	TargetDate             time.Time `json:"target_date"`
	EntryPriceLow          float64   `json:"entry_price_low"`
	EntryPriceHigh         float64   `json:"entry_price_high"`
	PredictedGrowthPercent float64   `json:"predicted_growth_percent"`
	ModelName              string    `json:"model_name"`
	ModelVersion           string    `json:"model_version"`
	Status                 string    `json:"status"`
}

const PredictionStatusActive = "active"
