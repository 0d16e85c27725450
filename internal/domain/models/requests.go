package models

// Requests for HTTP endpoints. Defined in domain for reuse by the CLI and queue payloads.

type PredictRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Class  string `query:"class" json:"class" default:"swing" validate:"required"`
	N      int    `query:"n" json:"n" default:"300" validate:"gte=50,lte=5000"`
}

type PredictAllRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	N      int    `query:"n" json:"n" default:"300" validate:"gte=50,lte=5000"`
}

type LatestPredictionsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
}

// PredictionFilter selects stored predictions across symbols. Empty fields do
// not filter; an empty status matches every status.
type PredictionFilter struct {
	Symbol        string  `query:"symbol" json:"symbol" validate:"omitempty,symbol"`
	Class         string  `query:"class" json:"class"`
	Direction     string  `query:"direction" json:"direction" validate:"omitempty,oneof=up down"`
	MinConfidence float64 `query:"min_confidence" json:"min_confidence" validate:"gte=0,lte=1"`
	Status        string  `query:"status" json:"status" default:"active"`
	Limit         int     `query:"limit" json:"limit" default:"5000" validate:"gte=1,lte=5000"`
}

type TrainRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,dive,required,symbol"`
	Classes []string `json:"classes" validate:"omitempty,dive,required"`
	Pooled  bool     `json:"pooled" default:"true"`
	N       int      `json:"n" default:"1000" validate:"gte=150,lte=20000"`
}

type ModelsRequest struct {
	Class string `query:"class" json:"class" validate:"required"`
	Scope string `query:"scope" json:"scope"`
}

type TargetDateRequest struct {
	Class string `query:"class" json:"class" default:"swing" validate:"required"`
	Start string `query:"start" json:"start" validate:"omitempty,date"`
}

type TradingDayRequest struct {
	Date string `query:"date" json:"date" validate:"required,date"`
}

type CountTradingDaysRequest struct {
	Start string `query:"start" json:"start" validate:"required,date"`
	End   string `query:"end" json:"end" validate:"required,date"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}
