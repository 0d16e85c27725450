package models

import "time"

// Candle represents one daily OHLCV session for an instrument.
type Candle struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// LastClose returns the close of the most recent candle, or 0 for an empty series.
func LastClose(cs []Candle) float64 {
	if len(cs) == 0 {
		return 0
	}
	return cs[len(cs)-1].Close
}
