package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
)

// CandlesUseCase provides business logic for retrieving and importing candles.
type CandlesUseCase struct {
	store domrepo.CandleStore
}

func NewCandlesUseCase(store domrepo.CandleStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetCandlesResult struct {
	Symbol  string          `json:"symbol"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Count   int             `json:"count"`
	Candles []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	candles, err := uc.store.Candles(ctx, p.Symbol, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > p.Limit {
		candles = candles[len(candles)-p.Limit:]
	}

	return &GetCandlesResult{
		Symbol:  p.Symbol,
		From:    p.From,
		To:      p.To,
		Count:   len(candles),
		Candles: candles,
	}, nil
}

// Import stores candles, rejecting rows that break the OHLC envelope.
func (uc *CandlesUseCase) Import(ctx context.Context, candles []models.Candle) (int, error) {
	valid := candles[:0:0]
	for _, c := range candles {
		if c.Symbol == "" || c.Date.IsZero() {
			continue
		}
		if c.Volume < 0 || c.Low > c.High {
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return 0, nil
	}
	if err := uc.store.SaveCandles(ctx, valid); err != nil {
		return 0, fmt.Errorf("import candles: %w", err)
	}
	return len(valid), nil
}
