package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
	pkgch "StockPred/pkg/clickhouse"
	applogger "StockPred/pkg/logger"
)

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: ch.DB(), table: ch.Database() + ".daily_candles", l: l.With("candle_store")}
}

func (s *CHCandleStore) LatestCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, symbol, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?`, s.table)
	out, err := s.query(ctx, q, symbol, n)
	if err != nil {
		s.l.Error("latest candles failed", applogger.String("symbol", symbol), applogger.Int("limit", n), applogger.Error(err))
		return nil, fmt.Errorf("latest candles %s: %w", symbol, err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Debug("latest candles",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (s *CHCandleStore) Candles(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Candle, error) {
	q := fmt.Sprintf(`
        SELECT date, symbol, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
        LIMIT ?`, s.table)
	out, err := s.query(ctx, q, symbol, from, to, limit)
	if err != nil {
		s.l.Error("candles query failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	return out, nil
}

func (s *CHCandleStore) query(ctx context.Context, q string, args ...any) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 512)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Date, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCandles upserts candles; later inserts of the same (symbol, date) win.
// Rows with an undefined close are dropped.
func (s *CHCandleStore) SaveCandles(ctx context.Context, candles []models.Candle) error {
	kept := candles[:0:0]
	for _, c := range candles {
		if c.Symbol == "" || c.Date.IsZero() || math.IsNaN(c.Close) {
			continue
		}
		kept = append(kept, c)
	}
	head := fmt.Sprintf("INSERT INTO %s (date, symbol, open, high, low, close, volume)", s.table)
	err := insertRows(ctx, s.db, head, 7, len(kept), func(i int) []any {
		c := kept[i]
		return []any{c.Date, c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume}
	})
	if err != nil {
		return fmt.Errorf("save candles: %w", err)
	}
	s.l.Info("candles saved", applogger.Int("rows", len(kept)), applogger.Int("dropped", len(candles)-len(kept)))
	return nil
}

func (s *CHCandleStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT symbol FROM %s ORDER BY symbol", s.table))
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
