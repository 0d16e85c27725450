package features

import (
	"time"

	"StockPred/internal/domain/models"
	"StockPred/pkg/logger"
)

// MinRows is the shortest series the engine derives features for.
const MinRows = 50

type Option func(*Engine)

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine turns an OHLCV series into a feature frame. It holds no state between
// calls and is safe for concurrent use.
type Engine struct {
	log *logger.Logger
}

func New(opts ...Option) *Engine {
	e := &Engine{log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transform computes every Schema column for series, which must be ordered by date.
// Series shorter than MinRows come back with only their OHLCV columns, unchanged.
func (e *Engine) Transform(series []models.Candle) *Frame {
	n := len(series)
	dates := make([]time.Time, n)
	raw := ohlcv{
		open:   make([]float64, n),
		high:   make([]float64, n),
		low:    make([]float64, n),
		close:  make([]float64, n),
		volume: make([]float64, n),
	}
	for i, c := range series {
		dates[i] = c.Date
		raw.open[i] = c.Open
		raw.high[i] = c.High
		raw.low[i] = c.Low
		raw.close[i] = c.Close
		raw.volume[i] = c.Volume
	}

	f := newFrame(dates)
	if n < MinRows {
		e.log.Warn("not enough rows to compute features",
			logger.Int("rows", n), logger.Int("min_rows", MinRows))
		f.add("open", raw.open)
		f.add("high", raw.high)
		f.add("low", raw.low)
		f.add("close", raw.close)
		f.add("volume", raw.volume)
		return f
	}

	// A single bad input cell must not poison the recursive indicators.
	for _, col := range [][]float64{raw.open, raw.high, raw.low, raw.close, raw.volume} {
		clearInf(col)
		fillBackForward(col)
	}

	cols := columns{
		"open": raw.open, "high": raw.high, "low": raw.low, "close": raw.close, "volume": raw.volume,
	}
	addPrice(raw, cols)
	addMomentum(raw, cols)
	addTrend(raw, cols)
	addVolatility(raw, cols)
	addVolume(raw, cols)
	addPatterns(raw, cols)
	addComposite(raw, cols)

	for _, name := range Columns() {
		vals := cols[name]
		// Ratios over a zero volume or close come out infinite.
		clearInf(vals)
		if !fillBackForward(vals) {
			for i := range vals {
				vals[i] = 0
			}
			f.unavailable[name] = true
		}
		f.add(name, vals)
	}
	f.engineered = true

	if un := f.Unavailable(); len(un) > 0 {
		e.log.Debug("columns without defined values", logger.Strings("columns", un), logger.Int("rows", n))
	}
	return f
}
