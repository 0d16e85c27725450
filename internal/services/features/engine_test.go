package features

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPred/internal/domain/models"
)

func randomWalk(n int, seed int64) []models.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]models.Candle, n)
	price := 100.0
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range out {
		open := price
		price *= 1 + r.NormFloat64()*0.015
		hi := math.Max(open, price) * (1 + r.Float64()*0.01)
		lo := math.Min(open, price) * (1 - r.Float64()*0.01)
		out[i] = models.Candle{
			Date:   start.AddDate(0, 0, i),
			Symbol: "TEST",
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  price,
			Volume: 1e6 + r.Float64()*5e5,
		}
	}
	return out
}

func TestSchemaShape(t *testing.T) {
	s := Schema()
	require.Len(t, s, 73)

	seen := map[string]bool{}
	for _, d := range s {
		assert.False(t, seen[d.Name], "duplicate column %s", d.Name)
		assert.False(t, IsInput(d.Name))
		seen[d.Name] = true
	}
	assert.Equal(t, OHLCV, Columns()[:5])
}

func TestTransformFullyPopulated(t *testing.T) {
	f := New().Transform(randomWalk(300, 1))

	require.True(t, f.Engineered())
	assert.Equal(t, Columns(), f.Columns())
	assert.Empty(t, f.Unavailable())
	for _, name := range f.Columns() {
		col, ok := f.Column(name)
		require.True(t, ok)
		require.Len(t, col, 300)
		for i, v := range col {
			require.False(t, math.IsNaN(v), "%s[%d] is NaN", name, i)
		}
	}
}

func TestTransformShortSeries(t *testing.T) {
	series := randomWalk(49, 2)
	series[3].Close = math.NaN()

	f := New().Transform(series)

	assert.False(t, f.Engineered())
	assert.Equal(t, OHLCV, f.Columns())
	closes, _ := f.Column("close")
	assert.True(t, math.IsNaN(closes[3]))
	assert.Equal(t, series[10].Close, closes[10])
}

func TestTransformMarksUnavailableColumns(t *testing.T) {
	f := New().Transform(randomWalk(120, 3))

	assert.ElementsMatch(t, []string{"sma_200", "ema_200", "dist_sma_200", "sma_cross_50_200"}, f.Unavailable())
	col, _ := f.Column("sma_200")
	for _, v := range col {
		assert.Zero(t, v)
	}
	assert.True(t, math.IsNaN(f.Value("sma_200", 100)))
	assert.False(t, math.IsNaN(f.Value("sma_50", 100)))
}

func TestTransformDeterministic(t *testing.T) {
	series := randomWalk(260, 4)
	a := New().Transform(series)
	b := New().Transform(series)

	for _, name := range a.Columns() {
		ca, _ := a.Column(name)
		cb, _ := b.Column(name)
		for i := range ca {
			require.Equal(t, math.Float64bits(ca[i]), math.Float64bits(cb[i]), "%s[%d]", name, i)
		}
	}
}

func TestTransformIsCausal(t *testing.T) {
	series := randomWalk(300, 5)
	full := New().Transform(series)
	prefix := New().Transform(series[:260])

	row := 259
	for _, name := range full.Columns() {
		if name == "volatility_regime" {
			continue
		}
		assert.InDelta(t, full.Value(name, row), prefix.Value(name, row), 1e-9, name)
	}
}

func TestTransformValues(t *testing.T) {
	series := randomWalk(250, 6)
	f := New().Transform(series)

	want := 0.0
	for i := 6; i <= 10; i++ {
		want += series[i].Close
	}
	assert.InDelta(t, want/5, f.Value("sma_5", 10), 1e-9)
	assert.InDelta(t, series[30].Close/series[29].Close-1, f.Value("returns", 30), 1e-12)
	assert.InDelta(t, (series[30].High-series[30].Low)/series[30].Close, f.Value("hl_pct", 30), 1e-12)

	// head rows are back-filled from the first defined value
	assert.Equal(t, f.Value("sma_20", 19), f.Value("sma_20", 0))

	for i := 0; i < f.Len(); i++ {
		r := f.Value("rsi_14", i)
		assert.True(t, r >= 0 && r <= 100, "rsi_14[%d]=%v", i, r)
		for _, name := range []string{"doji", "hammer", "higher_high", "lower_low", "gap_up", "gap_down", "volume_surge", "near_20d_high", "near_20d_low"} {
			v := f.Value(name, i)
			assert.True(t, v == 0 || v == 1, "%s[%d]=%v", name, i, v)
		}
		reg := f.Value("volatility_regime", i)
		assert.True(t, reg == 0 || reg == 1 || reg == 2)
	}
}

func TestTransformToleratesBadInputCell(t *testing.T) {
	series := randomWalk(150, 7)
	series[80].Close = math.NaN()
	series[81].Volume = math.Inf(1)

	f := New().Transform(series)

	for _, name := range []string{"sma_20", "ema_50", "rsi_14", "macd", "obv", "atr_14", "vpt"} {
		col, _ := f.Column(name)
		for i, v := range col {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s[%d]=%v", name, i, v)
		}
	}
}

func TestTransformClearsInfiniteRatios(t *testing.T) {
	series := randomWalk(120, 4)
	series[60].Volume = 0
	series[70].Close = 0
	series[70].Open = 0
	series[70].Low = 0

	f := New().Transform(series)
	require.True(t, f.Engineered())

	for _, name := range f.Columns() {
		col, _ := f.Column(name)
		for i, v := range col {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s[%d]=%v", name, i, v)
		}
	}
	// The +Inf change after the zero-volume bar takes the next defined value.
	assert.Equal(t, f.Value("volume_change", 62), f.Value("volume_change", 61))
}

func TestOBVUnchangedCloseAddsVolume(t *testing.T) {
	got := obv([]float64{1, 1, 2, 2, 1}, []float64{10, 20, 30, 40, 50})
	assert.Equal(t, []float64{10, 30, 60, 100, 50}, got)
}

func TestClearInf(t *testing.T) {
	x := []float64{1, math.Inf(1), 2, math.Inf(-1)}
	clearInf(x)
	assert.Equal(t, 1.0, x[0])
	assert.True(t, math.IsNaN(x[1]))
	assert.True(t, math.IsNaN(x[3]))
}

func TestFillBackForward(t *testing.T) {
	nan := math.NaN()
	x := []float64{nan, nan, 1, nan, 3, nan}

	require.True(t, fillBackForward(x))
	assert.Equal(t, []float64{1, 1, 1, 3, 3, 3}, x)

	empty := []float64{nan, nan}
	assert.False(t, fillBackForward(empty))
}

func TestTertiles(t *testing.T) {
	q1, q2, ok := tertiles([]float64{math.NaN(), 1, 2, 3, 4})
	require.True(t, ok)
	assert.InDelta(t, 2.0, q1, 1e-12)
	assert.InDelta(t, 3.0, q2, 1e-12)
}
