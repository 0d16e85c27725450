package features

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"
)

// talib kernels emit zeros during warm-up and do not tolerate short input.
// guard returns an all-NaN column when n <= lookback and otherwise marks the
// first lookback outputs undefined.
func guard(n, lookback int, f func() []float64) []float64 {
	if n <= lookback {
		return nanSlice(n)
	}
	return warm(f(), lookback)
}

func warm(out []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func sma(x []float64, p int) []float64 {
	return guard(len(x), p-1, func() []float64 { return talib.Sma(x, p) })
}

func ema(x []float64, p int) []float64 {
	return guard(len(x), p-1, func() []float64 { return talib.Ema(x, p) })
}

func rsi(x []float64, p int) []float64 {
	return guard(len(x), p, func() []float64 { return talib.Rsi(x, p) })
}

func roc(x []float64, p int) []float64 {
	return guard(len(x), p, func() []float64 { return talib.Roc(x, p) })
}

func atr(h, l, c []float64, p int) []float64 {
	return guard(len(c), p, func() []float64 { return talib.Atr(h, l, c, p) })
}

func adx(h, l, c []float64, p int) (line, pos, neg []float64) {
	n := len(c)
	line = guard(n, 2*p-1, func() []float64 { return talib.Adx(h, l, c, p) })
	pos = guard(n, p, func() []float64 { return talib.PlusDI(h, l, c, p) })
	neg = guard(n, p, func() []float64 { return talib.MinusDI(h, l, c, p) })
	return line, pos, neg
}

func williamsR(h, l, c []float64, p int) []float64 {
	return guard(len(c), p-1, func() []float64 { return talib.WillR(h, l, c, p) })
}

func rollingMax(x []float64, p int) []float64 {
	return guard(len(x), p-1, func() []float64 { return talib.Max(x, p) })
}

func rollingMin(x []float64, p int) []float64 {
	return guard(len(x), p-1, func() []float64 { return talib.Min(x, p) })
}

func rollingSum(x []float64, p int) []float64 {
	return guard(len(x), p-1, func() []float64 { return talib.Sum(x, p) })
}

// stdSample is the rolling sample standard deviation (ddof 1) of a NaN-free series.
func stdSample(x []float64, p int) []float64 {
	adj := math.Sqrt(float64(p) / float64(p-1))
	return guard(len(x), p-1, func() []float64 {
		out := talib.StdDev(x, p, 1)
		for i := range out {
			out[i] *= adj
		}
		return out
	})
}

func macd(c []float64) (line, signal, hist []float64) {
	const lookback = 33 // slow 26 + signal 9 - 2
	n := len(c)
	if n <= lookback {
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	line, signal, hist = talib.Macd(c, 12, 26, 9)
	return warm(line, lookback), warm(signal, lookback), warm(hist, lookback)
}

func bollinger(c []float64, p int, dev float64) (upper, mid, lower []float64) {
	n := len(c)
	if n <= p-1 {
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	upper, mid, lower = talib.BBands(c, p, dev, dev, talib.SMA)
	return warm(upper, p-1), warm(mid, p-1), warm(lower, p-1)
}

// stochastic is the fast %K over p bars and its d-bar SMA.
func stochastic(h, l, c []float64, p, d int) (k, sig []float64) {
	lookback := p - 1 + d - 1
	n := len(c)
	if n <= lookback {
		return nanSlice(n), nanSlice(n)
	}
	k, sig = talib.Stoch(h, l, c, p, 1, talib.SMA, d, talib.SMA)
	return warm(k, lookback), warm(sig, lookback)
}

// obv counts the volume of an unchanged close as buying volume; talib.Obv
// leaves the running total flat on those bars.
func obv(c, v []float64) []float64 {
	if len(c) == 0 {
		return nil
	}
	out := talib.Obv(c, v)
	flat := 0.0
	for i := 1; i < len(c); i++ {
		if c[i] == c[i-1] {
			flat += v[i]
		}
		out[i] += flat
	}
	return out
}

// The helpers below operate on derived series that carry NaN at the head
// (returns and their differences). talib's running-sum kernels would smear
// a leading NaN across the whole output; here a window containing NaN
// yields NaN.

func rollingStdNaN(x []float64, w int) []float64 {
	out := nanSlice(len(x))
	for i := w - 1; i < len(x); i++ {
		win := x[i-w+1 : i+1]
		mean, ok := windowMean(win)
		if !ok {
			continue
		}
		ss := 0.0
		for _, v := range win {
			ss += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

func windowMean(win []float64) (float64, bool) {
	s := 0.0
	for _, v := range win {
		if math.IsNaN(v) {
			return 0, false
		}
		s += v
	}
	return s / float64(len(win)), true
}

// pctChange is x[t]/x[t-p] - 1.
func pctChange(x []float64, p int) []float64 {
	out := nanSlice(len(x))
	for i := p; i < len(x); i++ {
		out[i] = x[i]/x[i-p] - 1
	}
	return out
}

func diff(x []float64) []float64 {
	out := nanSlice(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// cumsum skips NaN cells, leaving them NaN in the output.
func cumsum(x []float64) []float64 {
	out := make([]float64, len(x))
	acc := 0.0
	for i, v := range x {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		acc += v
		out[i] = acc
	}
	return out
}

// tertiles returns the 1/3 and 2/3 linear quantiles of the defined values of x.
func tertiles(x []float64) (q1, q2 float64, ok bool) {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0, false
	}
	sort.Float64s(vals)
	return quantile(vals, 1.0/3), quantile(vals, 2.0/3), true
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
