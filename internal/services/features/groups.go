package features

import (
	"fmt"
	"math"
)

type columns map[string][]float64

type ohlcv struct {
	open, high, low, close, volume []float64
}

func (s ohlcv) n() int { return len(s.close) }

func addPrice(s ohlcv, out columns) {
	c := s.close
	out["returns"] = pctChange(c, 1)
	for _, p := range []int{5, 10, 20} {
		out[fmt.Sprintf("returns_%dd", p)] = pctChange(c, p)
		out[fmt.Sprintf("price_momentum_%d", p)] = pctChange(c, p)
	}
	hl := make([]float64, s.n())
	co := make([]float64, s.n())
	for i := range c {
		hl[i] = (s.high[i] - s.low[i]) / c[i]
		co[i] = (c[i] - s.open[i]) / s.open[i]
	}
	out["hl_pct"] = hl
	out["co_pct"] = co
}

func addMomentum(s ohlcv, out columns) {
	for _, p := range []int{7, 14, 21} {
		out[fmt.Sprintf("rsi_%d", p)] = rsi(s.close, p)
	}
	out["stoch_k"], out["stoch_d"] = stochastic(s.high, s.low, s.close, 14, 3)
	for _, p := range []int{5, 10, 20} {
		out[fmt.Sprintf("roc_%d", p)] = roc(s.close, p)
	}
	out["williams_r"] = williamsR(s.high, s.low, s.close, 14)
}

func addTrend(s ohlcv, out columns) {
	c := s.close
	for _, p := range []int{5, 10, 20, 50, 200} {
		out[fmt.Sprintf("sma_%d", p)] = sma(c, p)
		out[fmt.Sprintf("ema_%d", p)] = ema(c, p)
	}
	for _, p := range []int{20, 50, 200} {
		m := out[fmt.Sprintf("sma_%d", p)]
		d := make([]float64, s.n())
		for i := range c {
			d[i] = (c[i] - m[i]) / m[i]
		}
		out[fmt.Sprintf("dist_sma_%d", p)] = d
	}
	out["sma_cross_50_200"] = relDiff(out["sma_50"], out["sma_200"])
	// Named after the classic 12/26 cross but measured on the 5/20 pair.
	out["ema_cross_12_26"] = relDiff(out["ema_5"], out["ema_20"])

	out["macd"], out["macd_signal"], out["macd_diff"] = macd(c)
	out["adx"], out["adx_pos"], out["adx_neg"] = adx(s.high, s.low, c, 14)
}

// relDiff is (a-b)/b.
func relDiff(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = (a[i] - b[i]) / b[i]
	}
	return out
}

func addVolatility(s ohlcv, out columns) {
	c := s.close
	upper, mid, lower := bollinger(c, 20, 2)
	width := make([]float64, s.n())
	pct := make([]float64, s.n())
	for i := range c {
		width[i] = (upper[i] - lower[i]) / mid[i] * 100
		pct[i] = (c[i] - lower[i]) / (upper[i] - lower[i])
	}
	out["bb_high_20"], out["bb_mid_20"], out["bb_low_20"] = upper, mid, lower
	out["bb_width_20"], out["bb_pct_20"] = width, pct

	for _, p := range []int{7, 14, 21} {
		out[fmt.Sprintf("atr_%d", p)] = atr(s.high, s.low, c, p)
	}
	returns := out["returns"]
	for _, p := range []int{10, 20, 30} {
		out[fmt.Sprintf("volatility_%d", p)] = rollingStdNaN(returns, p)
	}
}

func addVolume(s ohlcv, out columns) {
	v := s.volume
	out["volume_change"] = pctChange(v, 1)
	for _, p := range []int{5, 10, 20} {
		ma := sma(v, p)
		ratio := make([]float64, s.n())
		for i := range v {
			ratio[i] = v[i] / ma[i]
		}
		out[fmt.Sprintf("volume_ma_%d", p)] = ma
		out[fmt.Sprintf("volume_ratio_%d", p)] = ratio
	}
	o := obv(s.close, v)
	out["obv"] = o
	out["obv_mean"] = sma(o, 20)

	flow := nanSlice(s.n())
	for i := 1; i < s.n(); i++ {
		flow[i] = (s.close[i] - s.close[i-1]) / s.close[i-1] * v[i]
	}
	out["vpt"] = cumsum(flow)
}

// Pattern flags are 0 whenever the comparison involves an undefined value.
func addPatterns(s ohlcv, out columns) {
	n := s.n()
	doji := make([]float64, n)
	hammer := make([]float64, n)
	hh := make([]float64, n)
	ll := make([]float64, n)
	gapUp := make([]float64, n)
	gapDown := make([]float64, n)
	for i := 0; i < n; i++ {
		o, h, l, c := s.open[i], s.high[i], s.low[i], s.close[i]
		doji[i] = flag(math.Abs(c-o)/(h-l) < 0.1)
		hammer[i] = flag(h-l > 3*(o-c) && (c-l)/(0.001+h-l) > 0.6)
		if i == 0 {
			continue
		}
		hh[i] = flag(h > s.high[i-1])
		ll[i] = flag(l < s.low[i-1])
		gapUp[i] = flag(l > s.high[i-1])
		gapDown[i] = flag(h < s.low[i-1])
	}
	out["doji"], out["hammer"] = doji, hammer
	out["higher_high"], out["lower_low"] = hh, ll
	out["gap_up"], out["gap_down"] = gapUp, gapDown
}

func addComposite(s ohlcv, out columns) {
	n := s.n()
	c, v := s.close, s.volume

	pos := make([]float64, n)
	neg := make([]float64, n)
	for i := 1; i < n; i++ {
		mf := (s.high[i] + s.low[i] + c[i]) / 3 * v[i]
		switch {
		case c[i] > c[i-1]:
			pos[i] = mf
		case c[i] < c[i-1]:
			neg[i] = mf
		}
	}
	posSum, negSum := rollingSum(pos, 14), rollingSum(neg, 14)
	mfi := make([]float64, n)
	for i := range mfi {
		mfi[i] = 100 - 100/(1+posSum[i]/(negSum[i]+1))
	}
	out["mfi"] = mfi

	sma20, atr14 := out["sma_20"], out["atr_14"]
	ti := make([]float64, n)
	for i := range ti {
		ti[i] = math.Abs(c[i]-sma20[i]) / atr14[i]
	}
	out["trend_intensity"] = ti

	// Tertile edges come from the whole series, not a trailing window.
	vol20 := out["volatility_20"]
	regime := nanSlice(n)
	if q1, q2, ok := tertiles(vol20); ok {
		for i, x := range vol20 {
			switch {
			case math.IsNaN(x):
			case x <= q1:
				regime[i] = 0
			case x <= q2:
				regime[i] = 1
			default:
				regime[i] = 2
			}
		}
	}
	out["volatility_regime"] = regime

	out["price_acceleration"] = diff(out["returns"])

	vMean, vStd := sma(v, 20), stdSample(v, 20)
	hi20, lo20 := rollingMax(s.high, 20), rollingMin(s.low, 20)
	surge := make([]float64, n)
	nearHigh := make([]float64, n)
	nearLow := make([]float64, n)
	for i := 0; i < n; i++ {
		surge[i] = flag((v[i]-vMean[i])/(vStd[i]+1) > 2)
		nearHigh[i] = flag((hi20[i]-c[i])/c[i] < 0.02)
		nearLow[i] = flag((c[i]-lo20[i])/c[i] < 0.02)
	}
	out["volume_surge"] = surge
	out["near_20d_high"], out["near_20d_low"] = nearHigh, nearLow
}
