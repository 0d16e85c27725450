package features

// SchemaVersion changes whenever a column is added, removed, reordered or redefined.
// Artifacts trained against another version are rejected at inference.
const SchemaVersion = "3"

type Group string

const (
	GroupPrice      Group = "price"
	GroupMomentum   Group = "momentum"
	GroupTrend      Group = "trend"
	GroupVolatility Group = "volatility"
	GroupVolume     Group = "volume"
	GroupPattern    Group = "pattern"
	GroupComposite  Group = "composite"
)

// Descriptor names one engineered column.
type Descriptor struct {
	Name  string `json:"name"`
	Group Group  `json:"group"`
}

// OHLCV are the input columns carried through every frame.
var OHLCV = []string{"open", "high", "low", "close", "volume"}

var schema = []Descriptor{
	{"returns", GroupPrice},
	{"returns_5d", GroupPrice},
	{"returns_10d", GroupPrice},
	{"returns_20d", GroupPrice},
	{"price_momentum_5", GroupPrice},
	{"price_momentum_10", GroupPrice},
	{"price_momentum_20", GroupPrice},
	{"hl_pct", GroupPrice},
	{"co_pct", GroupPrice},

	{"rsi_7", GroupMomentum},
	{"rsi_14", GroupMomentum},
	{"rsi_21", GroupMomentum},
	{"stoch_k", GroupMomentum},
	{"stoch_d", GroupMomentum},
	{"roc_5", GroupMomentum},
	{"roc_10", GroupMomentum},
	{"roc_20", GroupMomentum},
	{"williams_r", GroupMomentum},

	{"sma_5", GroupTrend},
	{"ema_5", GroupTrend},
	{"sma_10", GroupTrend},
	{"ema_10", GroupTrend},
	{"sma_20", GroupTrend},
	{"ema_20", GroupTrend},
	{"sma_50", GroupTrend},
	{"ema_50", GroupTrend},
	{"sma_200", GroupTrend},
	{"ema_200", GroupTrend},
	{"dist_sma_20", GroupTrend},
	{"dist_sma_50", GroupTrend},
	{"dist_sma_200", GroupTrend},
	{"sma_cross_50_200", GroupTrend},
	{"ema_cross_12_26", GroupTrend},
	{"macd", GroupTrend},
	{"macd_signal", GroupTrend},
	{"macd_diff", GroupTrend},
	{"adx", GroupTrend},
	{"adx_pos", GroupTrend},
	{"adx_neg", GroupTrend},

	{"bb_high_20", GroupVolatility},
	{"bb_mid_20", GroupVolatility},
	{"bb_low_20", GroupVolatility},
	{"bb_width_20", GroupVolatility},
	{"bb_pct_20", GroupVolatility},
	{"atr_7", GroupVolatility},
	{"atr_14", GroupVolatility},
	{"atr_21", GroupVolatility},
	{"volatility_10", GroupVolatility},
	{"volatility_20", GroupVolatility},
	{"volatility_30", GroupVolatility},

	{"volume_change", GroupVolume},
	{"volume_ma_5", GroupVolume},
	{"volume_ma_10", GroupVolume},
	{"volume_ma_20", GroupVolume},
	{"volume_ratio_5", GroupVolume},
	{"volume_ratio_10", GroupVolume},
	{"volume_ratio_20", GroupVolume},
	{"obv", GroupVolume},
	{"obv_mean", GroupVolume},
	{"vpt", GroupVolume},

	{"doji", GroupPattern},
	{"hammer", GroupPattern},
	{"higher_high", GroupPattern},
	{"lower_low", GroupPattern},
	{"gap_up", GroupPattern},
	{"gap_down", GroupPattern},

	{"mfi", GroupComposite},
	{"trend_intensity", GroupComposite},
	{"volatility_regime", GroupComposite},
	{"price_acceleration", GroupComposite},
	{"volume_surge", GroupComposite},
	{"near_20d_high", GroupComposite},
	{"near_20d_low", GroupComposite},
}

// Schema returns the ordered engineered column descriptors.
func Schema() []Descriptor {
	out := make([]Descriptor, len(schema))
	copy(out, schema)
	return out
}

// Columns returns every column of an engineered frame: OHLCV first, then Schema order.
func Columns() []string {
	out := make([]string, 0, len(OHLCV)+len(schema))
	out = append(out, OHLCV...)
	for _, d := range schema {
		out = append(out, d.Name)
	}
	return out
}

// IsInput reports whether name is one of the raw OHLCV columns.
func IsInput(name string) bool {
	for _, c := range OHLCV {
		if c == name {
			return true
		}
	}
	return false
}
