package models

// Indicator column names. The set is fixed; lookbacks live in the
// indicator engine next to the math that needs them.
const (
	IndSMA20      = "sma_20"
	IndEMA12      = "ema_12"
	IndEMA26      = "ema_26"
	IndRSI14      = "rsi_14"
	IndMACD       = "macd"
	IndMACDSignal = "macd_signal"
	IndBBUpper    = "bb_upper"
	IndBBLower    = "bb_lower"
	IndBBPercent  = "bb_percent"
	IndATR14      = "atr_14"
	IndZScore20   = "z_score_20"
	IndReturn1    = "return_1"
	IndReturn5    = "return_5"
)

// IndicatorCatalog lists every indicator column in canonical order.
var IndicatorCatalog = []string{
	IndSMA20, IndEMA12, IndEMA26, IndRSI14,
	IndMACD, IndMACDSignal,
	IndBBUpper, IndBBLower, IndBBPercent,
	IndATR14, IndZScore20, IndReturn1, IndReturn5,
}

// IndicatorRow extends one candle with computed indicator values. A
// missing key means the value is undefined for that period (lookback not
// yet satisfied), never zero.
type IndicatorRow struct {
	Candle
	Values map[string]float64
}

// Value returns the indicator value and whether it is defined.
func (r IndicatorRow) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}
