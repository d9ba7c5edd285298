package features

import (
	"math"

	"FXPull/internal/domain/models"
)

// Every function here returns a slice the same length as its input.
// Positions whose lookback is not yet satisfied hold NaN; callers must
// treat NaN as undefined, never as zero.

// Closes extracts the close column.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes the simple moving average over period n. Defined from
// index n-1.
func SMA(values []float64, n int) []float64 {
	out := nans(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA computes the exponential moving average over period n, seeded
// with the SMA of the first n values. Defined from index n-1.
func EMA(values []float64, n int) []float64 {
	out := nans(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += values[i]
	}
	prev := sum / float64(n)
	out[n-1] = prev
	alpha := 2.0 / float64(n+1)
	for i := n; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// RSI computes Wilder's relative strength index over period n. The
// first value needs n price changes, so it is defined from index n.
func RSI(values []float64, n int) []float64 {
	out := nans(len(values))
	if n <= 0 || len(values) < n+1 {
		return out
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(n)
	avgLoss := loss / float64(n)
	out[n] = rsiValue(avgGain, avgLoss)
	for i := n + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(n-1) + g) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + l) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the 12/26 MACD line and its 9-period signal line. The
// MACD line is defined from index 25, the signal from index 33.
func MACD(values []float64) (macd, signal []float64) {
	fast := EMA(values, 12)
	slow := EMA(values, 26)
	macd = nans(len(values))
	for i := range values {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			macd[i] = fast[i] - slow[i]
		}
	}
	signal = emaOverDefined(macd, 9)
	return macd, signal
}

// emaOverDefined runs an SMA-seeded EMA over the defined suffix of a
// series that starts with NaNs.
func emaOverDefined(values []float64, n int) []float64 {
	out := nans(len(values))
	first := -1
	for i, v := range values {
		if !math.IsNaN(v) {
			first = i
			break
		}
	}
	if first < 0 || len(values)-first < n {
		return out
	}
	sum := 0.0
	for i := first; i < first+n; i++ {
		sum += values[i]
	}
	prev := sum / float64(n)
	out[first+n-1] = prev
	alpha := 2.0 / float64(n+1)
	for i := first + n; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// Bollinger computes n-period Bollinger bands at k sample standard
// deviations, plus %B. Defined from index n-1.
func Bollinger(values []float64, n int, k float64) (upper, lower, percent []float64) {
	upper = nans(len(values))
	lower = nans(len(values))
	percent = nans(len(values))
	if n <= 1 || len(values) < n {
		return upper, lower, percent
	}
	mid := SMA(values, n)
	for i := n - 1; i < len(values); i++ {
		var sum2 float64
		for j := i - n + 1; j <= i; j++ {
			d := values[j] - mid[i]
			sum2 += d * d
		}
		sd := math.Sqrt(sum2 / float64(n-1))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
		if width := upper[i] - lower[i]; width > 0 {
			percent[i] = (values[i] - lower[i]) / width
		} else {
			percent[i] = 0.5
		}
	}
	return upper, lower, percent
}

// ATR computes Wilder's average true range over period n. True range
// needs the previous close, so ATR is defined from index n.
func ATR(candles []models.Candle, n int) []float64 {
	out := nans(len(candles))
	if n <= 0 || len(candles) < n+1 {
		return out
	}
	tr := func(i int) float64 {
		h, l, pc := candles[i].High, candles[i].Low, candles[i-1].Close
		r := h - l
		if d := math.Abs(h - pc); d > r {
			r = d
		}
		if d := math.Abs(l - pc); d > r {
			r = d
		}
		return r
	}
	sum := 0.0
	for i := 1; i <= n; i++ {
		sum += tr(i)
	}
	prev := sum / float64(n)
	out[n] = prev
	for i := n + 1; i < len(candles); i++ {
		prev = (prev*float64(n-1) + tr(i)) / float64(n)
		out[i] = prev
	}
	return out
}

// ZScore computes (value - mean) / sample stddev over a rolling window
// of n. Defined from index n-1; a flat window yields zero.
func ZScore(values []float64, n int) []float64 {
	out := nans(len(values))
	if n <= 1 || len(values) < n {
		return out
	}
	mean := SMA(values, n)
	for i := n - 1; i < len(values); i++ {
		var sum2 float64
		for j := i - n + 1; j <= i; j++ {
			d := values[j] - mean[i]
			sum2 += d * d
		}
		sd := math.Sqrt(sum2 / float64(n-1))
		if sd == 0 {
			out[i] = 0
			continue
		}
		out[i] = (values[i] - mean[i]) / sd
	}
	return out
}

// Returns computes the simple k-period return (C_t - C_{t-k}) / C_{t-k}.
// Defined from index k.
func Returns(values []float64, k int) []float64 {
	out := nans(len(values))
	if k <= 0 {
		return out
	}
	for i := k; i < len(values); i++ {
		base := values[i-k]
		if base == 0 {
			continue
		}
		out[i] = (values[i] - base) / base
	}
	return out
}
