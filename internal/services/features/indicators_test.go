package features

import (
	"math"
	"testing"
	"time"

	"FXPull/internal/domain/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMADefinedFromLookback(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)

	if len(out) != len(values) {
		t.Fatalf("expected length %d, got %d", len(values), len(out))
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("expected NaN at index %d, got %v", i, out[i])
		}
	}
	if !almostEqual(out[2], 2) {
		t.Fatalf("expected 2 at index 2, got %v", out[2])
	}
	if !almostEqual(out[4], 4) {
		t.Fatalf("expected 4 at index 4, got %v", out[4])
	}
}

func TestSMAInsufficientData(t *testing.T) {
	out := SMA([]float64{1, 2}, 3)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Fatalf("expected all NaN, got %v at %d", v, i)
		}
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	values := []float64{2, 4, 6, 8}
	out := EMA(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN warm-up, got %v %v", out[0], out[1])
	}
	// seed = SMA(2,4,6) = 4
	if !almostEqual(out[2], 4) {
		t.Fatalf("expected seed 4, got %v", out[2])
	}
	// alpha = 0.5: 0.5*8 + 0.5*4 = 6
	if !almostEqual(out[3], 6) {
		t.Fatalf("expected 6, got %v", out[3])
	}
}

func TestRSIAllGains(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i + 1)
	}
	out := RSI(values, 14)

	for i := 0; i < 14; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("expected NaN at index %d, got %v", i, out[i])
		}
	}
	if !almostEqual(out[14], 100) {
		t.Fatalf("expected RSI 100 on monotone rise, got %v", out[14])
	}
}

func TestRSIFlatSeries(t *testing.T) {
	values := make([]float64, 16)
	for i := range values {
		values[i] = 1.1
	}
	out := RSI(values, 14)
	if !almostEqual(out[14], 50) {
		t.Fatalf("expected RSI 50 on flat series, got %v", out[14])
	}
}

func TestMACDDefinedIndices(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 1.0 + 0.01*float64(i)
	}
	macd, signal := MACD(values)

	if !math.IsNaN(macd[24]) {
		t.Fatalf("expected macd undefined at 24, got %v", macd[24])
	}
	if math.IsNaN(macd[25]) {
		t.Fatal("expected macd defined at 25")
	}
	if !math.IsNaN(signal[32]) {
		t.Fatalf("expected signal undefined at 32, got %v", signal[32])
	}
	if math.IsNaN(signal[33]) {
		t.Fatal("expected signal defined at 33")
	}
}

func TestBollingerFlatWindow(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = 1.25
	}
	upper, lower, percent := Bollinger(values, 20, 2.0)

	if !math.IsNaN(upper[18]) {
		t.Fatalf("expected undefined before lookback, got %v", upper[18])
	}
	if !almostEqual(upper[19], 1.25) || !almostEqual(lower[19], 1.25) {
		t.Fatalf("expected collapsed bands on flat window, got %v %v", upper[19], lower[19])
	}
	if !almostEqual(percent[19], 0.5) {
		t.Fatalf("expected percent 0.5 on zero-width band, got %v", percent[19])
	}
}

func TestATRDefinedFromLookback(t *testing.T) {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 20)
	for i := range candles {
		candles[i] = models.Candle{
			Instrument:  "EURUSD",
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Open:        1.10,
			High:        1.12,
			Low:         1.08,
			Close:       1.10,
			Granularity: models.Gran1h,
		}
	}
	out := ATR(candles, 14)

	for i := 0; i < 14; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("expected NaN at index %d, got %v", i, out[i])
		}
	}
	// constant true range 0.04
	if !almostEqual(out[14], 0.04) {
		t.Fatalf("expected ATR 0.04, got %v", out[14])
	}
	if !almostEqual(out[19], 0.04) {
		t.Fatalf("expected ATR stable at 0.04, got %v", out[19])
	}
}

func TestZScoreFlatWindow(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 3.14
	}
	out := ZScore(values, 20)
	if !almostEqual(out[19], 0) {
		t.Fatalf("expected z-score 0 on flat window, got %v", out[19])
	}
}

func TestReturns(t *testing.T) {
	values := []float64{100, 110, 121}
	out := Returns(values, 1)

	if !math.IsNaN(out[0]) {
		t.Fatalf("expected NaN at index 0, got %v", out[0])
	}
	if !almostEqual(out[1], 0.10) {
		t.Fatalf("expected 0.10, got %v", out[1])
	}
	if !almostEqual(out[2], 0.10) {
		t.Fatalf("expected 0.10, got %v", out[2])
	}

	out5 := Returns(values, 5)
	for i, v := range out5 {
		if !math.IsNaN(v) {
			t.Fatalf("expected all NaN for k=5 on short series, got %v at %d", v, i)
		}
	}
}
