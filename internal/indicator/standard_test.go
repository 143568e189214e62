package indicator

import (
	"math"
	"testing"
	"time"

	"scout/pkg/model"
)

func testCandles(closes []float64) []model.Candle {
	candles := make([]model.Candle, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = model.Candle{
			Time:   base.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + int64(i),
		}
	}
	return candles
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := sma(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Error("Expected NaN during warmup")
	}
	if out[2] != 2 {
		t.Errorf("Expected SMA 2, got %f", out[2])
	}
	if out[4] != 4 {
		t.Errorf("Expected SMA 4, got %f", out[4])
	}
}

func TestEMAWarmup(t *testing.T) {
	values := []float64{2, 4, 6, 8, 10}
	out := ema(values, 3)

	if !math.IsNaN(out[1]) {
		t.Error("Expected NaN before seed")
	}
	// Seed is the SMA of the first 3 values
	if out[2] != 4 {
		t.Errorf("Expected EMA seed 4, got %f", out[2])
	}
	if math.IsNaN(out[4]) {
		t.Error("Expected EMA value at last row")
	}
}

func TestRSIAllGains(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	out := rsi(values, 14)

	if out[len(out)-1] != 100 {
		t.Errorf("Expected RSI 100 for monotonic gains, got %f", out[len(out)-1])
	}
}

func TestOBV(t *testing.T) {
	closes := []float64{10, 11, 10, 10}
	volume := []float64{100, 200, 300, 400}
	out := obv(closes, volume)

	expected := []float64{100, 300, 0, 0}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("OBV[%d]: expected %f, got %f", i, expected[i], out[i])
		}
	}
}

func TestAddStandardIndicators(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/5)*10
	}
	f := NewFrame(testCandles(closes))
	AddStandardIndicators(f)

	expected := []string{
		"EMA_20", "EMA_50", "EMA_200",
		"RSI_14", "MACD_12_26_9", "MACDh_12_26_9", "MACDs_12_26_9",
		"STOCHk_14_3_3", "STOCHd_14_3_3", "WILLR_14",
		"BBL_20_2.0", "BBM_20_2.0", "BBU_20_2.0", "ATRr_14", "ADX_14",
		"OBV", "VOL_SMA_20",
	}
	for _, name := range expected {
		col, ok := f.Column(name)
		if !ok {
			t.Errorf("Missing column %s", name)
			continue
		}
		if len(col) != f.Len() {
			t.Errorf("Column %s: expected %d rows, got %d", name, f.Len(), len(col))
		}
	}

	// Not enough history for a 200-period EMA: column exists but stays NaN
	if v, _ := f.Last("EMA_200"); !math.IsNaN(v) {
		t.Errorf("Expected NaN EMA_200 with 60 rows, got %f", v)
	}

	// Stochastic must stay within bounds
	k, _ := f.Column("STOCHk_14_3_3")
	for i, v := range k {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("STOCHk[%d] out of range: %f", i, v)
		}
	}
}

func TestFrameLast(t *testing.T) {
	f := NewFrame(testCandles([]float64{10, 20, 30}))

	v, ok := f.Last("Close")
	if !ok || v != 30 {
		t.Errorf("Expected last close 30, got %f (ok=%v)", v, ok)
	}
	if _, ok := f.Last("NOPE"); ok {
		t.Error("Expected missing column to report !ok")
	}
	if f.LastClose() != 30 {
		t.Errorf("Expected LastClose 30, got %f", f.LastClose())
	}
}
