package indicator

import (
	"math"

	"scout/pkg/model"
)

// Frame holds a candle series plus named numeric columns aligned by row
// index. OHLCV columns are seeded at construction; indicator columns are
// appended and never mutate the candles themselves.
type Frame struct {
	candles []model.Candle
	order   []string
	columns map[string][]float64
}

// NewFrame creates a frame from a candle series, seeding the base
// Open/High/Low/Close/Volume columns.
func NewFrame(candles []model.Candle) *Frame {
	f := &Frame{
		candles: candles,
		columns: make(map[string][]float64),
	}

	n := len(candles)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, c := range candles {
		open[i] = c.Open
		high[i] = c.High
		low[i] = c.Low
		closes[i] = c.Close
		volume[i] = float64(c.Volume)
	}

	f.SetColumn("Open", open)
	f.SetColumn("High", high)
	f.SetColumn("Low", low)
	f.SetColumn("Close", closes)
	f.SetColumn("Volume", volume)
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.candles)
}

// Columns returns the column names in insertion order
func (f *Frame) Columns() []string {
	return f.order
}

// Column returns a column by exact name
func (f *Frame) Column(name string) ([]float64, bool) {
	values, ok := f.columns[name]
	return values, ok
}

// SetColumn adds or replaces a column. values must have Len() entries.
func (f *Frame) SetColumn(name string, values []float64) {
	if _, exists := f.columns[name]; !exists {
		f.order = append(f.order, name)
	}
	f.columns[name] = values
}

// Last returns the value of a column at the most recent row
func (f *Frame) Last(name string) (float64, bool) {
	values, ok := f.columns[name]
	if !ok || len(values) == 0 {
		return math.NaN(), false
	}
	return values[len(values)-1], true
}

// LastClose returns the most recent closing price, or 0 for an empty frame
func (f *Frame) LastClose() float64 {
	if len(f.candles) == 0 {
		return 0
	}
	return f.candles[len(f.candles)-1].Close
}
