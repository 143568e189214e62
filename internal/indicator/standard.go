package indicator

import "math"

// AddStandardIndicators appends the standard swing-trading indicator set to
// the frame. Column names follow the pandas-ta convention (parameterized
// suffixes) because the rule library was written against those names; rule
// operands are matched fuzzily, so only the stems matter.
func AddStandardIndicators(f *Frame) *Frame {
	if f.Len() == 0 {
		return f
	}

	closes, _ := f.Column("Close")
	highs, _ := f.Column("High")
	lows, _ := f.Column("Low")
	volume, _ := f.Column("Volume")

	// Trend
	f.SetColumn("EMA_20", ema(closes, 20))
	f.SetColumn("EMA_50", ema(closes, 50))
	f.SetColumn("EMA_200", ema(closes, 200))

	// Momentum
	f.SetColumn("RSI_14", rsi(closes, 14))
	macdLine, macdSignal, macdHist := macd(closes, 12, 26, 9)
	f.SetColumn("MACD_12_26_9", macdLine)
	f.SetColumn("MACDh_12_26_9", macdHist)
	f.SetColumn("MACDs_12_26_9", macdSignal)
	stochK, stochD := stochastic(highs, lows, closes, 14, 3, 3)
	f.SetColumn("STOCHk_14_3_3", stochK)
	f.SetColumn("STOCHd_14_3_3", stochD)
	f.SetColumn("WILLR_14", williamsR(highs, lows, closes, 14))

	// Volatility
	mid := sma(closes, 20)
	dev := rollingStd(closes, 20)
	lower := make([]float64, len(closes))
	upper := make([]float64, len(closes))
	for i := range closes {
		lower[i] = mid[i] - 2*dev[i]
		upper[i] = mid[i] + 2*dev[i]
	}
	f.SetColumn("BBL_20_2.0", lower)
	f.SetColumn("BBM_20_2.0", mid)
	f.SetColumn("BBU_20_2.0", upper)
	f.SetColumn("ATRr_14", atr(highs, lows, closes, 14))
	f.SetColumn("ADX_14", adx(highs, lows, closes, 14))

	// Volume
	f.SetColumn("OBV", obv(closes, volume))
	f.SetColumn("VOL_SMA_20", sma(volume, 20))

	return f
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// sma computes a simple moving average with NaN for warmup rows
func sma(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if len(values) < period || period <= 0 {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ema computes an exponential moving average seeded with the SMA of the
// first period values
func ema(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if len(values) < period || period <= 0 {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// emaOver is ema applied to a series that may carry a NaN warmup prefix
// (used for the MACD signal line)
func emaOver(values []float64, period int) []float64 {
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	out := nanSlice(len(values))
	tail := ema(values[start:], period)
	copy(out[start:], tail)
	return out
}

// rsi computes Wilder's Relative Strength Index
func rsi(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if len(values) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macd returns the MACD line, signal line and histogram
func macd(values []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := ema(values, fast)
	emaSlow := ema(values, slow)

	line = make([]float64, len(values))
	for i := range values {
		line[i] = emaFast[i] - emaSlow[i]
	}

	sig = emaOver(line, signal)

	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// stochastic computes the slow stochastic oscillator (%K smoothed, %D)
func stochastic(highs, lows, closes []float64, period, smoothK, smoothD int) (k, d []float64) {
	n := len(closes)
	fastK := nanSlice(n)
	for i := period - 1; i < n; i++ {
		hh := highs[i]
		ll := lows[i]
		for j := i - period + 1; j < i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		if hh == ll {
			fastK[i] = 50
			continue
		}
		fastK[i] = 100 * (closes[i] - ll) / (hh - ll)
	}

	k = smaOver(fastK, smoothK)
	d = smaOver(k, smoothD)
	return k, d
}

// smaOver is sma applied to a series with a NaN warmup prefix
func smaOver(values []float64, period int) []float64 {
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	out := nanSlice(len(values))
	tail := sma(values[start:], period)
	copy(out[start:], tail)
	return out
}

// williamsR computes Williams %R (range -100..0)
func williamsR(highs, lows, closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	for i := period - 1; i < len(closes); i++ {
		hh := highs[i]
		ll := lows[i]
		for j := i - period + 1; j < i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		if hh == ll {
			out[i] = -50
			continue
		}
		out[i] = -100 * (hh - closes[i]) / (hh - ll)
	}
	return out
}

// rollingStd computes the rolling population standard deviation
func rollingStd(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period - 1; i < len(values); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		mean := sum / float64(period)

		var variance float64
		for j := i - period + 1; j <= i; j++ {
			variance += (values[j] - mean) * (values[j] - mean)
		}
		out[i] = math.Sqrt(variance / float64(period))
	}
	return out
}

// trueRange computes the true range series
func trueRange(highs, lows, closes []float64) []float64 {
	tr := make([]float64, len(closes))
	for i := range closes {
		if i == 0 {
			tr[i] = highs[i] - lows[i]
			continue
		}
		tr[i] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
	}
	return tr
}

// wilderSmooth applies Wilder's recursive moving average
func wilderSmooth(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if len(values) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)

	for i := period; i < len(values); i++ {
		out[i] = (out[i-1]*float64(period-1) + values[i]) / float64(period)
	}
	return out
}

// atr computes the Average True Range (Wilder smoothing)
func atr(highs, lows, closes []float64, period int) []float64 {
	return wilderSmooth(trueRange(highs, lows, closes), period)
}

// adx computes the Average Directional Index
func adx(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n < 2*period {
		return out
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	smTR := wilderSmooth(trueRange(highs, lows, closes), period)
	smPlus := wilderSmooth(plusDM, period)
	smMinus := wilderSmooth(minusDM, period)

	dx := nanSlice(n)
	for i := period - 1; i < n; i++ {
		if smTR[i] == 0 {
			continue
		}
		plusDI := 100 * smPlus[i] / smTR[i]
		minusDI := 100 * smMinus[i] / smTR[i]
		if plusDI+minusDI == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	return smaOver(dx, period)
}

// obv computes On-Balance Volume
func obv(closes, volume []float64) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	out[0] = volume[0]
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volume[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}
