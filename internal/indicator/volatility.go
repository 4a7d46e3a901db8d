package indicator

import "math"

// TrueRange returns max(high, prevClose) - min(low, prevClose) for every bar
// after the first; len(close)-1 points.
func TrueRange(high, low, close []float64) []float64 {
	if len(close) < 2 {
		return nil
	}
	out := make([]float64, len(close)-1)
	for i := 1; i < len(close); i++ {
		prev := close[i-1]
		out[i-1] = math.Max(high[i], prev) - math.Min(low[i], prev)
	}
	return out
}

// ATRValues calculates Average True Range: Wilder-smoothed true range.
// len(close)-period points.
func ATRValues(high, low, close []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	return SMMAValues(TrueRange(high, low, close), period)
}

// BollingerValues calculates SMA(period) ± k * population standard deviation
// of the same window.
func BollingerValues(values []float64, period int, k float64) (upper, middle, lower []float64) {
	middle = SMAValues(values, period)
	if middle == nil {
		return nil, nil, nil
	}
	upper = make([]float64, len(middle))
	lower = make([]float64, len(middle))
	for i, m := range middle {
		ss := 0.0
		for _, x := range values[i : i+period] {
			ss += (x - m) * (x - m)
		}
		band := k * math.Sqrt(ss/float64(period))
		upper[i] = m + band
		lower[i] = m - band
	}
	return upper, middle, lower
}

// KeltnerValues calculates EMA(period) ± k * ATR(period). The EMA is one
// point longer than the ATR and is cut to the ATR's length.
func KeltnerValues(high, low, close []float64, period int, k float64) (upper, middle, lower []float64) {
	ema := EMAValues(close, period)
	atr := ATRValues(high, low, close, period)
	if ema == nil || atr == nil {
		return nil, nil, nil
	}
	t := trimToShortest(ema, atr)
	middle = t[0]
	upper = make([]float64, len(middle))
	lower = make([]float64, len(middle))
	for i := range middle {
		upper[i] = middle[i] + k*t[1][i]
		lower[i] = middle[i] - k*t[1][i]
	}
	return upper, middle, lower
}

// DonchianValues calculates the rolling highest high, lowest low, and their
// midpoint over period bars.
func DonchianValues(high, low []float64, period int) (upper, middle, lower []float64) {
	upper = windowMax(high, period)
	lower = windowMin(low, period)
	if upper == nil {
		return nil, nil, nil
	}
	middle = make([]float64, len(upper))
	for i := range upper {
		middle[i] = (upper[i] + lower[i]) / 2
	}
	return upper, middle, lower
}
