package indicator

// AwesomeValues calculates Bill Williams' Awesome Oscillator:
// SMA(median, fast) - SMA(median, slow) with median = (high+low)/2.
// len(high)-slow+1 points.
func AwesomeValues(high, low []float64, fast, slow int) []float64 {
	median := make([]float64, len(high))
	for i := range high {
		median[i] = (high[i] + low[i]) / 2
	}
	f := SMAValues(median, fast)
	s := SMAValues(median, slow)
	if f == nil || s == nil {
		return nil
	}
	return combine2(f, s, func(a, b float64) float64 { return a - b })
}

// UltimateValues calculates Williams' Ultimate Oscillator. Buying pressure
// close - min(low, prevClose) and true range start at the second bar; their
// ratio is taken over short, mid and long windows and weighted 4:2:1.
// len(close)-long points. A window with zero true range counts as neutral
// (ratio 0.5), so a flat market reads 50.
func UltimateValues(high, low, close []float64, short, mid, long int) []float64 {
	if short <= 0 || mid <= 0 || long <= 0 || len(close) <= long {
		return nil
	}
	tr := TrueRange(high, low, close)
	bp := make([]float64, len(tr))
	for i := 1; i < len(close); i++ {
		bp[i-1] = close[i] - min(low[i], close[i-1])
	}
	avg := func(period int) []float64 {
		return combine2(rollingSum(bp, period), rollingSum(tr, period), func(b, t float64) float64 {
			return safeDiv(b, t, 0.5)
		})
	}
	t := trimToShortest(avg(short), avg(mid), avg(long))
	out := make([]float64, len(t[2]))
	for i := range out {
		out[i] = 100 * (4*t[0][i] + 2*t[1][i] + t[2][i]) / 7
	}
	return out
}
