package indicator

// EMAValues calculates the exponential moving average with multiplier
// 2/(period+1). The first output is the SMA of the first period values, so
// the unseedable prefix is discarded and len(out) == len(values)-period+1.
func EMAValues(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return expSmooth(values, period, 2.0/float64(period+1))
}

// expSmooth seeds with the SMA of the first period values, then applies
// prev + k*(value-prev) to each remaining value.
func expSmooth(values []float64, period int, k float64) []float64 {
	out := make([]float64, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[0] = prev
	for i := period; i < len(values); i++ {
		// EMA = (price * k) + (prev * (1 - k))
		prev = values[i]*k + prev*(1-k)
		out[i-period+1] = prev
	}
	return out
}
