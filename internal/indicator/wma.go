package indicator

// WMAValues calculates the linearly weighted moving average. Within each
// window the most recent value has weight period and the oldest weight 1.
func WMAValues(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	n := len(values)
	out := make([]float64, n-period+1)
	denom := float64(period*(period+1)) / 2

	// weighted and plain sums of the current window
	var weighted, plain float64
	for i := 0; i < period; i++ {
		weighted += float64(i+1) * values[i]
		plain += values[i]
	}
	out[0] = weighted / denom
	for i := period; i < n; i++ {
		// Shifting the window lowers every weight by one, drops the
		// oldest value and adds the newest at full weight.
		weighted += float64(period)*values[i] - plain
		plain += values[i] - values[i-period]
		out[i-period+1] = weighted / denom
	}
	return out
}
