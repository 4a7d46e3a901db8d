package indicator

// SMAValues calculates the simple moving average over a trailing window.
// Returns len(values)-period+1 points, or nil if there are fewer than period
// values. A running sum keeps it O(n).
func SMAValues(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	p := float64(period)
	out[0] = sum / p
	for i := period; i < len(values); i++ {
		// Subtract the value leaving the window
		sum += values[i] - values[i-period]
		out[i-period+1] = sum / p
	}
	return out
}

// rollingSum is SMAValues without the division.
func rollingSum(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[0] = sum
	for i := period; i < len(values); i++ {
		sum += values[i] - values[i-period]
		out[i-period+1] = sum
	}
	return out
}
