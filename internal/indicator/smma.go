package indicator

// SMMAValues calculates the smoothed moving average (Wilder smoothing).
// First value is SMA(period), then SMMA = (prev*(period-1) + value) / period,
// which is an EMA with multiplier 1/period.
func SMMAValues(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	return expSmooth(values, period, 1.0/float64(period))
}
