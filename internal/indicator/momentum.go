package indicator

import "math"

// RSIValues calculates the Relative Strength Index with Wilder smoothing.
// Average gain and loss are seeded with the SMA of the first period changes.
// Output has len(values)-period points in [0, 100]; a window with no
// movement at all reads 50.
func RSIValues(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	p := rsiPipeline(period)
	gains, err := append(Pipeline{gainStage}, p...).Result(values)
	if err != nil {
		return nil
	}
	losses, err := append(Pipeline{lossStage}, p...).Result(values)
	if err != nil {
		return nil
	}
	return combine2(gains, losses, func(g, l float64) float64 {
		return safeDiv(100*g, g+l, 50)
	})
}

func rsiPipeline(period int) Pipeline { return Pipeline{smmaStage(period)} }

func rsiWarmup(period int) int { return 1 + rsiPipeline(period).Warmup() }

// CMOValues calculates the Chande Momentum Oscillator: 100*(up-down)/(up+down)
// over period changes. Output has len(values)-period points in [-100, 100].
func CMOValues(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	up, err := Pipeline{gainStage, sumStage(period)}.Result(values)
	if err != nil {
		return nil
	}
	down, err := Pipeline{lossStage, sumStage(period)}.Result(values)
	if err != nil {
		return nil
	}
	return combine2(up, down, func(u, d float64) float64 {
		return safeDiv(100*(u-d), u+d, 0)
	})
}

// StochasticValues calculates fast %K over kPeriod and %D = SMA(%K, dPeriod).
// Both lines are trimmed to the %D length: len-kPeriod-dPeriod+2.
// A window with zero range reads 50.
func StochasticValues(high, low, close []float64, kPeriod, dPeriod int) (k, d []float64) {
	rawK := stochK(high, low, close, kPeriod)
	d = SMAValues(rawK, dPeriod)
	if d == nil {
		return nil, nil
	}
	return tail(rawK, len(d)), d
}

func stochK(high, low, close []float64, period int) []float64 {
	hh := windowMax(high, period)
	ll := windowMin(low, period)
	if hh == nil {
		return nil
	}
	c := tail(close, len(hh))
	out := make([]float64, len(hh))
	for i := range out {
		out[i] = safeDiv(100*(c[i]-ll[i]), hh[i]-ll[i], 50)
	}
	return out
}

// StochRSIValues applies the Stochastic %K/%D formula to RSI(period) in
// place of price, using the same period for the stochastic lookback.
func StochRSIValues(values []float64, period, dPeriod int) (k, d []float64) {
	rsi := RSIValues(values, period)
	if rsi == nil {
		return nil, nil
	}
	return StochasticValues(rsi, rsi, rsi, period, dPeriod)
}

// WilliamsRValues calculates Williams %R over period, in [-100, 0].
// A window with zero range reads -50.
func WilliamsRValues(high, low, close []float64, period int) []float64 {
	hh := windowMax(high, period)
	ll := windowMin(low, period)
	if hh == nil {
		return nil
	}
	c := tail(close, len(hh))
	out := make([]float64, len(hh))
	for i := range out {
		out[i] = safeDiv(-100*(hh[i]-c[i]), hh[i]-ll[i], -50)
	}
	return out
}

// CCIValues calculates the Commodity Channel Index of typical price:
// (tp - SMA(tp)) / (0.015 * meanDeviation). A flat window reads 0.
func CCIValues(high, low, close []float64, period int) []float64 {
	tp := typicalPrices(high, low, close)
	sma := SMAValues(tp, period)
	if sma == nil {
		return nil
	}
	out := make([]float64, len(sma))
	for i := range sma {
		w := tp[i : i+period]
		md := 0.0
		for _, x := range w {
			md += math.Abs(x - sma[i])
		}
		md /= float64(period)
		out[i] = safeDiv(w[period-1]-sma[i], 0.015*md, 0)
	}
	return out
}

// ROCValues calculates the percentage rate of change over period bars.
// A zero base value reads 0.
func ROCValues(values []float64, period int) []float64 {
	return lagged(values, period, func(cur, prev float64) float64 {
		return safeDiv(100*(cur-prev), prev, 0)
	})
}

// MomentumValues calculates values[i] - values[i-period].
func MomentumValues(values []float64, period int) []float64 {
	return lagged(values, period, func(cur, prev float64) float64 { return cur - prev })
}

func typicalPrices(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		out[i] = (high[i] + low[i] + close[i]) / 3
	}
	return out
}
