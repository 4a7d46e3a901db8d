package indicator

import "math"

// DEMAValues calculates 2*EMA1 - EMA2 where EMA2 = EMA(EMA1). The combination
// is taken over the tail both stages share, so the output is
// len(values) - 2*(period-1) points.
func DEMAValues(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	e, err := emaChain(period, 2).Run(values)
	if err != nil {
		return nil
	}
	return combine2(e[0], e[1], func(e1, e2 float64) float64 { return 2*e1 - e2 })
}

// TEMAValues calculates 3*EMA1 - 3*EMA2 + EMA3 over three chained EMAs;
// len(values) - 3*(period-1) points.
func TEMAValues(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	e, err := emaChain(period, 3).Run(values)
	if err != nil {
		return nil
	}
	t := trimToShortest(e[0], e[1], e[2])
	out := make([]float64, len(t[2]))
	for i := range out {
		out[i] = 3*t[0][i] - 3*t[1][i] + t[2][i]
	}
	return out
}

func trixPipeline(period int) Pipeline {
	return append(emaChain(period, 3), pctChangeStage)
}

// TRIXValues calculates the one-bar percentage change of a triple-chained
// EMA; len(values) - 3*(period-1) - 1 points.
func TRIXValues(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	out, err := trixPipeline(period).Result(values)
	if err != nil {
		return nil
	}
	return out
}

func hullPipeline(period int) Pipeline {
	half := max(period/2, 1)
	root := max(int(math.Sqrt(float64(period))), 1)
	raw := Stage{Name: "hull", Warmup: period - 1, Apply: func(v []float64) []float64 {
		wh := WMAValues(v, half)
		wf := WMAValues(v, period)
		if wf == nil {
			return nil
		}
		return combine2(wh, wf, func(h, f float64) float64 { return 2*h - f })
	}}
	return Pipeline{raw, wmaStage(root)}
}

// HMAValues calculates the Hull moving average:
// WMA(2*WMA(period/2) - WMA(period), floor(sqrt(period))).
func HMAValues(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	out, err := hullPipeline(period).Result(values)
	if err != nil {
		return nil
	}
	return out
}

func zlemaPipeline(period int) Pipeline {
	lag := (period - 1) / 2
	delag := Stage{Name: "delag", Warmup: lag, Apply: func(v []float64) []float64 {
		return lagged(v, lag, func(cur, prev float64) float64 { return cur + (cur - prev) })
	}}
	return Pipeline{delag, emaStage(period)}
}

// ZLEMAValues calculates the zero-lag EMA: the series is de-lagged with
// v[i] + (v[i] - v[i-lag]), lag = (period-1)/2, then EMA'd with period.
func ZLEMAValues(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	out, err := zlemaPipeline(period).Result(values)
	if err != nil {
		return nil
	}
	return out
}

// T3Values calculates Tillson's T3: six chained EMAs recombined with
// coefficients derived from the volume factor vf. All six stage outputs are
// cut to the sixth stage's length before combining.
func T3Values(values []float64, period int, vf float64) []float64 {
	if period <= 0 {
		return nil
	}
	e, err := emaChain(period, 6).Run(values)
	if err != nil {
		return nil
	}
	a2, a3 := vf*vf, vf*vf*vf
	c1 := -a3
	c2 := 3*a2 + 3*a3
	c3 := -6*a2 - 3*vf - 3*a3
	c4 := 1 + 3*vf + a3 + 3*a2

	t := trimToShortest(e...)
	out := make([]float64, len(t[5]))
	for i := range out {
		out[i] = c1*t[5][i] + c2*t[4][i] + c3*t[3][i] + c4*t[2][i]
	}
	return out
}

// VIDYAValues calculates Chande's variable index dynamic average. Each output
// blends the current value with the previous output using weight
// alpha*|CMO(period)|/100; the recursion is seeded with the SMA of the first
// period values. len(values) - period points.
func VIDYAValues(values []float64, period int, alpha float64) []float64 {
	cmo := CMOValues(values, period)
	if cmo == nil {
		return nil
	}
	seed := SMAValues(values[:period], period)[0]
	src := tail(values, len(cmo))
	out := make([]float64, len(cmo))
	prev := seed
	for i := range cmo {
		k := alpha * math.Abs(cmo[i]) / 100
		prev = k*src[i] + (1-k)*prev
		out[i] = prev
	}
	return out
}

// MACDValues calculates MACD = EMA(fast) - EMA(slow), its EMA(signal) line,
// and the histogram. All three lines share the signal line's length.
func MACDValues(values []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, nil, nil
	}
	ef := EMAValues(values, fast)
	es := EMAValues(values, slow)
	if ef == nil || es == nil {
		return nil, nil, nil
	}
	line := combine2(ef, es, func(f, s float64) float64 { return f - s })
	sig = EMAValues(line, signal)
	if sig == nil {
		return nil, nil, nil
	}
	macd = tail(line, len(sig))
	hist = make([]float64, len(sig))
	for i := range sig {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

// ADXValues calculates the Average Directional Index with +DI and -DI.
// Directional movement and true range start at the second bar, are Wilder
// smoothed over period, and DX is smoothed again: warm-up 2*period-1.
func ADXValues(high, low, close []float64, period int) (adx, plusDI, minusDI []float64) {
	if period <= 0 || len(close) < 2 {
		return nil, nil, nil
	}
	n := len(close)
	plusDM := make([]float64, n-1)
	minusDM := make([]float64, n-1)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}
	tr := TrueRange(high, low, close)

	sTR := SMMAValues(tr, period)
	sPlus := SMMAValues(plusDM, period)
	sMinus := SMMAValues(minusDM, period)
	if sTR == nil {
		return nil, nil, nil
	}
	pdi := make([]float64, len(sTR))
	mdi := make([]float64, len(sTR))
	dx := make([]float64, len(sTR))
	for i := range sTR {
		pdi[i] = safeDiv(100*sPlus[i], sTR[i], 0)
		mdi[i] = safeDiv(100*sMinus[i], sTR[i], 0)
		dx[i] = safeDiv(100*math.Abs(pdi[i]-mdi[i]), pdi[i]+mdi[i], 0)
	}
	adx = SMMAValues(dx, period)
	if adx == nil {
		return nil, nil, nil
	}
	return adx, tail(pdi, len(adx)), tail(mdi, len(adx))
}
