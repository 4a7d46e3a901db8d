package indicator

// OBVValues calculates On-Balance Volume starting from 0 at the first bar;
// volume is added on up closes and subtracted on down closes.
func OBVValues(close, volume []float64) []float64 {
	if len(close) == 0 {
		return nil
	}
	out := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// VWAPValues calculates the volume-weighted typical price. With period <= 0
// it is cumulative from the first bar; otherwise it uses a trailing window of
// period bars. Where the accumulated volume is zero the bar's typical price
// is returned.
func VWAPValues(high, low, close, volume []float64, period int) []float64 {
	tp := typicalPrices(high, low, close)
	pv := make([]float64, len(tp))
	for i := range tp {
		pv[i] = tp[i] * volume[i]
	}
	if period > 0 {
		spv := rollingSum(pv, period)
		sv := rollingSum(volume, period)
		if spv == nil {
			return nil
		}
		last := tail(tp, len(spv))
		out := make([]float64, len(spv))
		for i := range spv {
			out[i] = safeDiv(spv[i], sv[i], last[i])
		}
		return out
	}
	if len(tp) == 0 {
		return nil
	}
	out := make([]float64, len(tp))
	var cumPV, cumV float64
	for i := range tp {
		cumPV += pv[i]
		cumV += volume[i]
		out[i] = safeDiv(cumPV, cumV, tp[i])
	}
	return out
}

// MFIValues calculates the Money Flow Index, a volume-weighted RSI analogue
// on typical price. Flow direction needs the previous bar, so the output has
// len(close)-period points. A window with no money flow reads 50.
func MFIValues(high, low, close, volume []float64, period int) []float64 {
	if period <= 0 || len(close) <= period {
		return nil
	}
	tp := typicalPrices(high, low, close)
	pos := make([]float64, len(tp)-1)
	neg := make([]float64, len(tp)-1)
	for i := 1; i < len(tp); i++ {
		flow := tp[i] * volume[i]
		switch {
		case tp[i] > tp[i-1]:
			pos[i-1] = flow
		case tp[i] < tp[i-1]:
			neg[i-1] = flow
		}
	}
	sp := rollingSum(pos, period)
	sn := rollingSum(neg, period)
	out := make([]float64, len(sp))
	for i := range sp {
		out[i] = safeDiv(100*sp[i], sp[i]+sn[i], 50)
	}
	return out
}

// CMFValues calculates Chaikin Money Flow: the period sum of money flow
// volume over the period sum of volume. Zero-range bars contribute no flow;
// a window with zero volume reads 0.
func CMFValues(high, low, close, volume []float64, period int) []float64 {
	mfv := make([]float64, len(close))
	for i := range close {
		mfm := safeDiv((close[i]-low[i])-(high[i]-close[i]), high[i]-low[i], 0)
		mfv[i] = mfm * volume[i]
	}
	sf := rollingSum(mfv, period)
	sv := rollingSum(volume, period)
	if sf == nil {
		return nil
	}
	out := make([]float64, len(sf))
	for i := range sf {
		out[i] = safeDiv(sf[i], sv[i], 0)
	}
	return out
}

// VolumeOscValues calculates 100 * (SMA(vol, fast) - SMA(vol, slow)) /
// SMA(vol, slow), over the slow average's length.
func VolumeOscValues(volume []float64, fast, slow int) []float64 {
	f := SMAValues(volume, fast)
	s := SMAValues(volume, slow)
	if f == nil || s == nil {
		return nil
	}
	return combine2(f, s, func(a, b float64) float64 {
		return safeDiv(100*(a-b), b, 0)
	})
}

// VolumeROCValues is ROCValues applied to volume.
func VolumeROCValues(volume []float64, period int) []float64 {
	return ROCValues(volume, period)
}
