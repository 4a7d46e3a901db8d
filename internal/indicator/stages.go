package indicator

// Series transforms shared by several indicators. Each declares its warm-up
// so it can take part in a Pipeline.

// gainStage emits max(v[i]-v[i-1], 0) for i >= 1.
var gainStage = Stage{Name: "gain", Warmup: 1, Apply: func(v []float64) []float64 {
	return changes(v, func(d float64) float64 {
		if d > 0 {
			return d
		}
		return 0
	})
}}

// lossStage emits max(v[i-1]-v[i], 0) for i >= 1.
var lossStage = Stage{Name: "loss", Warmup: 1, Apply: func(v []float64) []float64 {
	return changes(v, func(d float64) float64 {
		if d < 0 {
			return -d
		}
		return 0
	})
}}

// pctChangeStage emits the one-step percentage change, 0 where the previous
// value is zero.
var pctChangeStage = Stage{Name: "pct", Warmup: 1, Apply: func(v []float64) []float64 {
	return lagged(v, 1, func(cur, prev float64) float64 {
		return safeDiv(100*(cur-prev), prev, 0)
	})
}}

func sumStage(period int) Stage {
	return Stage{Name: "sum", Warmup: period - 1, Apply: func(v []float64) []float64 { return rollingSum(v, period) }}
}

func changes(v []float64, f func(d float64) float64) []float64 {
	return lagged(v, 1, func(cur, prev float64) float64 { return f(cur - prev) })
}

// lagged applies f(v[i], v[i-lag]) for i >= lag.
func lagged(v []float64, lag int, f func(cur, prev float64) float64) []float64 {
	if lag < 0 || len(v) <= lag {
		return nil
	}
	out := make([]float64, len(v)-lag)
	for i := lag; i < len(v); i++ {
		out[i-lag] = f(v[i], v[i-lag])
	}
	return out
}

// windowMax returns the trailing maximum over period points.
func windowMax(v []float64, period int) []float64 {
	return window(v, period, func(w []float64) float64 {
		m := w[0]
		for _, x := range w[1:] {
			if x > m {
				m = x
			}
		}
		return m
	})
}

// windowMin returns the trailing minimum over period points.
func windowMin(v []float64, period int) []float64 {
	return window(v, period, func(w []float64) float64 {
		m := w[0]
		for _, x := range w[1:] {
			if x < m {
				m = x
			}
		}
		return m
	})
}

// window applies f to every full trailing window of period points.
func window(v []float64, period int, f func(w []float64) float64) []float64 {
	if period <= 0 || len(v) < period {
		return nil
	}
	out := make([]float64, len(v)-period+1)
	for i := range out {
		out[i] = f(v[i : i+period])
	}
	return out
}

func combine2(a, b []float64, f func(x, y float64) float64) []float64 {
	t := trimToShortest(a, b)
	out := make([]float64, len(t[0]))
	for i := range out {
		out[i] = f(t[0][i], t[1][i])
	}
	return out
}
