package indicator

import (
	"fmt"
	"math"
)

// Stage is one step of a chained computation. Apply must return exactly
// len(input) - Warmup values (or nil when the input is too short).
type Stage struct {
	Name   string
	Warmup int
	Apply  func([]float64) []float64
}

// Pipeline is an ordered list of stages; stage k consumes the output of
// stage k-1. Warm-up is additive across stages.
type Pipeline []Stage

// Warmup returns the total number of input points consumed before the last
// stage emits its first value.
func (p Pipeline) Warmup() int {
	total := 0
	for _, s := range p {
		total += s.Warmup
	}
	return total
}

// MinInput is the shortest input that yields at least one output point.
func (p Pipeline) MinInput() int { return p.Warmup() + 1 }

// Run executes every stage and returns each stage's output, in order.
// The last element is the pipeline's result.
func (p Pipeline) Run(in []float64) ([][]float64, error) {
	if len(in) < p.MinInput() {
		return nil, fmt.Errorf("%w: need %d points, got %d", ErrInsufficientHistory, p.MinInput(), len(in))
	}
	outs := make([][]float64, 0, len(p))
	cur := in
	for _, s := range p {
		next := s.Apply(cur)
		if want := len(cur) - s.Warmup; len(next) != want {
			return nil, fmt.Errorf("%w: stage %s returned %d points from %d, want %d",
				ErrAlignment, s.Name, len(next), len(cur), want)
		}
		if i := firstNonFinite(next); i >= 0 {
			return nil, fmt.Errorf("%w: stage %s produced non-finite value at %d", ErrInvalidSeries, s.Name, i)
		}
		outs = append(outs, next)
		cur = next
	}
	return outs, nil
}

// Result runs the pipeline and returns only the final stage's output.
func (p Pipeline) Result(in []float64) ([]float64, error) {
	outs, err := p.Run(in)
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return in, nil
	}
	return outs[len(outs)-1], nil
}

func smaStage(period int) Stage {
	return Stage{Name: "sma", Warmup: period - 1, Apply: func(v []float64) []float64 { return SMAValues(v, period) }}
}

func emaStage(period int) Stage {
	return Stage{Name: "ema", Warmup: period - 1, Apply: func(v []float64) []float64 { return EMAValues(v, period) }}
}

func wmaStage(period int) Stage {
	return Stage{Name: "wma", Warmup: period - 1, Apply: func(v []float64) []float64 { return WMAValues(v, period) }}
}

func smmaStage(period int) Stage {
	return Stage{Name: "smma", Warmup: period - 1, Apply: func(v []float64) []float64 { return SMMAValues(v, period) }}
}

// emaChain is n EMAs of the same period applied in sequence.
func emaChain(period, n int) Pipeline {
	p := make(Pipeline, n)
	for i := range p {
		p[i] = emaStage(period)
	}
	return p
}

// tail returns the last n values of v.
func tail(v []float64, n int) []float64 {
	if n >= len(v) {
		return v
	}
	return v[len(v)-n:]
}

// trimToShortest cuts every series to the length of the shortest one,
// dropping leading points. Series that end on the same bar stay aligned.
func trimToShortest(series ...[]float64) [][]float64 {
	n := -1
	for _, s := range series {
		if n < 0 || len(s) < n {
			n = len(s)
		}
	}
	out := make([][]float64, len(series))
	for i, s := range series {
		out[i] = tail(s, n)
	}
	return out
}

// safeDiv returns num/den, or fallback when den is zero.
func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

func firstNonFinite(v []float64) int {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}
