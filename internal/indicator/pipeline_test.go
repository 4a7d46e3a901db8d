package indicator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_WarmupIsAdditive(t *testing.T) {
	// Three chained EMAs of period P discard 3(P-1) points, not P-1.
	for _, p := range []int{2, 5, 10, 20} {
		pipe := emaChain(p, 3)
		assert.Equal(t, 3*(p-1), pipe.Warmup(), "EMAx3(%d)", p)
		assert.Equal(t, 3*(p-1)+1, pipe.MinInput())
	}
	assert.Equal(t, 3*(15-1)+1, trixPipeline(15).Warmup())
}

func TestPipeline_RunReturnsEveryStage(t *testing.T) {
	values := wave(40)
	outs, err := emaChain(5, 3).Run(values)
	require.NoError(t, err)
	require.Len(t, outs, 3)
	assert.Len(t, outs[0], 36)
	assert.Len(t, outs[1], 32)
	assert.Len(t, outs[2], 28)
}

func TestPipeline_InsufficientHistory(t *testing.T) {
	_, err := emaChain(10, 2).Run(wave(18))
	assert.True(t, errors.Is(err, ErrInsufficientHistory), "got %v", err)

	_, err = emaChain(10, 2).Run(wave(19))
	assert.NoError(t, err)
}

func TestPipeline_StageLengthMismatch(t *testing.T) {
	bad := Stage{Name: "bad", Warmup: 2, Apply: func(v []float64) []float64 { return v[1:] }}
	_, err := Pipeline{bad}.Run(wave(10))
	assert.True(t, errors.Is(err, ErrAlignment), "got %v", err)
}

func TestPipeline_NonFiniteStops(t *testing.T) {
	poison := Stage{Name: "poison", Warmup: 0, Apply: func(v []float64) []float64 {
		out := append([]float64(nil), v...)
		out[3] = math.NaN()
		return out
	}}
	_, err := Pipeline{poison, smaStage(3)}.Run(wave(10))
	assert.True(t, errors.Is(err, ErrInvalidSeries), "got %v", err)
}

func TestPipeline_EmptyReturnsInput(t *testing.T) {
	in := wave(5)
	out, err := Pipeline{}.Result(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// ────────────────────────────────────────────────────────────
// Composite length laws
// ────────────────────────────────────────────────────────────

func TestComposites_LengthLaw(t *testing.T) {
	values := wave(120)
	m := len(values)
	for _, p := range []int{2, 5, 9, 16} {
		root := 1
		for (root+1)*(root+1) <= p {
			root++
		}
		tests := []struct {
			name string
			got  []float64
			want int
		}{
			{"DEMA", DEMAValues(values, p), m - 2*(p-1)},
			{"TEMA", TEMAValues(values, p), m - 3*(p-1)},
			{"TRIX", TRIXValues(values, p), m - 3*(p-1) - 1},
			{"HMA", HMAValues(values, p), m - (p - 1) - (root - 1)},
			{"ZLEMA", ZLEMAValues(values, p), m - (p-1)/2 - (p - 1)},
			{"T3", T3Values(values, p, 0.7), m - 6*(p-1)},
			{"VIDYA", VIDYAValues(values, p, 0.2), m - p},
			{"CMO", CMOValues(values, p), m - p},
			{"RSI", RSIValues(values, p), m - p},
		}
		for _, tt := range tests {
			assert.Len(t, tt.got, tt.want, "%s(%d)", tt.name, p)
		}
	}
}

func TestDEMA_Scenario30Bars(t *testing.T) {
	// Two chained EMA(10) stages each discard 9 points: 30 - 9 - 9 = 12.
	out := DEMAValues(wave(30), 10)
	assert.Len(t, out, 12)
}

func TestTRIX_ConstantIsZero(t *testing.T) {
	for _, v := range TRIXValues(constant(60, 50), 5) {
		assertClose(t, "TRIX flat", v, 0, 1e-12)
	}
}

func TestT3_Constant(t *testing.T) {
	// The four coefficients sum to 1, so a flat series passes through.
	for _, v := range T3Values(constant(60, 75), 5, 0.7) {
		assertClose(t, "T3 flat", v, 75, 1e-9)
	}
}

func TestVIDYA_ConstantKeepsSeed(t *testing.T) {
	// CMO of a flat series is 0, so the weight is 0 and the seed carries.
	for _, v := range VIDYAValues(constant(40, 10), 14, 0.2) {
		assertClose(t, "VIDYA flat", v, 10, 1e-12)
	}
}

func TestMACD_LinesShareLength(t *testing.T) {
	values := wave(100)
	m, s, h := MACDValues(values, 12, 26, 9)
	want := len(values) - (26 - 1) - (9 - 1)
	require.Len(t, m, want)
	require.Len(t, s, want)
	require.Len(t, h, want)
	for i := range h {
		assertClose(t, "MACD histogram", h[i], m[i]-s[i], 1e-12)
	}
}

func TestMACD_FlatIsZero(t *testing.T) {
	m, s, h := MACDValues(constant(60, 20), 12, 26, 9)
	for i := range m {
		assertClose(t, "macd", m[i], 0, 1e-12)
		assertClose(t, "signal", s[i], 0, 1e-12)
		assertClose(t, "hist", h[i], 0, 1e-12)
	}
}
