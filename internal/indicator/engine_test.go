package indicator

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"marketdash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

func seriesFromCloses(closes []float64) model.Series {
	high, low := hlc(closes)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			TS:     t0.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   high[i],
			Low:    low[i],
			Close:  c,
			Volume: 1000 + float64(i%7)*100,
		}
	}
	return model.NewSeries("NSE:TEST", "1m", bars)
}

type fakeRecorder struct {
	mu     sync.Mutex
	calls  map[string]int
	failed int
}

func (r *fakeRecorder) ObserveCompute(id string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[id]++
	if err != nil {
		r.failed++
	}
}

// ────────────────────────────────────────────────────────────
// End-to-end scenarios
// ────────────────────────────────────────────────────────────

func TestEngine_SMAScenario(t *testing.T) {
	series := seriesFromCloses(ramp(11, 10, 1))
	res, err := NewEngine().Compute(series, []Request{{ID: SMA, Period: 5}})
	require.NoError(t, err)

	r, ok := res["SMA_5"]
	require.True(t, ok, "keys: %v", res)
	require.NoError(t, r.Err)
	out := r.Output
	assert.Equal(t, "SMA_5", out.Key)
	assert.Equal(t, "SMA", out.ID)
	require.Equal(t, 7, out.Len())
	assert.Equal(t, 4, out.Offset)
	assertClose(t, "first SMA", out.Points[0].Values[0], 12, 1e-12)
	assert.Equal(t, series.Bars[4].TS, out.Points[0].TS)
	assert.Equal(t, series.Bars[10].TS, out.Points[6].TS)
}

func TestEngine_DEMAScenario(t *testing.T) {
	series := seriesFromCloses(wave(30))
	r, err := NewEngine().ComputeOne(series, Request{ID: DEMA, Period: 10})
	require.NoError(t, err)
	require.NoError(t, r.Err)
	assert.Equal(t, 12, r.Output.Len())
	assert.Equal(t, 18, r.Output.Offset)
	assert.Equal(t, series.Bars[18].TS, r.Output.Points[0].TS)
}

func TestEngine_MFIWithZeroVolume(t *testing.T) {
	series := seriesFromCloses(wave(40))
	for i := range series.Bars {
		series.Bars[i].Volume = 0
	}
	r, err := NewEngine().ComputeOne(series, Request{ID: MFI})
	require.NoError(t, err)
	require.NoError(t, r.Err)
	for _, p := range r.Output.Points {
		assert.False(t, math.IsNaN(p.Values[0]))
	}
}

// ────────────────────────────────────────────────────────────
// Offset law over every indicator
// ────────────────────────────────────────────────────────────

func TestEngine_OffsetLawAllIndicators(t *testing.T) {
	series := seriesFromCloses(wave(200))
	reqs := make([]Request, 0, len(IDs()))
	for _, id := range IDs() {
		reqs = append(reqs, Request{ID: id})
	}
	rec := &fakeRecorder{}
	res, err := NewEngine(WithWorkers(3), WithRecorder(rec)).Compute(series, reqs)
	require.NoError(t, err)
	require.Len(t, res, len(IDs()))

	for key, r := range res {
		require.NoError(t, r.Err, key)
		out := r.Output
		d, err := DefaultRegistry().Resolve(r.Request.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Lines, out.Lines, key)
		require.NotZero(t, out.Len(), key)
		assert.Equal(t, series.Len()-out.Len(), out.Offset, key)
		assert.Equal(t, series.Bars[out.Offset].TS, out.Points[0].TS, key)
		assert.Equal(t, series.Bars[series.Len()-1].TS, out.Points[out.Len()-1].TS, key)
		for _, p := range out.Points {
			assert.Len(t, p.Values, len(out.Lines), key)
		}
	}
	assert.Len(t, rec.calls, len(IDs()))
	assert.Zero(t, rec.failed)
}

func TestEngine_MinimumHistoryBoundary(t *testing.T) {
	// For every indicator, warm-up bars + 1 yield exactly one point and
	// warm-up bars alone are rejected.
	eng := NewEngine()
	for _, id := range IDs() {
		d, _ := DefaultRegistry().Resolve(id)
		p, err := Request{ID: id}.Resolve(d)
		require.NoError(t, err)
		k, err := kernelFor(id)
		require.NoError(t, err)
		w := k.warmup(p)

		r, err := eng.ComputeOne(seriesFromCloses(wave(w+1)), Request{ID: id})
		require.NoError(t, err)
		require.NoError(t, r.Err, id.String())
		assert.Equal(t, 1, r.Output.Len(), id.String())

		if w == 0 {
			continue
		}
		r, err = eng.ComputeOne(seriesFromCloses(wave(w)), Request{ID: id})
		require.NoError(t, err)
		assert.True(t, errors.Is(r.Err, ErrInsufficientHistory), "%s: %v", id, r.Err)
	}
}

// ────────────────────────────────────────────────────────────
// Errors
// ────────────────────────────────────────────────────────────

func TestEngine_PerRequestErrorsDoNotAbortBatch(t *testing.T) {
	series := seriesFromCloses(wave(30))
	series.HasVolume = false

	res, err := NewEngine().Compute(series, []Request{
		{ID: SMA, Period: 5},
		{ID: SMA, Period: 50},
		{ID: OBV},
		{ID: ID(999)},
		{ID: MACD, FastPeriod: 26, SlowPeriod: 12},
		{ID: RSI, Period: -3},
	})
	require.NoError(t, err)

	assert.NoError(t, res["SMA_5"].Err)
	assert.True(t, errors.Is(res["SMA_50"].Err, ErrInsufficientHistory), "%v", res["SMA_50"].Err)
	assert.True(t, errors.Is(res["OBV"].Err, ErrMissingRequiredField), "%v", res["OBV"].Err)
	assert.True(t, errors.Is(res["ID(999)#3"].Err, ErrUnknownIndicator), "%v", res["ID(999)#3"].Err)
	assert.True(t, errors.Is(res["MACD_26_12_9"].Err, ErrInvalidParameter), "%v", res["MACD_26_12_9"].Err)
	assert.True(t, errors.Is(res["RSI#5"].Err, ErrInvalidParameter), "%v", res["RSI#5"].Err)
	assert.Len(t, res, 6)
}

func TestEngine_RejectedRequestsKeepTheirOwnKeys(t *testing.T) {
	series := seriesFromCloses(wave(30))

	res, err := NewEngine().Compute(series, []Request{
		{ID: OBV, Period: -1},
		{ID: OBV},
		{Name: "NOPE"},
		{Name: "NOPE"},
		{ID: SMA, Period: 5},
	})
	require.NoError(t, err)
	require.Len(t, res, 5)

	assert.True(t, errors.Is(res["OBV#0"].Err, ErrInvalidParameter), "%v", res["OBV#0"].Err)
	require.NoError(t, res["OBV"].Err)
	assert.Equal(t, 30, res["OBV"].Output.Len())

	for _, key := range []string{"NOPE#2", "NOPE#3"} {
		assert.True(t, errors.Is(res[key].Err, ErrUnknownIndicator), "%s: %v", key, res[key].Err)
		assert.Equal(t, "NOPE", res[key].Request.Name)
	}
	assert.NoError(t, res["SMA_5"].Err)
}

func TestEngine_MissingHighLow(t *testing.T) {
	series := seriesFromCloses(wave(60))
	series.HasHighLow = false
	res, err := NewEngine().Compute(series, []Request{{ID: ATR}, {ID: EMA}})
	require.NoError(t, err)
	assert.True(t, errors.Is(res["ATR_14"].Err, ErrMissingRequiredField))
	assert.NoError(t, res["EMA_20"].Err)
}

func TestEngine_InvalidParameters(t *testing.T) {
	series := seriesFromCloses(wave(100))
	tests := []struct {
		name string
		req  Request
	}{
		{"MACD signal >= slow", Request{ID: MACD, FastPeriod: 5, SlowPeriod: 10, SignalPeriod: 10}},
		{"AO fast >= slow", Request{ID: AwesomeOsc, FastPeriod: 34, SlowPeriod: 5}},
		{"UO unordered", Request{ID: UltimateOsc, FastPeriod: 14, Period: 7, SlowPeriod: 28}},
		{"VOLOSC fast == slow", Request{ID: VolumeOsc, FastPeriod: 10, SlowPeriod: 10}},
		{"T3 factor > 1", Request{ID: T3, Factor: 1.5}},
		{"negative multiplier", Request{ID: Bollinger, StdDevMultiplier: -1}},
		{"negative period", Request{ID: SMA, Period: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewEngine().ComputeOne(series, tt.req)
			require.NoError(t, err)
			assert.True(t, errors.Is(r.Err, ErrInvalidParameter), "got %v", r.Err)
			assert.Nil(t, r.Output)
		})
	}
}

func TestEngine_InvalidSeriesAbortsBatch(t *testing.T) {
	series := seriesFromCloses(wave(20))
	series.Bars[5].TS = series.Bars[4].TS
	res, err := NewEngine().Compute(series, []Request{{ID: SMA, Period: 3}})
	assert.True(t, errors.Is(err, ErrInvalidSeries), "got %v", err)
	assert.Nil(t, res)

	series = seriesFromCloses(wave(20))
	series.Bars[7].Close = math.Inf(1)
	_, err = NewEngine().Compute(series, []Request{{ID: SMA, Period: 3}})
	assert.True(t, errors.Is(err, ErrInvalidSeries), "got %v", err)
}

func TestEngine_EmptySeries(t *testing.T) {
	res, err := NewEngine().Compute(model.NewSeries("X", "1m", nil), []Request{{ID: OBV}, {ID: SMA}})
	require.NoError(t, err)
	assert.True(t, errors.Is(res["OBV"].Err, ErrInsufficientHistory))
	assert.True(t, errors.Is(res["SMA_20"].Err, ErrInsufficientHistory))
}

// ────────────────────────────────────────────────────────────
// Keys
// ────────────────────────────────────────────────────────────

func TestEngine_DuplicateKeysComputedOnce(t *testing.T) {
	rec := &fakeRecorder{}
	series := seriesFromCloses(wave(60))
	res, err := NewEngine(WithRecorder(rec)).Compute(series, []Request{
		{ID: SMA},
		{ID: SMA, Period: 20},
		{ID: SMA, Period: 10},
	})
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Contains(t, res, "SMA_20")
	assert.Contains(t, res, "SMA_10")
	assert.Equal(t, 2, rec.calls["SMA"])
}

func TestEngine_MultiLineOutput(t *testing.T) {
	series := seriesFromCloses(wave(80))
	r, err := NewEngine().ComputeOne(series, Request{ID: Bollinger, StdDevMultiplier: 2.5})
	require.NoError(t, err)
	require.NoError(t, r.Err)
	assert.Equal(t, "BOLLINGER_20_2.5", r.Key)
	assert.Equal(t, []string{"upper", "middle", "lower"}, r.Output.Lines)

	upper, middle, lower := r.Output.Line("upper"), r.Output.Line("middle"), r.Output.Line("lower")
	for i := range middle {
		assert.GreaterOrEqual(t, upper[i], middle[i])
		assert.GreaterOrEqual(t, middle[i], lower[i])
	}
	assert.Nil(t, r.Output.Line("nope"))
}

// ────────────────────────────────────────────────────────────
// Normalizer
// ────────────────────────────────────────────────────────────

func TestAlign_OffsetLaw(t *testing.T) {
	series := seriesFromCloses(wave(10))
	out := Output{Lines: []string{"a", "b"}, Values: [][]float64{{1, 2, 3}, {4, 5, 6}}}
	aligned, err := Align(series, out)
	require.NoError(t, err)
	assert.Equal(t, 7, aligned.Offset)
	assert.Equal(t, series.Bars[7].TS, aligned.Points[0].TS)
	assert.Equal(t, []float64{3, 6}, aligned.Points[2].Values)
}

func TestAlign_Rejects(t *testing.T) {
	series := seriesFromCloses(wave(3))

	_, err := Align(series, Output{Lines: []string{"a", "b"}, Values: [][]float64{{1, 2}, {1}}})
	assert.True(t, errors.Is(err, ErrAlignment))

	_, err = Align(series, Output{Lines: []string{"a"}, Values: [][]float64{{1, 2, 3, 4}}})
	assert.True(t, errors.Is(err, ErrAlignment))
}
