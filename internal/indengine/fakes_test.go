package indengine

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"marketdash/internal/model"
)

var t0 = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

// waveSeries builds n minute bars with every field present.
func waveSeries(symbol string, n int) model.Series {
	bars := make([]model.Bar, n)
	for i := range bars {
		x := float64(i)
		c := 100 + 5*math.Sin(x/3) + 0.1*x
		bars[i] = model.Bar{
			TS:     t0.Add(time.Duration(i) * time.Minute),
			Open:   c - 0.2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + float64(i%5)*50,
		}
	}
	return model.NewSeries(symbol, "1m", bars)
}

// memBars is an in-memory model.BarReader and model.SeriesLister.
type memBars struct {
	mu     sync.Mutex
	series map[string]model.Series
	err    error
	reads  int
}

func newMemBars(ss ...model.Series) *memBars {
	m := &memBars{series: make(map[string]model.Series)}
	for _, s := range ss {
		m.series[s.Key()] = s
	}
	return m
}

func (m *memBars) ReadBars(_ context.Context, symbol, interval string, from, to time.Time, limit int) (model.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return model.Series{}, m.err
	}
	s, ok := m.series[symbol+":"+interval]
	if !ok {
		return model.NewSeries(symbol, interval, nil), nil
	}
	var bars []model.Bar
	for _, b := range s.Bars {
		if !from.IsZero() && b.TS.Before(from) {
			continue
		}
		if !to.IsZero() && b.TS.After(to) {
			continue
		}
		bars = append(bars, b)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	s.Bars = bars
	return s, nil
}

func (m *memBars) ListSeries(context.Context) ([]model.SeriesInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SeriesInfo
	for _, s := range m.series {
		out = append(out, model.SeriesInfo{
			Symbol:   s.Symbol,
			Interval: s.Interval,
			Bars:     s.Len(),
			First:    s.Bars[0].TS,
			Last:     s.Bars[len(s.Bars)-1].TS,
		})
	}
	return out, nil
}

func (m *memBars) Close() error { return nil }

// memCache is an in-memory model.OutputCache.
type memCache struct {
	mu   sync.Mutex
	data map[string]*model.AlignedOutput
	err  error
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]*model.AlignedOutput)}
}

func (c *memCache) GetOutput(_ context.Context, key string) (*model.AlignedOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.data[key], nil
}

func (c *memCache) SetOutput(_ context.Context, key string, out *model.AlignedOutput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sets++
	c.data[key] = out
	return nil
}

func (c *memCache) SetOutputs(ctx context.Context, outs map[string]*model.AlignedOutput) error {
	for key, out := range outs {
		if err := c.SetOutput(ctx, key, out); err != nil {
			return err
		}
	}
	return nil
}

func (c *memCache) Close() error { return nil }

var errCacheDown = errors.New("cache down")
