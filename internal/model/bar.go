package model

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Bar is one OHLCV observation for a fixed interval.
type Bar struct {
	TS     time.Time `json:"ts"` // interval start (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// TypicalPrice returns (high + low + close) / 3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Series is an ordered, immutable-by-convention sequence of bars for one
// symbol and interval. HasHighLow and HasVolume record whether the supplier
// actually provided those fields; a zero value is not the same as absent.
type Series struct {
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
	Bars       []Bar  `json:"bars"`
	HasHighLow bool   `json:"has_high_low"`
	HasVolume  bool   `json:"has_volume"`
}

// NewSeries builds a series with every field present.
func NewSeries(symbol, interval string, bars []Bar) Series {
	return Series{
		Symbol:     symbol,
		Interval:   interval,
		Bars:       bars,
		HasHighLow: true,
		HasVolume:  true,
	}
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Key returns "symbol:interval".
func (s Series) Key() string {
	return s.Symbol + ":" + s.Interval
}

// Fingerprint identifies the exact bar window this series covers. Two series
// with the same fingerprint are treated as identical inputs by caches, so
// the bar contents are hashed in: a bar revised in place changes it.
func (s Series) Fingerprint() string {
	if len(s.Bars) == 0 {
		return s.Key() + ":empty"
	}
	first := s.Bars[0].TS.Unix()
	last := s.Bars[len(s.Bars)-1].TS.Unix()
	return s.Key() + ":" + Itoa64(first) + "-" + Itoa64(last) + ":" + Itoa(len(s.Bars)) +
		":" + strconv.FormatUint(s.contentHash(), 16)
}

// contentHash is xxhash64 over every bar's timestamp and fields plus the
// presence flags.
func (s Series) contentHash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	var flags uint64
	if s.HasHighLow {
		flags |= 1
	}
	if s.HasVolume {
		flags |= 2
	}
	put(flags)
	for _, b := range s.Bars {
		put(uint64(b.TS.UnixNano()))
		put(math.Float64bits(b.Open))
		put(math.Float64bits(b.High))
		put(math.Float64bits(b.Low))
		put(math.Float64bits(b.Close))
		put(math.Float64bits(b.Volume))
	}
	return d.Sum64()
}

// Columns splits the series into per-field slices.
func (s Series) Columns() (open, high, low, close, volume []float64) {
	n := len(s.Bars)
	open = make([]float64, n)
	high = make([]float64, n)
	low = make([]float64, n)
	close = make([]float64, n)
	volume = make([]float64, n)
	for i, b := range s.Bars {
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
		volume[i] = b.Volume
	}
	return open, high, low, close, volume
}

// JSON returns the JSON-encoded series (ignoring errors).
func (s Series) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
