package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These decouple the indicator service from concrete storage (SQLite for
// bars, Redis for computed outputs).

// BarReader supplies ordered bar series.
type BarReader interface {
	// ReadBars returns bars for symbol/interval with from <= ts <= to,
	// ascending by timestamp. A zero from or to leaves that side open.
	// limit > 0 keeps only the most recent limit bars.
	ReadBars(ctx context.Context, symbol, interval string, from, to time.Time, limit int) (Series, error)

	// Close releases underlying resources.
	Close() error
}

// BarWriter stores bars, replacing any existing bar with the same timestamp.
// Fields the series does not carry (HasHighLow, HasVolume) are stored as
// absent, not as zero.
type BarWriter interface {
	UpsertSeries(ctx context.Context, s Series) (int, error)

	// Close releases underlying resources.
	Close() error
}

// SeriesInfo summarizes one stored series.
type SeriesInfo struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Bars     int       `json:"bars"`
	First    time.Time `json:"first"`
	Last     time.Time `json:"last"`
}

// SeriesLister enumerates the series a bar store holds.
type SeriesLister interface {
	ListSeries(ctx context.Context) ([]SeriesInfo, error)
}

// OutputKey builds the cache key for one request key over one series window.
func OutputKey(fingerprint, requestKey string) string {
	return "ind:out:" + fingerprint + ":" + requestKey
}

// OutputCache stores aligned indicator outputs keyed by series fingerprint
// and request key.
type OutputCache interface {
	// GetOutput returns (nil, nil) on a miss.
	GetOutput(ctx context.Context, key string) (*AlignedOutput, error)

	SetOutput(ctx context.Context, key string, out *AlignedOutput) error

	// SetOutputs stores several outputs in one round trip.
	SetOutputs(ctx context.Context, outs map[string]*AlignedOutput) error

	// Close releases underlying resources.
	Close() error
}
