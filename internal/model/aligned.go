package model

import (
	"encoding/json"
	"time"
)

// AlignedPoint pairs one indicator value tuple with the bar timestamp it
// belongs to.
type AlignedPoint struct {
	TS     time.Time `json:"ts"`
	Values []float64 `json:"values"`
}

// AlignedOutput is an indicator output mapped back onto bar timestamps.
// Offset is the number of leading bars consumed as warm-up.
type AlignedOutput struct {
	Key    string         `json:"key"` // e.g. "SMA_20", "BOLLINGER_20_2"
	ID     string         `json:"id"`  // descriptor id, e.g. "SMA"
	Lines  []string       `json:"lines"`
	Offset int            `json:"offset"`
	Points []AlignedPoint `json:"points"`
}

// Len returns the number of aligned points.
func (a *AlignedOutput) Len() int { return len(a.Points) }

// Line returns the values of the named line, or nil if the output has no
// such line.
func (a *AlignedOutput) Line(name string) []float64 {
	idx := -1
	for i, l := range a.Lines {
		if l == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(a.Points))
	for i, p := range a.Points {
		out[i] = p.Values[idx]
	}
	return out
}

// JSON returns the JSON-encoded output.
func (a *AlignedOutput) JSON() []byte {
	b, _ := json.Marshal(a)
	return b
}
