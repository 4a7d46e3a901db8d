package indicator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Request asks for one indicator. Zero-valued fields fall back to the
// descriptor's defaults; negative values are rejected.
type Request struct {
	ID               ID      `json:"id"`
	Period           int     `json:"period,omitempty"`
	FastPeriod       int     `json:"fast_period,omitempty"`
	SlowPeriod       int     `json:"slow_period,omitempty"`
	SignalPeriod     int     `json:"signal_period,omitempty"`
	StdDevMultiplier float64 `json:"std_dev_multiplier,omitempty"`
	Factor           float64 `json:"factor,omitempty"` // T3 volume factor, VIDYA alpha

	// Name keeps an identifier that did not parse, with ID left zero. The
	// request then fails on its own with ErrUnknownIndicator instead of
	// rejecting the batch it arrived in.
	Name string `json:"-"`
}

// UnmarshalJSON decodes "id" by name. An unknown name is kept in Name.
func (r *Request) UnmarshalJSON(b []byte) error {
	type plain Request
	aux := struct {
		ID string `json:"id"`
		*plain
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.ID, r.Name = 0, ""
	id, err := ParseID(aux.ID)
	if err != nil {
		r.Name = aux.ID
		return nil
	}
	r.ID = id
	return nil
}

// MarshalJSON encodes "id" by name, echoing Name for an unknown id.
func (r Request) MarshalJSON() ([]byte, error) {
	type plain Request
	return json.Marshal(struct {
		ID string `json:"id"`
		plain
	}{ID: r.label(), plain: plain(r)})
}

// label names the requested indicator whether or not it is known.
func (r Request) label() string {
	if r.ID.Valid() || r.Name == "" {
		return r.ID.String()
	}
	return r.Name
}

// Params are a request's parameters after defaults have been applied.
type Params struct {
	Period     int
	Fast       int
	Slow       int
	Signal     int
	Multiplier float64
	Factor     float64
}

// Resolve applies d's defaults to r. It checks signs only; relations between
// parameters are checked by the indicator's kernel.
func (r Request) Resolve(d Descriptor) (Params, error) {
	if r.Period < 0 || r.FastPeriod < 0 || r.SlowPeriod < 0 || r.SignalPeriod < 0 {
		return Params{}, fmt.Errorf("%w: %s: periods must not be negative", ErrInvalidParameter, d.ID)
	}
	if r.StdDevMultiplier < 0 || r.Factor < 0 {
		return Params{}, fmt.Errorf("%w: %s: multiplier and factor must not be negative", ErrInvalidParameter, d.ID)
	}
	p := Params{
		Period:     orDefault(r.Period, d.DefaultPeriod),
		Fast:       orDefault(r.FastPeriod, d.DefaultFast),
		Slow:       orDefault(r.SlowPeriod, d.DefaultSlow),
		Signal:     orDefault(r.SignalPeriod, d.DefaultSignal),
		Multiplier: r.StdDevMultiplier,
		Factor:     r.Factor,
	}
	if p.Multiplier == 0 {
		p.Multiplier = d.DefaultMultiplier
	}
	if p.Factor == 0 {
		p.Factor = d.DefaultFactor
	}
	return p, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Key names a resolved request: the indicator id followed by every non-zero
// parameter the indicator uses, e.g. "SMA_20", "MACD_12_26_9",
// "BOLLINGER_20_2". Two requests with equal keys produce equal outputs.
func (p Params) Key(d Descriptor) string {
	var sb strings.Builder
	sb.WriteString(d.ID.String())
	for _, param := range d.Params {
		var s string
		switch param {
		case ParamPeriod:
			s = intPart(p.Period)
		case ParamFast:
			s = intPart(p.Fast)
		case ParamSlow:
			s = intPart(p.Slow)
		case ParamSignal:
			s = intPart(p.Signal)
		case ParamMultiplier:
			s = floatPart(p.Multiplier)
		case ParamFactor:
			s = floatPart(p.Factor)
		}
		if s != "" {
			sb.WriteByte('_')
			sb.WriteString(s)
		}
	}
	return sb.String()
}

func intPart(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func floatPart(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseRequests parses a comma-separated list such as
// "SMA:20,MACD:12:26:9,BOLLINGER:20:2.5". The fields after the name fill the
// indicator's parameters in the order its key lists them. An unknown name
// yields a Request carrying only Name, so it fails alone when computed;
// malformed parameters of a known indicator fail the whole parse.
func ParseRequests(s string, reg *Registry) ([]Request, error) {
	var reqs []Request
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		d, err := reg.Lookup(fields[0])
		if errors.Is(err, ErrUnknownIndicator) {
			reqs = append(reqs, Request{Name: strings.TrimSpace(fields[0])})
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(fields)-1 > len(d.Params) {
			return nil, fmt.Errorf("%w: %q: %s takes at most %d parameters",
				ErrInvalidParameter, part, d.ID, len(d.Params))
		}
		req := Request{ID: d.ID}
		for i, f := range fields[1:] {
			if err := req.set(d.Params[i], f); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParameter, part, err)
			}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (r *Request) set(p Param, s string) error {
	switch p {
	case ParamMultiplier, ParamFactor:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		if p == ParamMultiplier {
			r.StdDevMultiplier = v
		} else {
			r.Factor = v
		}
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	switch p {
	case ParamPeriod:
		r.Period = v
	case ParamFast:
		r.FastPeriod = v
	case ParamSlow:
		r.SlowPeriod = v
	case ParamSignal:
		r.SignalPeriod = v
	}
	return nil
}
