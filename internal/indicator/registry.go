package indicator

import (
	"fmt"
	"sort"
)

// Param names a tunable request field.
type Param int

const (
	ParamPeriod Param = iota + 1
	ParamFast
	ParamSlow
	ParamSignal
	ParamMultiplier
	ParamFactor
)

// Descriptor is the static metadata of one indicator.
type Descriptor struct {
	ID              ID       `json:"id"`
	Name            string   `json:"name"`
	Category        Category `json:"category"`
	RequiresHighLow bool     `json:"requires_high_low"`
	RequiresVolume  bool     `json:"requires_volume"`

	// Defaults; zero means the indicator has no such parameter (or, for
	// VWAP's period and VIDYA's factor, that the unset behavior applies).
	DefaultPeriod     int     `json:"default_period,omitempty"`
	DefaultFast       int     `json:"default_fast,omitempty"`
	DefaultSlow       int     `json:"default_slow,omitempty"`
	DefaultSignal     int     `json:"default_signal,omitempty"`
	DefaultMultiplier float64 `json:"default_multiplier,omitempty"`
	DefaultFactor     float64 `json:"default_factor,omitempty"`

	// Params lists the fields that affect the output, in key order.
	Params []Param  `json:"-"`
	Lines  []string `json:"lines"`
}

var descriptorTable = []Descriptor{
	{ID: SMA, Name: "Simple Moving Average", Category: CategoryOverlay, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: EMA, Name: "Exponential Moving Average", Category: CategoryOverlay, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: WMA, Name: "Weighted Moving Average", Category: CategoryOverlay, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: SMMA, Name: "Smoothed Moving Average", Category: CategoryOverlay, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: DEMA, Name: "Double Exponential Moving Average", Category: CategoryOverlay, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: TEMA, Name: "Triple Exponential Moving Average", Category: CategoryOverlay, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: TRIX, Name: "Triple Exponential Rate of Change", Category: CategoryTrend, DefaultPeriod: 15, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: HMA, Name: "Hull Moving Average", Category: CategoryOverlay, DefaultPeriod: 16, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: ZLEMA, Name: "Zero-Lag Exponential Moving Average", Category: CategoryOverlay, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: T3, Name: "Tillson T3", Category: CategoryOverlay, DefaultPeriod: 5, DefaultFactor: 0.7, Params: []Param{ParamPeriod, ParamFactor}, Lines: []string{"value"}},
	{ID: VIDYA, Name: "Variable Index Dynamic Average", Category: CategoryOverlay, DefaultPeriod: 14, Params: []Param{ParamPeriod, ParamFactor}, Lines: []string{"value"}},
	{ID: CMO, Name: "Chande Momentum Oscillator", Category: CategoryMomentum, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: RSI, Name: "Relative Strength Index", Category: CategoryMomentum, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: StochRSI, Name: "Stochastic RSI", Category: CategoryMomentum, DefaultPeriod: 14, DefaultSignal: 3, Params: []Param{ParamPeriod, ParamSignal}, Lines: []string{"k", "d"}},
	{ID: Stochastic, Name: "Stochastic Oscillator", Category: CategoryMomentum, RequiresHighLow: true, DefaultPeriod: 14, DefaultSignal: 3, Params: []Param{ParamPeriod, ParamSignal}, Lines: []string{"k", "d"}},
	{ID: WilliamsR, Name: "Williams %R", Category: CategoryMomentum, RequiresHighLow: true, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: CCI, Name: "Commodity Channel Index", Category: CategoryMomentum, RequiresHighLow: true, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: ROC, Name: "Rate of Change", Category: CategoryMomentum, DefaultPeriod: 12, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: Momentum, Name: "Momentum", Category: CategoryMomentum, DefaultPeriod: 10, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: MACD, Name: "Moving Average Convergence Divergence", Category: CategoryTrend, DefaultFast: 12, DefaultSlow: 26, DefaultSignal: 9, Params: []Param{ParamFast, ParamSlow, ParamSignal}, Lines: []string{"macd", "signal", "histogram"}},
	{ID: ADX, Name: "Average Directional Index", Category: CategoryTrend, RequiresHighLow: true, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"adx", "plus_di", "minus_di"}},
	{ID: ATR, Name: "Average True Range", Category: CategoryVolatility, RequiresHighLow: true, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: Bollinger, Name: "Bollinger Bands", Category: CategoryVolatility, DefaultPeriod: 20, DefaultMultiplier: 2, Params: []Param{ParamPeriod, ParamMultiplier}, Lines: []string{"upper", "middle", "lower"}},
	{ID: Keltner, Name: "Keltner Channels", Category: CategoryVolatility, RequiresHighLow: true, DefaultPeriod: 20, DefaultMultiplier: 2, Params: []Param{ParamPeriod, ParamMultiplier}, Lines: []string{"upper", "middle", "lower"}},
	{ID: Donchian, Name: "Donchian Channels", Category: CategoryVolatility, RequiresHighLow: true, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"upper", "middle", "lower"}},
	{ID: AwesomeOsc, Name: "Awesome Oscillator", Category: CategoryMomentum, RequiresHighLow: true, DefaultFast: 5, DefaultSlow: 34, Params: []Param{ParamFast, ParamSlow}, Lines: []string{"value"}},
	{ID: UltimateOsc, Name: "Ultimate Oscillator", Category: CategoryMomentum, RequiresHighLow: true, DefaultFast: 7, DefaultPeriod: 14, DefaultSlow: 28, Params: []Param{ParamFast, ParamPeriod, ParamSlow}, Lines: []string{"value"}},
	{ID: OBV, Name: "On-Balance Volume", Category: CategoryVolume, RequiresVolume: true, Lines: []string{"value"}},
	{ID: VWAP, Name: "Volume Weighted Average Price", Category: CategoryVolume, RequiresHighLow: true, RequiresVolume: true, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: MFI, Name: "Money Flow Index", Category: CategoryVolume, RequiresHighLow: true, RequiresVolume: true, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: CMF, Name: "Chaikin Money Flow", Category: CategoryVolume, RequiresHighLow: true, RequiresVolume: true, DefaultPeriod: 20, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
	{ID: VolumeOsc, Name: "Volume Oscillator", Category: CategoryVolume, RequiresVolume: true, DefaultFast: 5, DefaultSlow: 10, Params: []Param{ParamFast, ParamSlow}, Lines: []string{"value"}},
	{ID: VolumeROC, Name: "Volume Rate of Change", Category: CategoryVolume, RequiresVolume: true, DefaultPeriod: 14, Params: []Param{ParamPeriod}, Lines: []string{"value"}},
}

// Registry is a read-only lookup of descriptors. It is built once and never
// mutated, so concurrent reads need no locking.
type Registry struct {
	byID map[ID]Descriptor
}

var defaultRegistry = mustRegistry(descriptorTable)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// NewRegistry builds a registry from a descriptor table. Every declared ID
// must be described exactly once.
func NewRegistry(table []Descriptor) (*Registry, error) {
	byID := make(map[ID]Descriptor, len(table))
	for _, d := range table {
		if !d.ID.Valid() {
			return nil, fmt.Errorf("registry: invalid id %d", int(d.ID))
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate descriptor for %s", d.ID)
		}
		byID[d.ID] = d.clone()
	}
	for _, id := range IDs() {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("registry: no descriptor for %s", id)
		}
	}
	return &Registry{byID: byID}, nil
}

func mustRegistry(table []Descriptor) *Registry {
	r, err := NewRegistry(table)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the descriptor for id, or ErrUnknownIndicator.
func (r *Registry) Resolve(id ID) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownIndicator, id)
	}
	return d.clone(), nil
}

// Lookup resolves a descriptor by name.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	id, err := ParseID(name)
	if err != nil {
		return Descriptor{}, err
	}
	return r.Resolve(id)
}

// All returns every descriptor ordered by ID.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d Descriptor) clone() Descriptor {
	d.Params = append([]Param(nil), d.Params...)
	d.Lines = append([]string(nil), d.Lines...)
	return d
}

func (d Descriptor) uses(p Param) bool {
	for _, x := range d.Params {
		if x == p {
			return true
		}
	}
	return false
}
