// Package indicator computes technical indicator series over bar history.
//
// Every indicator is a pure batch function of an ordered bar series. Outputs
// are shorter than their input by the indicator's cumulative warm-up, and the
// Normalizer (Align) maps each output point back onto the bar it belongs to.
// Chained constructions are expressed as a Pipeline so the warm-up of every
// stage is declared once and summed generically.
package indicator

import (
	"fmt"
	"strings"
)

// ID identifies an indicator family. The set is closed; the dispatcher in
// kernel.go switches over every value.
type ID int

const (
	SMA ID = iota + 1
	EMA
	WMA
	SMMA
	DEMA
	TEMA
	TRIX
	HMA
	ZLEMA
	T3
	VIDYA
	CMO
	RSI
	StochRSI
	Stochastic
	WilliamsR
	CCI
	ROC
	Momentum
	MACD
	ADX
	ATR
	Bollinger
	Keltner
	Donchian
	AwesomeOsc
	UltimateOsc
	OBV
	VWAP
	MFI
	CMF
	VolumeOsc
	VolumeROC

	idEnd // sentinel, keep last
)

var idNames = [...]string{
	SMA:         "SMA",
	EMA:         "EMA",
	WMA:         "WMA",
	SMMA:        "SMMA",
	DEMA:        "DEMA",
	TEMA:        "TEMA",
	TRIX:        "TRIX",
	HMA:         "HMA",
	ZLEMA:       "ZLEMA",
	T3:          "T3",
	VIDYA:       "VIDYA",
	CMO:         "CMO",
	RSI:         "RSI",
	StochRSI:    "STOCHRSI",
	Stochastic:  "STOCH",
	WilliamsR:   "WILLR",
	CCI:         "CCI",
	ROC:         "ROC",
	Momentum:    "MOM",
	MACD:        "MACD",
	ADX:         "ADX",
	ATR:         "ATR",
	Bollinger:   "BOLLINGER",
	Keltner:     "KELTNER",
	Donchian:    "DONCHIAN",
	AwesomeOsc:  "AO",
	UltimateOsc: "UO",
	OBV:         "OBV",
	VWAP:        "VWAP",
	MFI:         "MFI",
	CMF:         "CMF",
	VolumeOsc:   "VOLOSC",
	VolumeROC:   "VROC",
}

// IDs returns every known identifier in declaration order.
func IDs() []ID {
	ids := make([]ID, 0, int(idEnd)-1)
	for id := SMA; id < idEnd; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Valid reports whether id is one of the declared identifiers.
func (id ID) Valid() bool { return id >= SMA && id < idEnd }

func (id ID) String() string {
	if !id.Valid() {
		return "ID(" + fmt.Sprint(int(id)) + ")"
	}
	return idNames[id]
}

// ParseID resolves a case-insensitive name such as "sma" or "Bollinger".
func ParseID(s string) (ID, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for id := SMA; id < idEnd; id++ {
		if idNames[id] == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIndicator, s)
}

// MarshalText encodes the id by name.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndicator, int(id))
	}
	return []byte(idNames[id]), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (id *ID) UnmarshalText(b []byte) error {
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Category groups indicators for presentation.
type Category int

const (
	CategoryOverlay Category = iota + 1
	CategoryTrend
	CategoryMomentum
	CategoryVolatility
	CategoryVolume
)

func (c Category) String() string {
	switch c {
	case CategoryOverlay:
		return "overlay"
	case CategoryTrend:
		return "trend"
	case CategoryMomentum:
		return "momentum"
	case CategoryVolatility:
		return "volatility"
	case CategoryVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(b []byte) error {
	for v := CategoryOverlay; v <= CategoryVolume; v++ {
		if v.String() == string(b) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", b)
}
