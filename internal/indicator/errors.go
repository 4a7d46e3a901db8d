package indicator

import "errors"

// Per-request errors. Each is reported on the failing Result only; the other
// requests in the batch still compute.
var (
	ErrUnknownIndicator     = errors.New("unknown indicator")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInsufficientHistory  = errors.New("insufficient history")
	ErrInvalidParameter     = errors.New("invalid parameter")
)

// ErrInvalidSeries rejects a whole batch: unordered or duplicate timestamps,
// or non-finite bar values.
var ErrInvalidSeries = errors.New("invalid bar series")

// ErrAlignment means a computation produced a length that disagrees with its
// declared warm-up. Emitting such an output would shift values onto the wrong
// bars, so it is returned as an error instead.
var ErrAlignment = errors.New("output misaligned with declared warm-up")
