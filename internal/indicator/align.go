package indicator

import (
	"fmt"

	"marketdash/internal/model"
)

// Align maps output index j onto bar index j + offset, where
// offset = series.Len() - out.Len(), and pairs every tuple with that bar's
// timestamp. The same offset applies to every line of a multi-line output.
func Align(series model.Series, out Output) (*model.AlignedOutput, error) {
	n := series.Len()
	l := out.Len()
	for i, v := range out.Values {
		if len(v) != l {
			return nil, fmt.Errorf("%w: line %s has %d points, line %s has %d",
				ErrAlignment, out.Lines[i], len(v), out.Lines[0], l)
		}
	}
	if l > n {
		return nil, fmt.Errorf("%w: %d output points for %d bars", ErrAlignment, l, n)
	}

	offset := n - l
	aligned := &model.AlignedOutput{
		Lines:  append([]string(nil), out.Lines...),
		Offset: offset,
		Points: make([]model.AlignedPoint, l),
	}
	for j := 0; j < l; j++ {
		vals := make([]float64, len(out.Values))
		for k, line := range out.Values {
			vals[k] = line[j]
		}
		aligned.Points[j] = model.AlignedPoint{
			TS:     series.Bars[offset+j].TS,
			Values: vals,
		}
	}
	return aligned, nil
}
