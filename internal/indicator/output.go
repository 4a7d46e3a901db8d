package indicator

// Output is the raw result of one indicator: one or more named lines of equal
// length, each point belonging to a bar by index from the right.
type Output struct {
	Lines  []string
	Values [][]float64
}

func single(name string, v []float64) Output {
	return Output{Lines: []string{name}, Values: [][]float64{v}}
}

func bands(upper, middle, lower []float64) Output {
	return Output{
		Lines:  []string{"upper", "middle", "lower"},
		Values: [][]float64{upper, middle, lower},
	}
}

// Len returns the length of the first line (0 for an empty output).
func (o Output) Len() int {
	if len(o.Values) == 0 {
		return 0
	}
	return len(o.Values[0])
}
