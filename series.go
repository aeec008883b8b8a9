package horizon

import (
	"fmt"
	"math"
)

// Series is a sequence of state vectors sampled at strictly increasing
// times. It represents both observed data and simulated trajectories.
type Series struct {
	Times  []float64   `json:"times"`
	Values [][]float64 `json:"values"`
}

// NewSeries builds a validated Series. The slices are not copied.
func NewSeries(times []float64, values [][]float64) (Series, error) {
	s := Series{Times: times, Values: values}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// Len returns the number of samples.
func (s Series) Len() int {
	return len(s.Times)
}

// Dim returns the state dimension, or 0 for an empty series.
func (s Series) Dim() int {
	if len(s.Values) == 0 {
		return 0
	}
	return len(s.Values[0])
}

// Validate checks sample alignment, dimensions, ordering and finiteness.
func (s Series) Validate() error {
	if len(s.Times) != len(s.Values) {
		return fmt.Errorf("%w: %d times but %d values", ErrInvalidSeries, len(s.Times), len(s.Values))
	}
	dim := s.Dim()
	for i, t := range s.Times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: time %d is not finite", ErrInvalidSeries, i)
		}
		if i > 0 && t <= s.Times[i-1] {
			return fmt.Errorf("%w: times not strictly increasing at %d", ErrInvalidSeries, i)
		}
		if len(s.Values[i]) != dim || dim == 0 {
			return fmt.Errorf("%w: sample %d has dimension %d, want %d", ErrInvalidSeries, i, len(s.Values[i]), dim)
		}
		if !finite(s.Values[i]) {
			return fmt.Errorf("%w: sample %d is not finite", ErrInvalidSeries, i)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	out := Series{
		Times:  append([]float64(nil), s.Times...),
		Values: make([][]float64, len(s.Values)),
	}
	for i, v := range s.Values {
		out.Values[i] = append([]float64(nil), v...)
	}
	return out
}

// Restrict returns the prefix of samples with t <= h. Because times are
// sorted, the result for a smaller h is always a prefix of the result for
// a larger one. Rows are shared with s.
func (s Series) Restrict(h float64) Series {
	n := 0
	for n < len(s.Times) && s.Times[n] <= h {
		n++
	}
	return Series{Times: s.Times[:n:n], Values: s.Values[:n:n]}
}

// Pick returns the samples at the given indices, in the given order.
// Rows are shared with s.
func (s Series) Pick(idx []int) Series {
	out := Series{
		Times:  make([]float64, len(idx)),
		Values: make([][]float64, len(idx)),
	}
	for i, j := range idx {
		out.Times[i] = s.Times[j]
		out.Values[i] = s.Values[j]
	}
	return out
}

// Linspace returns n evenly spaced points from a to b inclusive.
func Linspace(a, b float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{a}
	}
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
