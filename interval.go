package horizon

import (
	"fmt"
	"math"
)

// Interval is a closed span [Start, End] of the independent variable.
type Interval struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Validate reports whether both ends are finite and End > Start.
func (h Interval) Validate() error {
	if math.IsNaN(h.Start) || math.IsInf(h.Start, 0) || math.IsNaN(h.End) || math.IsInf(h.End, 0) {
		return fmt.Errorf("%w: non-finite interval %s", ErrInvalidHorizonSequence, h)
	}
	if h.End <= h.Start {
		return fmt.Errorf("%w: empty interval %s", ErrInvalidHorizonSequence, h)
	}
	return nil
}

// Len returns End - Start.
func (h Interval) Len() float64 {
	return h.End - h.Start
}

// Contains reports whether t lies in [Start, End].
func (h Interval) Contains(t float64) bool {
	return t >= h.Start && t <= h.End
}

// Covers reports whether other is a subset of h.
func (h Interval) Covers(other Interval) bool {
	return other.Start >= h.Start && other.End <= h.End
}

func (h Interval) String() string {
	return fmt.Sprintf("[%g, %g]", h.Start, h.End)
}

// Fractions converts fractions of the full horizon length into absolute
// checkpoints. A fraction of exactly 1 maps to h.End without rounding.
func Fractions(h Interval, fractions ...float64) []float64 {
	out := make([]float64, len(fractions))
	for i, f := range fractions {
		if f == 1 {
			out[i] = h.End
			continue
		}
		out[i] = h.Start + f*h.Len()
	}
	return out
}

// EvenCheckpoints splits h into n equal-length growing horizons.
// The last checkpoint is exactly h.End. n < 1 is treated as 1.
func EvenCheckpoints(h Interval, n int) []float64 {
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := 0; i < n-1; i++ {
		out[i] = h.Start + h.Len()*float64(i+1)/float64(n)
	}
	out[n-1] = h.End
	return out
}

// validateCheckpoints checks that checkpoints are strictly increasing,
// lie in (h.Start, h.End] and end exactly at h.End.
func validateCheckpoints(h Interval, checkpoints []float64) error {
	if len(checkpoints) == 0 {
		return fmt.Errorf("%w: no checkpoints", ErrInvalidHorizonSequence)
	}
	prev := h.Start
	for i, c := range checkpoints {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: checkpoint %d is not finite", ErrInvalidHorizonSequence, i)
		}
		if c <= prev {
			return fmt.Errorf("%w: checkpoint %d = %g does not exceed %g", ErrInvalidHorizonSequence, i, c, prev)
		}
		prev = c
	}
	if last := checkpoints[len(checkpoints)-1]; last != h.End {
		return fmt.Errorf("%w: last checkpoint %g != horizon end %g", ErrInvalidHorizonSequence, last, h.End)
	}
	return nil
}
