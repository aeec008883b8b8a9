package horizon

import (
	"fmt"
	"math"
)

// Params is the parameter vector being fitted. A stage never mutates the
// vector it was given; it always returns a fresh one.
type Params []float64

// Clone returns a copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	return append(Params(nil), p...)
}

// Validate checks that p is non-empty and every entry is finite.
func (p Params) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty parameter vector", ErrInvalidParameters)
	}
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: p[%d] = %f", ErrInvalidParameters, i, v)
		}
	}
	return nil
}

// Bounds constrains each parameter to [Lower[i], Upper[i]].
type Bounds struct {
	Lower Params `json:"lower" yaml:"lower"`
	Upper Params `json:"upper" yaml:"upper"`
}

// Validate checks that p lies within b. A zero Bounds accepts anything.
func (b Bounds) Validate(p Params) error {
	if b.Lower == nil && b.Upper == nil {
		return nil
	}
	if len(b.Lower) != len(p) || len(b.Upper) != len(p) {
		return fmt.Errorf("%w: bounds have length %d/%d, parameters %d",
			ErrInvalidParameters, len(b.Lower), len(b.Upper), len(p))
	}
	for i := range p {
		if p[i] < b.Lower[i] || p[i] > b.Upper[i] {
			return fmt.Errorf("%w: p[%d] = %f, bounds [%f, %f]",
				ErrInvalidParameters, i, p[i], b.Lower[i], b.Upper[i])
		}
	}
	return nil
}

// Clamp returns a copy of p constrained to b. A zero Bounds returns a plain copy.
func (b Bounds) Clamp(p Params) Params {
	out := p.Clone()
	if b.Lower == nil && b.Upper == nil {
		return out
	}
	for i := range out {
		if i < len(b.Lower) && out[i] < b.Lower[i] {
			out[i] = b.Lower[i]
		}
		if i < len(b.Upper) && out[i] > b.Upper[i] {
			out[i] = b.Upper[i]
		}
	}
	return out
}
