package ode

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sky-flux/horizon"
)

// DefaultMaxStep is the integration step used when Simulator.MaxStep is zero.
const DefaultMaxStep = 0.01

// System is the right-hand side of y' = f(t, y; p).
// Derivative writes f(t, y; p) into dy, which has the length of y.
type System interface {
	Derivative(t float64, y []float64, p horizon.Params, dy []float64) error
}

// SystemFunc adapts a function to the System interface.
type SystemFunc func(t float64, y []float64, p horizon.Params, dy []float64) error

// Derivative calls f.
func (f SystemFunc) Derivative(t float64, y []float64, p horizon.Params, dy []float64) error {
	return f(t, y, p, dy)
}

// Simulator integrates a System from Initial at the start of the requested
// horizon with a fixed-step Runge-Kutta method. It implements
// horizon.Simulator.
//
// Step sizes depend only on the distance between consecutive sample points
// and MaxStep, so identical inputs always yield identical output.
type Simulator struct {
	System  System
	Initial []float64
	Method  *Tableau // nil → RK4
	MaxStep float64  // zero → DefaultMaxStep
}

var _ horizon.Simulator = (*Simulator)(nil)

// Simulate returns the state at each sample point. Samples must be
// non-decreasing and inside h.
func (s *Simulator) Simulate(ctx context.Context, p horizon.Params, h horizon.Interval, samples []float64) (horizon.Series, error) {
	if s.System == nil || len(s.Initial) == 0 {
		return horizon.Series{}, fmt.Errorf("%w: simulator has no system or initial state", horizon.ErrInvalidConfig)
	}
	if err := h.Validate(); err != nil {
		return horizon.Series{}, err
	}
	for i, t := range samples {
		if !h.Contains(t) {
			return horizon.Series{}, fmt.Errorf("%w: sample t=%g outside %s", horizon.ErrSimulationFailure, t, h)
		}
		if i > 0 && t < samples[i-1] {
			return horizon.Series{}, fmt.Errorf("%w: samples decrease at %d", horizon.ErrSimulationFailure, i)
		}
	}

	method := s.Method
	if method == nil {
		method = RK4()
	}
	maxStep := s.MaxStep
	if maxStep <= 0 {
		maxStep = DefaultMaxStep
	}

	in := newIntegrator(method, s.System, len(s.Initial))
	y := append([]float64(nil), s.Initial...)
	t := h.Start

	out := horizon.Series{
		Times:  append([]float64(nil), samples...),
		Values: make([][]float64, len(samples)),
	}
	for i, target := range samples {
		if err := ctx.Err(); err != nil {
			return horizon.Series{}, err
		}
		if gap := target - t; gap > 0 {
			n := int(math.Ceil(gap / maxStep))
			dt := gap / float64(n)
			for k := 0; k < n; k++ {
				if err := in.step(t, y, p, dt); err != nil {
					return horizon.Series{}, fmt.Errorf("%w: t=%g: %w", horizon.ErrSimulationFailure, t, err)
				}
				t += dt
			}
			t = target
		}
		for _, v := range y {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return horizon.Series{}, fmt.Errorf("%w: state diverged at t=%g", horizon.ErrSimulationFailure, target)
			}
		}
		out.Values[i] = append([]float64(nil), y...)
	}
	return out, nil
}

// integrator holds the stage buffers for one Simulate call.
type integrator struct {
	method *Tableau
	system System
	k      [][]float64
	tmp    []float64
}

func newIntegrator(method *Tableau, system System, dim int) *integrator {
	k := make([][]float64, method.Stages())
	for i := range k {
		k[i] = make([]float64, dim)
	}
	return &integrator{method: method, system: system, k: k, tmp: make([]float64, dim)}
}

// step advances y in place by dt.
func (in *integrator) step(t float64, y []float64, p horizon.Params, dt float64) error {
	m := in.method
	for s := range in.k {
		copy(in.tmp, y)
		for j, a := range m.A[s] {
			if a != 0 {
				floats.AddScaled(in.tmp, dt*a, in.k[j])
			}
		}
		if err := in.system.Derivative(t+m.C[s]*dt, in.tmp, p, in.k[s]); err != nil {
			return err
		}
	}
	for s, b := range m.B {
		if b != 0 {
			floats.AddScaled(y, dt*b, in.k[s])
		}
	}
	return nil
}
