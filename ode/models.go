package ode

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/sky-flux/horizon"
)

// SpiralA is the dynamics matrix of the damped cubic spiral
// u' = (u^3) A, commonly used to demonstrate neural ODE fitting.
var SpiralA = mat.NewDense(2, 2, []float64{
	-0.1, 2.0,
	-2.0, -0.1,
})

// SpiralInitial is the usual starting state for the cubic spiral.
var SpiralInitial = []float64{2, 0}

// CubicSpiral returns the system u' = (u^3) A, where u^3 is element-wise
// and u is treated as a row vector. The parameters are ignored; it
// generates ground-truth trajectories.
func CubicSpiral(a mat.Matrix) System {
	r, c := a.Dims()
	return SystemFunc(func(_ float64, y []float64, _ horizon.Params, dy []float64) error {
		if len(y) != r || len(dy) != c {
			return fmt.Errorf("cubic spiral: state has dimension %d, want %d", len(y), r)
		}
		cubed := make([]float64, len(y))
		for i, v := range y {
			cubed[i] = v * v * v
		}
		// (u^3) A as a row vector is A^T (u^3).
		out := mat.NewVecDense(c, dy)
		out.MulVec(a.T(), mat.NewVecDense(r, cubed))
		return nil
	})
}

// Linear is the system y' = M y, with M read row-major from the
// parameters. It has Dim*Dim parameters.
type Linear struct {
	Dim int
}

// NumParams returns Dim*Dim.
func (l Linear) NumParams() int {
	return l.Dim * l.Dim
}

// Derivative implements System.
func (l Linear) Derivative(_ float64, y []float64, p horizon.Params, dy []float64) error {
	if len(p) != l.NumParams() {
		return fmt.Errorf("%w: linear system wants %d parameters, got %d", horizon.ErrInvalidParameters, l.NumParams(), len(p))
	}
	if l.Dim < 1 || len(y) != l.Dim {
		return fmt.Errorf("linear system: state has dimension %d, want %d", len(y), l.Dim)
	}
	m := mat.NewDense(l.Dim, l.Dim, p)
	out := mat.NewVecDense(l.Dim, dy)
	out.MulVec(m, mat.NewVecDense(l.Dim, y))
	return nil
}

// MLP is a neural right-hand side with one tanh hidden layer:
//
//	y' = W2 · tanh(W1 · y^3 + b1) + b2
//
// Parameters are laid out as W1 (Hidden×Dim, row-major), b1, W2
// (Dim×Hidden, row-major), b2.
type MLP struct {
	Dim    int
	Hidden int
}

// NumParams returns the length of the parameter vector.
func (m MLP) NumParams() int {
	return m.Hidden*m.Dim + m.Hidden + m.Dim*m.Hidden + m.Dim
}

// InitParams returns small random weights and zero biases drawn
// deterministically from seed.
func (m MLP) InitParams(seed int64) horizon.Params {
	rng := rand.New(rand.NewSource(seed))
	p := make(horizon.Params, m.NumParams())

	w1, _, w2, _ := m.split(p)
	s1 := 1 / math.Sqrt(float64(m.Dim))
	for i := range w1 {
		w1[i] = rng.NormFloat64() * s1
	}
	s2 := 0.1 / math.Sqrt(float64(m.Hidden))
	for i := range w2 {
		w2[i] = rng.NormFloat64() * s2
	}
	return p
}

// split returns views of W1, b1, W2, b2 inside p.
func (m MLP) split(p []float64) (w1, b1, w2, b2 []float64) {
	n1 := m.Hidden * m.Dim
	n2 := n1 + m.Hidden
	n3 := n2 + m.Dim*m.Hidden
	return p[:n1:n1], p[n1:n2:n2], p[n2:n3:n3], p[n3:]
}

// Derivative implements System.
func (m MLP) Derivative(_ float64, y []float64, p horizon.Params, dy []float64) error {
	if len(p) != m.NumParams() {
		return fmt.Errorf("%w: mlp wants %d parameters, got %d", horizon.ErrInvalidParameters, m.NumParams(), len(p))
	}
	if m.Dim < 1 || m.Hidden < 1 {
		return fmt.Errorf("%w: mlp needs positive dimensions, got %dx%d", horizon.ErrInvalidConfig, m.Dim, m.Hidden)
	}
	if len(y) != m.Dim {
		return fmt.Errorf("mlp: state has dimension %d, want %d", len(y), m.Dim)
	}
	w1, b1, w2, b2 := m.split(p)

	cubed := make([]float64, m.Dim)
	for i, v := range y {
		cubed[i] = v * v * v
	}

	hidden := mat.NewVecDense(m.Hidden, nil)
	hidden.MulVec(mat.NewDense(m.Hidden, m.Dim, w1), mat.NewVecDense(m.Dim, cubed))
	hidden.AddVec(hidden, mat.NewVecDense(m.Hidden, b1))
	for i := 0; i < m.Hidden; i++ {
		hidden.SetVec(i, math.Tanh(hidden.AtVec(i)))
	}

	out := mat.NewVecDense(m.Dim, dy)
	out.MulVec(mat.NewDense(m.Dim, m.Hidden, w2), hidden)
	out.AddVec(out, mat.NewVecDense(m.Dim, b2))
	return nil
}
