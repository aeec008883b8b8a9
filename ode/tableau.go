package ode

import (
	"fmt"
	"strings"

	"github.com/sky-flux/horizon"
)

// Tableau is the Butcher tableau of an explicit Runge-Kutta method.
// Steps are fixed; no error estimate is kept.
type Tableau struct {
	Name  string
	Order int
	C     []float64
	A     [][]float64
	B     []float64
}

// Stages returns the number of right-hand side evaluations per step.
func (t *Tableau) Stages() int {
	return len(t.B)
}

// RK4 returns the classic 4th order Runge-Kutta method.
func RK4() *Tableau {
	return &Tableau{
		Name:  "rk4",
		Order: 4,
		C:     []float64{0, 0.5, 0.5, 1},
		A: [][]float64{
			{},
			{0.5},
			{0, 0.5},
			{0, 0, 1},
		},
		B: []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0},
	}
}

// Euler returns the forward Euler method.
func Euler() *Tableau {
	return &Tableau{
		Name:  "euler",
		Order: 1,
		C:     []float64{0},
		A:     [][]float64{{}},
		B:     []float64{1},
	}
}

// Heun returns Heun's method (improved Euler).
func Heun() *Tableau {
	return &Tableau{
		Name:  "heun",
		Order: 2,
		C:     []float64{0, 1},
		A:     [][]float64{{}, {1}},
		B:     []float64{0.5, 0.5},
	}
}

// Midpoint returns the explicit midpoint method.
func Midpoint() *Tableau {
	return &Tableau{
		Name:  "midpoint",
		Order: 2,
		C:     []float64{0, 0.5},
		A:     [][]float64{{}, {0.5}},
		B:     []float64{0, 1},
	}
}

// BS32 returns the third-order Bogacki-Shampine weights, used here without
// the embedded estimator.
func BS32() *Tableau {
	return &Tableau{
		Name:  "bs32",
		Order: 3,
		C:     []float64{0, 0.5, 0.75, 1},
		A: [][]float64{
			{},
			{0.5},
			{0, 0.75},
			{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0},
		},
		B: []float64{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0, 0},
	}
}

// MethodByName returns the tableau registered under name (case-insensitive).
// An empty name selects RK4.
func MethodByName(name string) (*Tableau, error) {
	switch strings.ToLower(name) {
	case "", "rk4":
		return RK4(), nil
	case "euler":
		return Euler(), nil
	case "heun":
		return Heun(), nil
	case "midpoint":
		return Midpoint(), nil
	case "bs32":
		return BS32(), nil
	}
	return nil, fmt.Errorf("%w: unknown integration method %q", horizon.ErrInvalidConfig, name)
}
