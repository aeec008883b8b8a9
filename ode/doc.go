// Package ode provides a fixed-step Runge-Kutta horizon.Simulator and a
// few right-hand sides for it: the cubic spiral used to generate
// reference data, a parameterized linear system and a small MLP.
//
// It is a reference adapter for examples and tests, not a general
// purpose solver: there is no adaptive stepping or stiffness handling.
package ode
