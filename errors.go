package horizon

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the horizon package.
// Use errors.Is to check: errors.Is(err, horizon.ErrOptimizationFailure)
//
// Within the package sentinels are wrapped with fmt.Errorf("%w: ...");
// errors from outside the package get context with errors.Wrap.
var (
	ErrInvalidHorizonSequence = errors.New("horizon: invalid horizon sequence")
	ErrOptimizationFailure    = errors.New("horizon: optimization failed")
	ErrSimulationFailure      = errors.New("horizon: simulation failed")
	ErrInvalidSeries          = errors.New("horizon: invalid series")
	ErrInvalidParameters      = errors.New("horizon: invalid parameters")
	ErrInvalidConfig          = errors.New("horizon: invalid config")
)

// StageError reports the failure of a single curriculum stage.
// Err wraps one of the sentinel errors or a context error.
type StageError struct {
	Stage   int
	Horizon Interval
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("horizon: stage %d %s: %v", e.Stage, e.Horizon, e.Err)
}

// Unwrap returns the underlying stage failure.
func (e *StageError) Unwrap() error {
	return e.Err
}

// classify maps an error returned by an optimizer onto the package taxonomy.
// Context errors and already-classified errors pass through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSimulationFailure),
		errors.Is(err, ErrOptimizationFailure),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrInvalidParameters):
		return err
	case isContextErr(err):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrOptimizationFailure, err)
	}
}
