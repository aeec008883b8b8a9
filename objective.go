package horizon

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// stageObjective simulates over a stage horizon and scores the prediction
// against the observations restricted to that horizon.
type stageObjective struct {
	sim      Simulator
	stage    FitStage
	observed Series
	loss     Loss
	weight   WeightFunc
}

var _ BatchObjective = (*stageObjective)(nil)

// predict runs the simulator on a private copy of p.
func (o *stageObjective) predict(ctx context.Context, p Params) (Series, error) {
	pred, err := o.sim.Simulate(ctx, p.Clone(), o.stage.Horizon, o.stage.SamplePoints)
	if err != nil {
		if isContextErr(err) || errors.Is(err, ErrSimulationFailure) {
			return Series{}, err
		}
		return Series{}, fmt.Errorf("%w: %w", ErrSimulationFailure, err)
	}
	if pred.Len() != len(o.stage.SamplePoints) || len(pred.Values) != pred.Len() {
		return Series{}, fmt.Errorf("%w: %d predicted samples, want %d",
			ErrSimulationFailure, pred.Len(), len(o.stage.SamplePoints))
	}
	for i, v := range pred.Values {
		if !finite(v) {
			return Series{}, fmt.Errorf("%w: non-finite state at t=%g", ErrSimulationFailure, pred.Times[i])
		}
	}
	return pred, nil
}

func (o *stageObjective) score(predicted, observed Series) (float64, error) {
	l := o.loss.Evaluate(predicted, observed, o.weight)
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return 0, fmt.Errorf("%w: non-finite %s loss", ErrSimulationFailure, o.loss.Name())
	}
	return l, nil
}

// Loss implements Objective.
func (o *stageObjective) Loss(ctx context.Context, p Params) (float64, error) {
	pred, err := o.predict(ctx, p)
	if err != nil {
		return 0, err
	}
	return o.score(pred, o.observed)
}

// Samples implements BatchObjective.
func (o *stageObjective) Samples() int {
	return o.observed.Len()
}

// BatchLoss implements BatchObjective. The whole horizon is still
// simulated; only the scored samples are subset.
func (o *stageObjective) BatchLoss(ctx context.Context, p Params, idx []int) (float64, error) {
	for _, i := range idx {
		if i < 0 || i >= o.observed.Len() {
			return 0, fmt.Errorf("%w: batch index %d out of range", ErrInvalidConfig, i)
		}
	}
	pred, err := o.predict(ctx, p)
	if err != nil {
		return 0, err
	}
	return o.score(pred.Pick(idx), o.observed.Pick(idx))
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
