package horizon

import "context"

// Simulator runs the dynamical model forward. Implementations must be
// deterministic: identical inputs yield identical series.
type Simulator interface {
	// Simulate returns the predicted state at each sample point in h.
	Simulate(ctx context.Context, p Params, h Interval, samples []float64) (Series, error)
}

// SimulatorFunc adapts a function to the Simulator interface.
type SimulatorFunc func(ctx context.Context, p Params, h Interval, samples []float64) (Series, error)

// Simulate calls f.
func (f SimulatorFunc) Simulate(ctx context.Context, p Params, h Interval, samples []float64) (Series, error) {
	return f(ctx, p, h, samples)
}

// Objective is a scalar loss over parameters.
type Objective interface {
	Loss(ctx context.Context, p Params) (float64, error)
}

// BatchObjective is an Objective that can be evaluated on a subset of its
// samples, for mini-batch optimization.
type BatchObjective interface {
	Objective
	Samples() int
	BatchLoss(ctx context.Context, p Params, idx []int) (float64, error)
}

// ObjectiveFunc adapts a function to the Objective interface.
type ObjectiveFunc func(ctx context.Context, p Params) (float64, error)

// Loss calls f.
func (f ObjectiveFunc) Loss(ctx context.Context, p Params) (float64, error) {
	return f(ctx, p)
}

// OptimizeResult is what an Optimizer hands back for one stage.
type OptimizeResult struct {
	Params     Params
	Loss       float64
	Iterations int
	Converged  bool
}

// Optimizer refines a parameter vector against an objective. It must not
// mutate initial.
//
// Converged reports whether the run met the backend's convergence test,
// or ran out of iterations with cfg.AcceptIterationLimit set. The Fitter
// fails a stage whose result is not converged with ErrOptimizationFailure,
// so backends may return Converged=false with a nil error.
type Optimizer interface {
	Optimize(ctx context.Context, obj Objective, initial Params, cfg OptimizerConfig) (OptimizeResult, error)
}

// OptimizerFunc adapts a function to the Optimizer interface.
type OptimizerFunc func(ctx context.Context, obj Objective, initial Params, cfg OptimizerConfig) (OptimizeResult, error)

// Optimize calls f.
func (f OptimizerFunc) Optimize(ctx context.Context, obj Objective, initial Params, cfg OptimizerConfig) (OptimizeResult, error) {
	return f(ctx, obj, initial, cfg)
}

// Observer is notified after each completed stage. It receives copies and
// cannot influence the fit; a panic in OnStageComplete is recovered and
// logged.
type Observer interface {
	OnStageComplete(stage int, loss float64, predicted Series)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(stage int, loss float64, predicted Series)

// OnStageComplete calls f.
func (f ObserverFunc) OnStageComplete(stage int, loss float64, predicted Series) {
	f(stage, loss, predicted)
}
