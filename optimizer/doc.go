// Package optimizer provides horizon.Optimizer backends.
//
//   - [AdamOptimizer] runs [Adam] with a [CosineAnnealing] learning rate
//     schedule on numerical central-difference gradients. It supports
//     mini-batches through horizon.BatchObjective. Unless the stage allows
//     non-monotonic loss it converges once the loss stalls and gives up
//     after repeated loss increases.
//
//   - [GonumOptimizer] delegates to gonum/optimize for BFGS, L-BFGS,
//     Nelder-Mead and plain gradient descent.
//
//   - [Dispatcher] picks a backend per stage from
//     horizon.OptimizerConfig.Algorithm, so one curriculum can mix methods.
//
// # Usage
//
//	opt := optimizer.NewDispatcher(optimizer.DispatcherConfig{})
//	f, err := horizon.NewFitter(horizon.FitterConfig{Simulator: sim, Optimizer: opt})
//
// Hitting MaxIterations is not an error: the best parameters seen are
// returned with Converged set to false, or true when the stage sets
// AcceptIterationLimit. The horizon.Fitter fails a stage that did not
// converge.
package optimizer
