// Package horizon fits neural ODE parameters with a curriculum of growing
// time horizons.
//
// Fitting a trajectory over the full time span at once is sensitive to the
// starting parameters: early errors accumulate and the optimizer can stall
// in a poor local minimum. A Fitter instead fits a short horizon first and
// warm-starts each longer horizon from the previous result, ending with
// the full horizon.
//
// The model and the optimizer are supplied by the caller through the
// Simulator and Optimizer interfaces. The ode subpackage provides a
// reference Simulator and the optimizer subpackage provides Adam and
// gonum-backed Optimizers.
//
// Basic usage:
//
//	f, err := horizon.NewFitter(horizon.FitterConfig{
//	    Simulator: sim,
//	    Optimizer: optimizer.NewDispatcher(optimizer.DispatcherConfig{}),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	full := horizon.Interval{Start: 0, End: 5}
//	res, err := f.Fit(ctx, data, horizon.Curriculum{
//	    Horizon:     full,
//	    Checkpoints: []float64{1.5, 3.0, 5.0},
//	    Stages:      []horizon.OptimizerConfig{{Algorithm: horizon.Adam, LearningRate: 0.01}},
//	}, initial)
package horizon
