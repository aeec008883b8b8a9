package optimizer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/sky-flux/horizon"
	"github.com/sky-flux/horizon/internal/logging"
)

// GonumConfig configures a GonumOptimizer.
// Zero values are replaced with sensible defaults.
type GonumConfig struct {
	// GradientStep is the central-difference step. Zero lets fd choose.
	GradientStep float64 `json:"gradient_step" yaml:"gradient_step"`
	// ConcurrentGradient evaluates gradient coordinates concurrently.
	ConcurrentGradient bool `json:"concurrent_gradient" yaml:"concurrent_gradient"`
	// FunctionTolerance is the absolute and relative improvement below
	// which an iteration counts as no progress. Default 1e-10.
	FunctionTolerance float64 `json:"function_tolerance" yaml:"function_tolerance"`
	// Patience is the number of no-progress iterations before stopping
	// when AllowNonmonotonicLoss is false. Default 20.
	Patience int `json:"patience" yaml:"patience"`
	// GradientThreshold stops gradient-based methods once the gradient
	// infinity norm falls below it. Default 1e-8.
	GradientThreshold float64 `json:"gradient_threshold" yaml:"gradient_threshold"`
}

// GonumOptimizer runs gonum/optimize methods (BFGS, LBFGS, NelderMead,
// GradientDescent). It implements horizon.Optimizer.
type GonumOptimizer struct {
	gradStep   float64
	concurrent bool
	tolerance  float64
	patience   int
	gradThresh float64
}

var _ horizon.Optimizer = (*GonumOptimizer)(nil)

// NewGonumOptimizer creates a GonumOptimizer with the given config.
func NewGonumOptimizer(cfg GonumConfig) *GonumOptimizer {
	o := &GonumOptimizer{
		gradStep:   cfg.GradientStep,
		concurrent: cfg.ConcurrentGradient,
		tolerance:  cfg.FunctionTolerance,
		patience:   cfg.Patience,
		gradThresh: cfg.GradientThreshold,
	}
	if o.tolerance == 0 {
		o.tolerance = 1e-10
	}
	if o.patience == 0 {
		o.patience = 20
	}
	if o.gradThresh == 0 {
		o.gradThresh = 1e-8
	}
	return o
}

func (o *GonumOptimizer) method(cfg horizon.OptimizerConfig) (optimize.Method, error) {
	lr := cfg.LearningRate
	if lr == 0 {
		lr = DefaultLearningRate
	}
	switch cfg.Algorithm {
	case horizon.BFGS:
		return &optimize.BFGS{}, nil
	case horizon.LBFGS:
		return &optimize.LBFGS{}, nil
	case horizon.NelderMead:
		return &optimize.NelderMead{}, nil
	case horizon.GradientDescent:
		return &optimize.GradientDescent{StepSizer: &optimize.ConstantStepSize{Size: lr}}, nil
	}
	return nil, fmt.Errorf("%w: gonum backend does not support %s", horizon.ErrInvalidConfig, cfg.Algorithm)
}

// Optimize minimizes obj from initial with the method named by cfg.Algorithm.
// Hitting an iteration or evaluation limit is not an error; the result is
// converged then only with cfg.AcceptIterationLimit. Any other abnormal
// termination is reported as horizon.ErrOptimizationFailure.
func (o *GonumOptimizer) Optimize(ctx context.Context, obj horizon.Objective, initial horizon.Params, cfg horizon.OptimizerConfig) (horizon.OptimizeResult, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("gonum")

	method, err := o.method(cfg)
	if err != nil {
		return horizon.OptimizeResult{}, err
	}
	iters := cfg.MaxIterations
	if iters == 0 {
		iters = DefaultMaxIterations
	}

	// The first evaluation error aborts the run through Problem.Status.
	var (
		mu      sync.Mutex
		evalErr error
	)
	f := func(x []float64) float64 {
		l, err := obj.Loss(ctx, horizon.Params(x))
		if err != nil {
			mu.Lock()
			if evalErr == nil {
				evalErr = err
			}
			mu.Unlock()
			return math.Inf(1)
		}
		return l
	}
	firstErr := func() error {
		mu.Lock()
		defer mu.Unlock()
		return evalErr
	}

	settings := &fd.Settings{Formula: fd.Central, Step: o.gradStep, Concurrent: o.concurrent}
	problem := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, settings)
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			if err := firstErr(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	var conv optimize.Converger = optimize.NeverTerminate{}
	if !cfg.AllowNonmonotonicLoss {
		conv = &optimize.FunctionConverge{
			Absolute:   o.tolerance,
			Relative:   o.tolerance,
			Iterations: o.patience,
		}
	}

	res, err := optimize.Minimize(problem, initial.Clone(), &optimize.Settings{
		MajorIterations:   iters,
		GradientThreshold: o.gradThresh,
		Converger:         conv,
	}, method)

	switch {
	case firstErr() != nil:
		return horizon.OptimizeResult{}, firstErr()
	case ctx.Err() != nil:
		return horizon.OptimizeResult{}, ctx.Err()
	case res == nil:
		return horizon.OptimizeResult{}, fmt.Errorf("%w: %s: %w", horizon.ErrOptimizationFailure, cfg.Algorithm, err)
	case err != nil && !limitStatus(res.Status):
		return horizon.OptimizeResult{}, fmt.Errorf("%w: %s terminated with %v: %w",
			horizon.ErrOptimizationFailure, cfg.Algorithm, res.Status, err)
	case !isFinite(res.F):
		return horizon.OptimizeResult{}, fmt.Errorf("%w: %s reached non-finite loss", horizon.ErrOptimizationFailure, cfg.Algorithm)
	}

	log.V(logging.DEBUG).Info("minimize finished",
		"algorithm", cfg.Algorithm.String(),
		"status", res.Status.String(),
		"iterations", res.Stats.MajorIterations,
		"evaluations", res.Stats.FuncEvaluations,
		"loss", res.F)

	return horizon.OptimizeResult{
		Params:     horizon.Params(append([]float64(nil), res.X...)),
		Loss:       res.F,
		Iterations: res.Stats.MajorIterations,
		Converged:  convergedStatus(res.Status) || (cfg.AcceptIterationLimit && limitStatus(res.Status)),
	}, nil
}

func limitStatus(s optimize.Status) bool {
	switch s {
	case optimize.IterationLimit, optimize.RuntimeLimit,
		optimize.FunctionEvaluationLimit, optimize.GradientEvaluationLimit,
		optimize.HessianEvaluationLimit:
		return true
	}
	return false
}

func convergedStatus(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}
