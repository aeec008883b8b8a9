package optimizer

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/floats"

	"github.com/sky-flux/horizon"
	"github.com/sky-flux/horizon/internal/logging"
)

// Defaults applied to zero-valued horizon.OptimizerConfig fields.
const (
	DefaultLearningRate  = 0.01
	DefaultMaxIterations = 300
)

// AdamConfig configures an AdamOptimizer.
// Zero values are replaced with sensible defaults.
type AdamConfig struct {
	// Patience is the number of consecutive loss increases tolerated before
	// stopping early when AllowNonmonotonicLoss is false. Default 5.
	Patience int `json:"patience" yaml:"patience"`
	// GradientStep is the central-difference step. Default 1e-5.
	GradientStep float64 `json:"gradient_step" yaml:"gradient_step"`
	// GradientTolerance > 0 stops once the gradient norm falls below it.
	GradientTolerance float64 `json:"gradient_tolerance" yaml:"gradient_tolerance"`
	// FunctionTolerance is the improvement of the best loss, relative to
	// 1+|best|, below which an iteration counts as no progress. Default 1e-10.
	FunctionTolerance float64 `json:"function_tolerance" yaml:"function_tolerance"`
	// Stall is the number of no-progress iterations after which the run
	// counts as converged when AllowNonmonotonicLoss is false. Default 20.
	Stall int `json:"stall" yaml:"stall"`
	// Workers bounds concurrent loss evaluations per gradient. Default GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
	// Bounds, when set, clamps parameters after every update.
	Bounds horizon.Bounds `json:"bounds" yaml:"bounds"`
}

// AdamOptimizer fits parameters with Adam and a cosine annealing learning
// rate, using numerical gradients. It implements horizon.Optimizer.
type AdamOptimizer struct {
	patience  int
	gradStep  float64
	tolerance float64
	ftol      float64
	stall     int
	workers   int
	bounds    horizon.Bounds
}

var _ horizon.Optimizer = (*AdamOptimizer)(nil)

// NewAdamOptimizer creates an AdamOptimizer with the given config.
// Zero-valued fields receive defaults: Patience=5, GradientStep=1e-5,
// FunctionTolerance=1e-10, Stall=20, Workers=GOMAXPROCS.
func NewAdamOptimizer(cfg AdamConfig) *AdamOptimizer {
	o := &AdamOptimizer{
		patience:  cfg.Patience,
		gradStep:  cfg.GradientStep,
		tolerance: cfg.GradientTolerance,
		ftol:      cfg.FunctionTolerance,
		stall:     cfg.Stall,
		workers:   cfg.Workers,
		bounds:    cfg.Bounds,
	}
	if o.patience == 0 {
		o.patience = 5
	}
	if o.gradStep == 0 {
		o.gradStep = gradEps
	}
	if o.ftol == 0 {
		o.ftol = 1e-10
	}
	if o.stall == 0 {
		o.stall = 20
	}
	if o.workers == 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Optimize runs up to MaxIterations Adam steps from initial and returns
// the best parameters seen.
//
// The run is converged when the gradient norm drops below
// GradientTolerance or, unless AllowNonmonotonicLoss is set, when the best
// loss stops improving for Stall iterations. Stopping after Patience
// consecutive loss increases is not convergence. Exhausting MaxIterations
// counts as converged only with AcceptIterationLimit.
//
// With BatchSize > 0 and a horizon.BatchObjective, each gradient is taken
// on a mini-batch; progress is always judged on the full loss. Non-finite
// losses or gradients are reported as horizon.ErrOptimizationFailure. The
// context can be used to cancel long-running optimization.
func (o *AdamOptimizer) Optimize(ctx context.Context, obj horizon.Objective, initial horizon.Params, cfg horizon.OptimizerConfig) (horizon.OptimizeResult, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("adam")

	lr := cfg.LearningRate
	if lr == 0 {
		lr = DefaultLearningRate
	}
	iters := cfg.MaxIterations
	if iters == 0 {
		iters = DefaultMaxIterations
	}

	params := o.bounds.Clamp(initial)
	loss, err := obj.Loss(ctx, params)
	if err != nil {
		return horizon.OptimizeResult{}, err
	}
	if !isFinite(loss) {
		return horizon.OptimizeResult{}, fmt.Errorf("%w: initial loss %v", horizon.ErrOptimizationFailure, loss)
	}

	best := params.Clone()
	bestLoss := loss

	adam := NewAdam(len(params), lr)
	ca := NewCosineAnnealing(lr, iters)

	var batches *batcher
	bo, batched := obj.(horizon.BatchObjective)
	if batched && cfg.BatchSize > 0 && cfg.BatchSize < bo.Samples() {
		batches = newBatcher(bo.Samples(), cfg.BatchSize, cfg.Seed)
	}

	prev := loss
	increases := 0
	stalled := 0
	converged := false
	stopped := false
	iter := 0

	for iter < iters {
		if err := ctx.Err(); err != nil {
			return horizon.OptimizeResult{Params: best, Loss: bestLoss, Iterations: iter}, err
		}

		var target horizon.Objective = obj
		if batches != nil {
			target = batchObjective{obj: bo, idx: batches.next()}
		}

		grad, err := Gradient(ctx, target, params, o.gradStep, o.workers)
		if err != nil {
			return horizon.OptimizeResult{Params: best, Loss: bestLoss, Iterations: iter}, err
		}
		if !floatsFinite(grad) {
			return horizon.OptimizeResult{Params: best, Loss: bestLoss, Iterations: iter},
				fmt.Errorf("%w: non-finite gradient at iteration %d", horizon.ErrOptimizationFailure, iter)
		}
		if o.tolerance > 0 && floats.Norm(grad, 2) < o.tolerance {
			converged = true
			break
		}

		adam.SetLR(ca.LR())
		params = o.bounds.Clamp(adam.Update(params, grad))
		ca.Step()
		iter++

		loss, err = obj.Loss(ctx, params)
		if err != nil {
			return horizon.OptimizeResult{Params: best, Loss: bestLoss, Iterations: iter}, err
		}
		if !isFinite(loss) {
			return horizon.OptimizeResult{Params: best, Loss: bestLoss, Iterations: iter},
				fmt.Errorf("%w: non-finite loss at iteration %d", horizon.ErrOptimizationFailure, iter)
		}

		if loss < bestLoss-o.ftol*(1+math.Abs(bestLoss)) {
			stalled = 0
		} else {
			stalled++
		}
		if loss < bestLoss {
			bestLoss = loss
			best = params.Clone()
		}
		if loss > prev {
			increases++
		} else {
			increases = 0
		}
		prev = loss

		log.V(logging.TRACE).Info("iteration", "iter", iter, "loss", loss, "best", bestLoss, "lr", ca.LR())

		if cfg.AllowNonmonotonicLoss {
			continue
		}
		if increases >= o.patience {
			log.V(logging.DEBUG).Info("stopping on loss increase", "iter", iter, "increases", increases)
			stopped = true
			break
		}
		if stalled >= o.stall {
			log.V(logging.DEBUG).Info("loss stalled", "iter", iter, "best", bestLoss)
			converged = true
			break
		}
	}
	if !converged && !stopped && iter >= iters {
		converged = cfg.AcceptIterationLimit
	}

	return horizon.OptimizeResult{
		Params:     best,
		Loss:       bestLoss,
		Iterations: iter,
		Converged:  converged,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatsFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
