package horizon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// FitterConfig configures a Fitter.
type FitterConfig struct {
	Simulator Simulator  // required
	Optimizer Optimizer  // required
	Observers []Observer // optional, called in order after each stage

	// Logger receives stage progress. The zero value falls back to the
	// logger carried by the context passed to Fit.
	Logger logr.Logger
}

// Fitter fits parameters over a curriculum of growing horizons, warm
// starting each stage from the previous stage's result.
type Fitter struct {
	sim       Simulator
	opt       Optimizer
	observers []Observer
	logger    logr.Logger
}

// NewFitter creates a Fitter from the given config.
func NewFitter(cfg FitterConfig) (*Fitter, error) {
	if cfg.Simulator == nil {
		return nil, fmt.Errorf("%w: nil simulator", ErrInvalidConfig)
	}
	if cfg.Optimizer == nil {
		return nil, fmt.Errorf("%w: nil optimizer", ErrInvalidConfig)
	}
	return &Fitter{
		sim:       cfg.Simulator,
		opt:       cfg.Optimizer,
		observers: append([]Observer(nil), cfg.Observers...),
		logger:    cfg.Logger,
	}, nil
}

func (f *Fitter) loggerFor(ctx context.Context) logr.Logger {
	if f.logger.GetSink() != nil {
		return f.logger
	}
	return logr.FromContextOrDiscard(ctx)
}

// Fit runs every stage of c in order against data, starting from initial.
// The curriculum is validated before any simulation or optimization.
//
// On a stage failure Fit returns the partial Result (completed stages and
// the failed one) together with a *StageError; later stages are not run.
// initial is never mutated.
func (f *Fitter) Fit(ctx context.Context, data Series, c Curriculum, initial Params) (*Result, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	stages, err := c.Plan(data)
	if err != nil {
		return nil, err
	}

	log := f.loggerFor(ctx).WithName("curriculum")
	log.Info("fit started", "stages", len(stages), "horizon", c.Horizon.String(), "samples", data.Len())

	res := &Result{Stages: make([]StageResult, len(stages))}
	for i, s := range stages {
		res.Stages[i] = StageResult{Stage: s, State: NotStarted}
	}

	current := initial.Clone()
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			res.Stages[i].State = Failed
			return res, &StageError{Stage: i, Horizon: stage.Horizon, Err: err}
		}

		sr, err := f.runStage(ctx, log, data, c, stage, current)
		res.Stages[i] = sr
		if err != nil {
			log.Error(err, "stage failed", "stage", i, "horizon", stage.Horizon.String())
			return res, &StageError{Stage: i, Horizon: stage.Horizon, Err: err}
		}

		current = sr.Params
		res.Params = sr.Params.Clone()
		res.Loss = sr.Loss
	}

	log.Info("fit completed", "loss", res.Loss)
	return res, nil
}

// RunStage runs a single stage in isolation. It lets a caller retry a
// failed stage with an adjusted optimizer config. The stage is checked
// against c and data before anything runs.
func (f *Fitter) RunStage(ctx context.Context, data Series, c Curriculum, stage FitStage, initial Params) (StageResult, error) {
	if err := initial.Validate(); err != nil {
		return StageResult{Stage: stage.clone(), State: Failed}, &StageError{Stage: stage.Index, Horizon: stage.Horizon, Err: err}
	}
	if err := c.checkStage(data, stage); err != nil {
		return StageResult{Stage: stage.clone(), State: Failed}, &StageError{Stage: stage.Index, Horizon: stage.Horizon, Err: err}
	}
	log := f.loggerFor(ctx).WithName("curriculum")
	sr, err := f.runStage(ctx, log, data, c, stage, initial)
	if err != nil {
		return sr, &StageError{Stage: stage.Index, Horizon: stage.Horizon, Err: err}
	}
	return sr, nil
}

func (f *Fitter) runStage(ctx context.Context, log logr.Logger, data Series, c Curriculum, stage FitStage, initial Params) (StageResult, error) {
	start := time.Now()
	sr := StageResult{Stage: stage.clone(), State: Running}

	obj := &stageObjective{
		sim:      f.sim,
		stage:    sr.Stage,
		observed: data.Restrict(stage.Horizon.End),
		loss:     c.loss(),
		weight:   c.weight(),
	}

	log = log.WithValues("stage", stage.Index)
	log.Info("stage started",
		"horizon", stage.Horizon.String(),
		"samples", len(stage.SamplePoints),
		"algorithm", algorithmOrDefault(stage.Optimizer.Algorithm).String())

	fail := func(err error) (StageResult, error) {
		sr.State = Failed
		sr.Params = nil
		sr.Elapsed = time.Since(start)
		return sr, err
	}

	out, err := f.opt.Optimize(logr.NewContext(ctx, log), obj, initial.Clone(), stage.Optimizer)
	if err != nil {
		return fail(classify(err))
	}
	sr.Iterations = out.Iterations
	if !out.Converged {
		return fail(fmt.Errorf("%w: %s did not converge after %d iterations",
			ErrOptimizationFailure, algorithmOrDefault(stage.Optimizer.Algorithm), out.Iterations))
	}
	if err := out.Params.Validate(); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrOptimizationFailure, err))
	}
	if len(out.Params) != len(initial) {
		return fail(fmt.Errorf("%w: optimizer returned %d parameters, want %d",
			ErrOptimizationFailure, len(out.Params), len(initial)))
	}

	pred, err := obj.predict(ctx, out.Params)
	if err != nil {
		return fail(err)
	}
	loss, err := obj.score(pred, obj.observed)
	if err != nil {
		return fail(err)
	}

	sr.State = Completed
	sr.Params = out.Params.Clone()
	sr.Loss = loss
	sr.Converged = true
	sr.Elapsed = time.Since(start)

	log.Info("stage completed", "loss", loss, "iterations", out.Iterations, "elapsed", sr.Elapsed)

	for _, o := range f.observers {
		notify(log, o, stage.Index, loss, pred.Clone())
	}
	return sr, nil
}

// notify calls o, logging instead of propagating a panic.
func notify(log logr.Logger, o Observer, stage int, loss float64, pred Series) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(fmt.Errorf("panic: %v", r), "observer failed", "stage", stage)
		}
	}()
	o.OnStageComplete(stage, loss, pred)
}

func algorithmOrDefault(a Algorithm) Algorithm {
	if a == 0 {
		return Adam
	}
	return a
}
