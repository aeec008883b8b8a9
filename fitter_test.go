package horizon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sky-flux/horizon/internal/logging"
)

// scaledDecay predicts p[0]*exp(-t) and records every call.
type scaledDecay struct {
	mu       sync.Mutex
	horizons []Interval
	samples  []int
	fail     func(h Interval) error
}

func (s *scaledDecay) Simulate(ctx context.Context, p Params, h Interval, samples []float64) (Series, error) {
	s.mu.Lock()
	s.horizons = append(s.horizons, h)
	s.samples = append(s.samples, len(samples))
	s.mu.Unlock()

	if s.fail != nil {
		if err := s.fail(h); err != nil {
			return Series{}, err
		}
	}
	out := Series{Times: append([]float64(nil), samples...), Values: make([][]float64, len(samples))}
	for i, t := range samples {
		out.Values[i] = []float64{p[0] * math.Exp(-t)}
	}
	return out, nil
}

// stepper is an Optimizer that evaluates the objective once and returns
// initial[0]+1, recording what it was given.
type stepper struct {
	initials []Params
	configs  []OptimizerConfig
	fail     func(call int) error
}

func (s *stepper) Optimize(ctx context.Context, obj Objective, initial Params, cfg OptimizerConfig) (OptimizeResult, error) {
	call := len(s.initials)
	s.initials = append(s.initials, initial.Clone())
	s.configs = append(s.configs, cfg)

	if s.fail != nil {
		if err := s.fail(call); err != nil {
			return OptimizeResult{}, err
		}
	}
	loss, err := obj.Loss(ctx, initial)
	if err != nil {
		return OptimizeResult{}, err
	}
	// Returning a mutated input must not leak back to the caller.
	initial[0] = math.NaN()
	return OptimizeResult{Params: Params{float64(call + 1)}, Loss: loss, Iterations: 1, Converged: true}, nil
}

func threeStage() Curriculum {
	return Curriculum{
		Horizon:     Interval{0, 5},
		Checkpoints: []float64{1.5, 3.0, 5.0},
		Stages:      []OptimizerConfig{{Algorithm: Adam, LearningRate: 0.05}},
	}
}

func newTestFitter(t *testing.T, sim Simulator, opt Optimizer, obs ...Observer) *Fitter {
	t.Helper()
	f, err := NewFitter(FitterConfig{Simulator: sim, Optimizer: opt, Observers: obs, Logger: logging.NewTestLogger()})
	require.NoError(t, err)
	return f
}

func TestFitThreeStages(t *testing.T) {
	sim := &scaledDecay{}
	opt := &stepper{}
	f := newTestFitter(t, sim, opt)

	data := testSeries(30, 5)
	initial := Params{0}

	res, err := f.Fit(context.Background(), data, threeStage(), initial)
	require.NoError(t, err)

	assert.Equal(t, Params{0}, initial, "initial mutated")
	require.Len(t, res.Stages, 3)
	assert.Equal(t, 3, res.Completed())

	// Warm start: each stage begins where the previous one ended.
	if diff := cmp.Diff([]Params{{0}, {1}, {2}}, opt.initials); diff != "" {
		t.Errorf("stage initial params (-want +got):\n%s", diff)
	}
	assert.Equal(t, Params{3}, res.Params)

	wantCounts := []int{9, 18, 30}
	for i, s := range res.Stages {
		assert.Equal(t, Completed, s.State)
		assert.Len(t, s.Stage.SamplePoints, wantCounts[i])
		assert.Equal(t, Params{float64(i + 1)}, s.Params)
		assert.True(t, s.Converged)
	}

	// Every simulation stays inside its stage horizon.
	for i, h := range sim.horizons {
		stage := i / 2 // one call inside the optimizer, one to score the result
		assert.Equal(t, Interval{0, threeStage().Checkpoints[stage]}, h)
		assert.Equal(t, wantCounts[stage], sim.samples[i])
	}
	assert.Len(t, sim.horizons, 6)
}

func TestFitStageLossIsRestrictedLoss(t *testing.T) {
	f := newTestFitter(t, &scaledDecay{}, &stepper{})
	data := testSeries(30, 5)

	res, err := f.Fit(context.Background(), data, threeStage(), Params{0})
	require.NoError(t, err)

	for i, s := range res.Stages {
		obs := data.Restrict(s.Stage.Horizon.End)
		pred := Series{Times: obs.Times, Values: make([][]float64, obs.Len())}
		for j, tm := range obs.Times {
			pred.Values[j] = []float64{s.Params[0] * math.Exp(-tm)}
		}
		assertFloat(t, fmt.Sprintf("stage %d loss", i), s.Loss, MSE{}.Evaluate(pred, obs, nil))
	}
	assert.Equal(t, res.Stages[2].Loss, res.Loss)
}

func TestFitSingleStageMatchesDirectStage(t *testing.T) {
	data := testSeries(30, 5)
	c := Curriculum{Horizon: Interval{0, 5}, Checkpoints: []float64{5}, Stages: []OptimizerConfig{{}}}

	f := newTestFitter(t, &scaledDecay{}, &stepper{})
	res, err := f.Fit(context.Background(), data, c, Params{0})
	require.NoError(t, err)
	require.Len(t, res.Stages, 1)
	assert.Len(t, res.Stages[0].Stage.SamplePoints, 30)

	stages, err := c.Plan(data)
	require.NoError(t, err)
	direct, err := newTestFitter(t, &scaledDecay{}, &stepper{}).RunStage(context.Background(), data, c, stages[0], Params{0})
	require.NoError(t, err)

	assert.Equal(t, direct.Params, res.Params)
	assert.Equal(t, direct.Loss, res.Loss)
}

func TestFitInvalidSequenceRunsNothing(t *testing.T) {
	sim := &scaledDecay{}
	opt := &stepper{}
	f := newTestFitter(t, sim, opt)

	c := threeStage()
	c.Checkpoints = []float64{3.0, 1.5, 5.0}

	res, err := f.Fit(context.Background(), testSeries(30, 5), c, Params{0})
	require.ErrorIs(t, err, ErrInvalidHorizonSequence)
	assert.Nil(t, res)
	assert.Empty(t, sim.horizons)
	assert.Empty(t, opt.initials)
}

func TestFitOptimizerFailureStopsCurriculum(t *testing.T) {
	boom := errors.New("line search failed")
	opt := &stepper{fail: func(call int) error {
		if call == 1 {
			return boom
		}
		return nil
	}}
	f := newTestFitter(t, &scaledDecay{}, opt)

	res, err := f.Fit(context.Background(), testSeries(30, 5), threeStage(), Params{0})
	require.ErrorIs(t, err, ErrOptimizationFailure)
	require.ErrorIs(t, err, boom)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Stage)
	assert.Equal(t, Interval{0, 3}, se.Horizon)

	require.NotNil(t, res)
	assert.Equal(t, Completed, res.Stages[0].State)
	assert.Equal(t, Failed, res.Stages[1].State)
	assert.Nil(t, res.Stages[1].Params)
	assert.Equal(t, NotStarted, res.Stages[2].State)
	assert.Equal(t, Params{1}, res.Params, "result holds the last completed stage")
	assert.Len(t, opt.initials, 2, "stage 2 must not run")
}

func TestFitNonConvergenceStopsCurriculum(t *testing.T) {
	calls := 0
	opt := OptimizerFunc(func(_ context.Context, _ Objective, p Params, _ OptimizerConfig) (OptimizeResult, error) {
		calls++
		return OptimizeResult{Params: p.Clone(), Iterations: 300, Converged: false}, nil
	})
	f := newTestFitter(t, &scaledDecay{}, opt)

	res, err := f.Fit(context.Background(), testSeries(30, 5), threeStage(), Params{0.5})
	require.ErrorIs(t, err, ErrOptimizationFailure)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Stage)

	assert.Equal(t, 1, calls, "stage 1 must not run")
	require.NotNil(t, res)
	assert.Equal(t, 0, res.Completed())
	assert.Equal(t, Failed, res.Stages[0].State)
	assert.Equal(t, 300, res.Stages[0].Iterations)
	assert.False(t, res.Stages[0].Converged)
	assert.Equal(t, NotStarted, res.Stages[1].State)
	assert.Nil(t, res.Params)
}

func TestFitSimulationFailure(t *testing.T) {
	sim := &scaledDecay{fail: func(h Interval) error {
		if h.End > 3 {
			return errors.New("step size underflow")
		}
		return nil
	}}
	f := newTestFitter(t, sim, &stepper{})

	res, err := f.Fit(context.Background(), testSeries(30, 5), threeStage(), Params{0})
	require.ErrorIs(t, err, ErrSimulationFailure)
	assert.False(t, errors.Is(err, ErrOptimizationFailure))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Stage)
	assert.Equal(t, 2, res.Completed())
}

func TestFitRejectsBadOptimizerOutput(t *testing.T) {
	tests := []struct {
		name string
		out  Params
	}{
		{"wrong length", Params{1, 2}},
		{"non-finite", Params{math.Inf(1)}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := OptimizerFunc(func(context.Context, Objective, Params, OptimizerConfig) (OptimizeResult, error) {
				return OptimizeResult{Params: tt.out, Converged: true}, nil
			})
			f := newTestFitter(t, &scaledDecay{}, opt)
			_, err := f.Fit(context.Background(), testSeries(30, 5), threeStage(), Params{0})
			require.ErrorIs(t, err, ErrOptimizationFailure)
		})
	}
}

func TestFitObservers(t *testing.T) {
	type call struct {
		stage int
		loss  float64
		n     int
	}
	var calls []call
	mutate := ObserverFunc(func(stage int, loss float64, predicted Series) {
		calls = append(calls, call{stage, loss, predicted.Len()})
		predicted.Values[0][0] = math.NaN()
	})
	f := newTestFitter(t, &scaledDecay{}, &stepper{}, mutate)

	data := testSeries(30, 5)
	res, err := f.Fit(context.Background(), data, threeStage(), Params{0})
	require.NoError(t, err)

	want := []call{
		{0, res.Stages[0].Loss, 9},
		{1, res.Stages[1].Loss, 18},
		{2, res.Stages[2].Loss, 30},
	}
	if diff := cmp.Diff(want, calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Errorf("observer calls (-want +got):\n%s", diff)
	}
	assert.False(t, math.IsNaN(res.Loss))
	assert.Equal(t, 1.0, data.Values[0][0], "observer reached the observed data")
}

func TestFitObserverPanicIsRecovered(t *testing.T) {
	var seen []int
	boom := ObserverFunc(func(stage int, _ float64, _ Series) {
		if stage == 1 {
			panic("plot window closed")
		}
	})
	record := ObserverFunc(func(stage int, _ float64, _ Series) {
		seen = append(seen, stage)
	})
	f := newTestFitter(t, &scaledDecay{}, &stepper{}, boom, record)

	res, err := f.Fit(context.Background(), testSeries(30, 5), threeStage(), Params{0})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Completed())
	assert.Equal(t, Params{3}, res.Params)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestFitContextCancelBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := ObserverFunc(func(stage int, _ float64, _ Series) {
		if stage == 0 {
			cancel()
		}
	})
	opt := &stepper{}
	f := newTestFitter(t, &scaledDecay{}, opt, stop)

	res, err := f.Fit(ctx, testSeries(30, 5), threeStage(), Params{0})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Completed())
	assert.Equal(t, Failed, res.Stages[1].State)
	assert.Len(t, opt.initials, 1)
}

func TestFitInvalidInputs(t *testing.T) {
	f := newTestFitter(t, &scaledDecay{}, &stepper{})

	_, err := f.Fit(context.Background(), testSeries(30, 5), threeStage(), Params{math.NaN()})
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = f.Fit(context.Background(), testSeries(30, 5), threeStage(), nil)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestNewFitterRequiresCollaborators(t *testing.T) {
	_, err := NewFitter(FitterConfig{Optimizer: &stepper{}})
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewFitter(FitterConfig{Simulator: &scaledDecay{}})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunStageRetry(t *testing.T) {
	data := testSeries(30, 5)
	c := threeStage()
	stages, err := c.Plan(data)
	require.NoError(t, err)

	attempts := 0
	opt := OptimizerFunc(func(ctx context.Context, obj Objective, p Params, cfg OptimizerConfig) (OptimizeResult, error) {
		attempts++
		if cfg.LearningRate > 0.01 {
			return OptimizeResult{}, errors.New("diverged")
		}
		return OptimizeResult{Params: Params{1}, Converged: true}, nil
	})
	f := newTestFitter(t, &scaledDecay{}, opt)

	stage := stages[1]
	_, err = f.RunStage(context.Background(), data, c, stage, Params{0.5})
	require.ErrorIs(t, err, ErrOptimizationFailure)

	stage.Optimizer.LearningRate = 0.001
	sr, err := f.RunStage(context.Background(), data, c, stage, Params{0.5})
	require.NoError(t, err)
	assert.Equal(t, Completed, sr.State)
	assert.Equal(t, Params{1}, sr.Params)
	assert.Equal(t, 2, attempts)
}

func TestRunStageRejectsInconsistentStage(t *testing.T) {
	data := testSeries(30, 5)
	c := threeStage()
	stages, err := c.Plan(data)
	require.NoError(t, err)

	tests := []struct {
		name string
		edit func(s *FitStage)
		want error
	}{
		{"dropped sample", func(s *FitStage) { s.SamplePoints = s.SamplePoints[1:] }, ErrInvalidConfig},
		{"moved sample", func(s *FitStage) { s.SamplePoints[3] += 0.01 }, ErrInvalidConfig},
		{"longer horizon", func(s *FitStage) { s.Horizon.End = 3.5 }, ErrInvalidConfig},
		{"past full horizon", func(s *FitStage) { s.Horizon.End = 6 }, ErrInvalidHorizonSequence},
		{"shifted start", func(s *FitStage) { s.Horizon.Start = 0.5 }, ErrInvalidHorizonSequence},
		{"empty horizon", func(s *FitStage) { s.Horizon.End = 0 }, ErrInvalidHorizonSequence},
		{"bad algorithm", func(s *FitStage) { s.Optimizer.Algorithm = Algorithm(42) }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := stages[1].clone()
			tt.edit(&stage)

			sim, opt := &scaledDecay{}, &stepper{}
			sr, err := newTestFitter(t, sim, opt).RunStage(context.Background(), data, c, stage, Params{0})
			require.ErrorIs(t, err, tt.want)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 1, se.Stage)
			assert.Equal(t, Failed, sr.State)
			assert.Empty(t, sim.horizons)
			assert.Empty(t, opt.initials)
		})
	}
}

func TestStageObjectiveBatchLoss(t *testing.T) {
	data := testSeries(10, 1)
	stage := FitStage{Horizon: Interval{0, 1}, SamplePoints: data.Times}
	obj := &stageObjective{sim: &scaledDecay{}, stage: stage, observed: data, loss: SSE{}, weight: Uniform}

	assert.Equal(t, 10, obj.Samples())

	full, err := obj.Loss(context.Background(), Params{2})
	require.NoError(t, err)
	part, err := obj.BatchLoss(context.Background(), Params{2}, []int{0, 1})
	require.NoError(t, err)
	assert.Less(t, part, full)
	// SSE on the first two samples: sum (exp(-t))^2.
	assertFloat(t, "batch sse", part, 1+math.Exp(-2*data.Times[1]))

	_, err = obj.BatchLoss(context.Background(), Params{2}, []int{10})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStageObjectiveRejectsBadPredictions(t *testing.T) {
	data := testSeries(5, 1)
	stage := FitStage{Horizon: Interval{0, 1}, SamplePoints: data.Times}

	short := SimulatorFunc(func(context.Context, Params, Interval, []float64) (Series, error) {
		return Series{Times: []float64{0}, Values: [][]float64{{1}}}, nil
	})
	nan := SimulatorFunc(func(_ context.Context, _ Params, _ Interval, s []float64) (Series, error) {
		out := Series{Times: s, Values: make([][]float64, len(s))}
		for i := range out.Values {
			out.Values[i] = []float64{math.NaN()}
		}
		return out, nil
	})
	for name, sim := range map[string]Simulator{"short": short, "nan": nan} {
		obj := &stageObjective{sim: sim, stage: stage, observed: data, loss: MSE{}, weight: Uniform}
		_, err := obj.Loss(context.Background(), Params{1})
		assert.ErrorIs(t, err, ErrSimulationFailure, name)
	}
}
