package horizon

import "fmt"

// Curriculum describes a sequence of growing horizons to fit over.
type Curriculum struct {
	// Horizon is the full problem horizon.
	Horizon Interval
	// Checkpoints are the absolute end times of each stage. They must be
	// strictly increasing and the last must equal Horizon.End.
	Checkpoints []float64
	// Stages holds one OptimizerConfig per checkpoint, or a single config
	// applied to every stage.
	Stages []OptimizerConfig
	// Loss defaults to MSE.
	Loss Loss
	// Weight defaults to Uniform.
	Weight WeightFunc
}

// Validate checks the horizon, checkpoints and stage configs.
func (c Curriculum) Validate() error {
	if err := c.Horizon.Validate(); err != nil {
		return err
	}
	if err := validateCheckpoints(c.Horizon, c.Checkpoints); err != nil {
		return err
	}
	if n := len(c.Stages); n != 1 && n != len(c.Checkpoints) {
		return fmt.Errorf("%w: %d stage configs for %d checkpoints", ErrInvalidConfig, n, len(c.Checkpoints))
	}
	for i, s := range c.Stages {
		if err := validateStageConfig(i, s); err != nil {
			return err
		}
	}
	return nil
}

func validateStageConfig(i int, s OptimizerConfig) error {
	if s.Algorithm != 0 && !s.Algorithm.IsValid() {
		return fmt.Errorf("%w: stage %d: algorithm %d", ErrInvalidConfig, i, int(s.Algorithm))
	}
	if s.LearningRate < 0 || s.MaxIterations < 0 || s.BatchSize < 0 {
		return fmt.Errorf("%w: stage %d: negative setting", ErrInvalidConfig, i)
	}
	return nil
}

// checkStage verifies a stage built outside Plan: its horizon must start at
// c.Horizon.Start and end inside it, and its sample points must be exactly
// the observation times up to its end.
func (c Curriculum) checkStage(data Series, s FitStage) error {
	if err := s.Horizon.Validate(); err != nil {
		return err
	}
	if s.Horizon.Start != c.Horizon.Start || !c.Horizon.Covers(s.Horizon) {
		return fmt.Errorf("%w: stage %d horizon %s not a prefix of %s", ErrInvalidHorizonSequence, s.Index, s.Horizon, c.Horizon)
	}
	if err := validateStageConfig(s.Index, s.Optimizer); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	want := data.Restrict(s.Horizon.End).Times
	if len(want) == 0 {
		return fmt.Errorf("%w: stage %d horizon %s selects no samples", ErrInvalidHorizonSequence, s.Index, s.Horizon)
	}
	if len(s.SamplePoints) != len(want) {
		return fmt.Errorf("%w: stage %d has %d sample points, data has %d up to t=%g",
			ErrInvalidConfig, s.Index, len(s.SamplePoints), len(want), s.Horizon.End)
	}
	for i, t := range s.SamplePoints {
		if t != want[i] {
			return fmt.Errorf("%w: stage %d sample %d at t=%g, observation at t=%g", ErrInvalidConfig, s.Index, i, t, want[i])
		}
	}
	return nil
}

// stageConfig returns the optimizer config for stage i.
func (c Curriculum) stageConfig(i int) OptimizerConfig {
	if len(c.Stages) == 1 {
		return c.Stages[0]
	}
	return c.Stages[i]
}

func (c Curriculum) loss() Loss {
	if c.Loss == nil {
		return MSE{}
	}
	return c.Loss
}

func (c Curriculum) weight() WeightFunc {
	if c.Weight == nil {
		return Uniform
	}
	return c.Weight
}

// Plan validates the curriculum against data and builds its stages.
// Nothing is simulated or optimized.
func (c Curriculum) Plan(data Series) ([]FitStage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidSeries)
	}
	if first, last := data.Times[0], data.Times[data.Len()-1]; !c.Horizon.Contains(first) || !c.Horizon.Contains(last) {
		return nil, fmt.Errorf("%w: samples span [%g, %g] outside horizon %s", ErrInvalidSeries, first, last, c.Horizon)
	}

	stages := make([]FitStage, len(c.Checkpoints))
	for i, h := range c.Checkpoints {
		restricted := data.Restrict(h)
		if restricted.Len() == 0 {
			return nil, fmt.Errorf("%w: checkpoint %d = %g selects no samples", ErrInvalidHorizonSequence, i, h)
		}
		stages[i] = FitStage{
			Index:        i,
			Horizon:      Interval{Start: c.Horizon.Start, End: h},
			SamplePoints: append([]float64(nil), restricted.Times...),
			Optimizer:    c.stageConfig(i),
		}
	}
	return stages, nil
}
