package horizon

import "time"

// OptimizerConfig configures the optimizer for one stage.
// Zero values are replaced with backend defaults.
type OptimizerConfig struct {
	Algorithm     Algorithm `json:"algorithm" yaml:"algorithm"`           // zero → Adam
	LearningRate  float64   `json:"learning_rate" yaml:"learning_rate"`   // zero → 0.01
	MaxIterations int       `json:"max_iterations" yaml:"max_iterations"` // zero → 300

	// AllowNonmonotonicLoss disables early termination when the loss
	// increases between iterations.
	AllowNonmonotonicLoss bool `json:"allow_nonmonotonic_loss" yaml:"allow_nonmonotonic_loss"`

	// AcceptIterationLimit counts a run that exhausts MaxIterations as
	// converged. Without it such a run fails the stage.
	AcceptIterationLimit bool `json:"accept_iteration_limit,omitempty" yaml:"accept_iteration_limit,omitempty"`

	// BatchSize > 0 evaluates gradients on random subsets of the stage's
	// samples. Only honored by backends that support mini-batches.
	BatchSize int   `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	Seed      int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// FitStage is one step of a curriculum: a horizon, the samples inside it
// and the optimizer settings used to fit them.
type FitStage struct {
	Index        int             `json:"index"`
	Horizon      Interval        `json:"horizon"`
	SamplePoints []float64       `json:"sample_points"`
	Optimizer    OptimizerConfig `json:"optimizer"`
}

// clone returns a deep copy of the stage.
func (s FitStage) clone() FitStage {
	out := s
	out.SamplePoints = append([]float64(nil), s.SamplePoints...)
	return out
}

// StageResult records the outcome of one stage.
type StageResult struct {
	Stage      FitStage      `json:"stage"`
	State      StageState    `json:"state"`
	Params     Params        `json:"params,omitempty"` // nil unless Completed.
	Loss       float64       `json:"loss"`
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Result is the outcome of a curriculum fit.
type Result struct {
	Params Params        `json:"params"` // Parameters after the last completed stage.
	Loss   float64       `json:"loss"`
	Stages []StageResult `json:"stages"`
}

// Completed returns the number of stages that finished successfully.
func (r *Result) Completed() int {
	n := 0
	for _, s := range r.Stages {
		if s.State == Completed {
			n++
		}
	}
	return n
}
