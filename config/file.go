package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sky-flux/horizon"
	"github.com/sky-flux/horizon/ode"
	"github.com/sky-flux/horizon/optimizer"
)

// File is a curriculum description as stored in YAML:
//
//	horizon: {start: 0, end: 5}
//	checkpoints: [1.5, 3.0, 5.0]
//	stages:
//	  - {algorithm: adam, learning_rate: 0.05, max_iterations: 200, accept_iteration_limit: true}
//	loss: {name: mse}
//	weighting: {kind: exponential, rate: 0.2}
type File struct {
	Horizon horizon.Interval `yaml:"horizon"`

	// At most one of Checkpoints and Fractions may be set. With neither,
	// the horizon is split evenly into one stage per Stages entry.
	Checkpoints []float64 `yaml:"checkpoints,omitempty"`
	Fractions   []float64 `yaml:"fractions,omitempty"`

	Stages    []horizon.OptimizerConfig `yaml:"stages,omitempty"`
	Loss      LossSpec                  `yaml:"loss,omitempty"`
	Weighting WeightSpec                `yaml:"weighting,omitempty"`

	Optimizer optimizer.DispatcherConfig `yaml:"optimizer,omitempty"`
	Simulator SimulatorSpec              `yaml:"simulator,omitempty"`
}

// LossSpec selects a built-in loss.
type LossSpec struct {
	Name  string  `yaml:"name,omitempty"`  // mse (default), sse, mae, huber
	Delta float64 `yaml:"delta,omitempty"` // huber only
}

// WeightSpec selects how samples are weighted in the loss.
type WeightSpec struct {
	Kind string  `yaml:"kind,omitempty"` // uniform (default) or exponential
	Rate float64 `yaml:"rate,omitempty"`
}

// SimulatorSpec configures the reference ode.Simulator.
type SimulatorSpec struct {
	Method  string  `yaml:"method,omitempty"`
	MaxStep float64 `yaml:"max_step,omitempty"`
}

// ReadFile parses the curriculum file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read curriculum %s", path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "curriculum %s", path)
	}
	return f, nil
}

// Parse decodes a curriculum file. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	f := &File{}
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("%w: %w", horizon.ErrInvalidConfig, err)
	}
	return f, nil
}

// loss returns the configured loss.
func (f *File) loss() (horizon.Loss, error) {
	if f.Loss.Name == "huber" && f.Loss.Delta != 0 {
		if f.Loss.Delta < 0 {
			return nil, fmt.Errorf("%w: huber delta %g", horizon.ErrInvalidConfig, f.Loss.Delta)
		}
		return horizon.Huber{Delta: f.Loss.Delta}, nil
	}
	return horizon.LossByName(f.Loss.Name)
}

func (f *File) weight() (horizon.WeightFunc, error) {
	switch f.Weighting.Kind {
	case "", "uniform":
		return horizon.Uniform, nil
	case "exponential":
		if f.Weighting.Rate < 0 {
			return nil, fmt.Errorf("%w: negative decay rate %g", horizon.ErrInvalidConfig, f.Weighting.Rate)
		}
		return horizon.ExponentialDecay(f.Weighting.Rate), nil
	}
	return nil, fmt.Errorf("%w: unknown weighting %q", horizon.ErrInvalidConfig, f.Weighting.Kind)
}

func (f *File) checkpoints() ([]float64, error) {
	switch {
	case len(f.Checkpoints) > 0 && len(f.Fractions) > 0:
		return nil, fmt.Errorf("%w: both checkpoints and fractions set", horizon.ErrInvalidConfig)
	case len(f.Checkpoints) > 0:
		return append([]float64(nil), f.Checkpoints...), nil
	case len(f.Fractions) > 0:
		return horizon.Fractions(f.Horizon, f.Fractions...), nil
	}
	return horizon.EvenCheckpoints(f.Horizon, len(f.Stages)), nil
}

// Curriculum converts f into a validated horizon.Curriculum.
func (f *File) Curriculum() (horizon.Curriculum, error) {
	cps, err := f.checkpoints()
	if err != nil {
		return horizon.Curriculum{}, err
	}
	loss, err := f.loss()
	if err != nil {
		return horizon.Curriculum{}, err
	}
	weight, err := f.weight()
	if err != nil {
		return horizon.Curriculum{}, err
	}
	stages := append([]horizon.OptimizerConfig(nil), f.Stages...)
	if len(stages) == 0 {
		stages = []horizon.OptimizerConfig{{}}
	}

	c := horizon.Curriculum{
		Horizon:     f.Horizon,
		Checkpoints: cps,
		Stages:      stages,
		Loss:        loss,
		Weight:      weight,
	}
	if err := c.Validate(); err != nil {
		return horizon.Curriculum{}, err
	}
	return c, nil
}

// Method returns the configured integration method.
func (f *File) Method() (*ode.Tableau, error) {
	return ode.MethodByName(f.Simulator.Method)
}
