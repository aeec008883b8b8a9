package optimizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/sky-flux/horizon"
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Adam  AdamConfig  `json:"adam" yaml:"adam"`
	Gonum GonumConfig `json:"gonum" yaml:"gonum"`

	// Backends overrides the optimizer used for individual algorithms.
	Backends map[horizon.Algorithm]horizon.Optimizer `json:"-" yaml:"-"`
}

// Dispatcher routes each stage to the backend registered for its
// OptimizerConfig.Algorithm. A zero Algorithm selects Adam.
// It implements horizon.Optimizer.
type Dispatcher struct {
	mu       sync.RWMutex
	backends map[horizon.Algorithm]horizon.Optimizer
}

var _ horizon.Optimizer = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with the built-in Adam and gonum
// backends, then applies any overrides from cfg.Backends.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	adam := NewAdamOptimizer(cfg.Adam)
	gonum := NewGonumOptimizer(cfg.Gonum)

	d := &Dispatcher{backends: map[horizon.Algorithm]horizon.Optimizer{
		horizon.Adam:            adam,
		horizon.GradientDescent: gonum,
		horizon.BFGS:            gonum,
		horizon.LBFGS:           gonum,
		horizon.NelderMead:      gonum,
	}}
	for a, o := range cfg.Backends {
		d.backends[a] = o
	}
	return d
}

// Register installs o as the backend for a, replacing any existing one.
func (d *Dispatcher) Register(a horizon.Algorithm, o horizon.Optimizer) error {
	if !a.IsValid() {
		return fmt.Errorf("%w: algorithm %d", horizon.ErrInvalidConfig, int(a))
	}
	if o == nil {
		return fmt.Errorf("%w: nil optimizer for %s", horizon.ErrInvalidConfig, a)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backends[a] = o
	return nil
}

// Optimize implements horizon.Optimizer.
func (d *Dispatcher) Optimize(ctx context.Context, obj horizon.Objective, initial horizon.Params, cfg horizon.OptimizerConfig) (horizon.OptimizeResult, error) {
	a := cfg.Algorithm
	if a == 0 {
		a = horizon.Adam
	}
	d.mu.RLock()
	o, ok := d.backends[a]
	d.mu.RUnlock()
	if !ok || o == nil {
		return horizon.OptimizeResult{}, fmt.Errorf("%w: no backend for algorithm %s", horizon.ErrInvalidConfig, a)
	}
	cfg.Algorithm = a
	return o.Optimize(ctx, obj, initial, cfg)
}
