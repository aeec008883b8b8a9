package horizon

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// WeightFunc weights the contribution of the sample at time t to a loss.
type WeightFunc func(t float64) float64

// Uniform weights every sample equally.
func Uniform(float64) float64 { return 1 }

// ExponentialDecay weights a sample at time t by exp(-rate*t), emphasizing
// early behavior of the trajectory.
func ExponentialDecay(rate float64) WeightFunc {
	return func(t float64) float64 { return math.Exp(-rate * t) }
}

// Loss scores a predicted trajectory against observations taken at the
// same sample points. A nil WeightFunc means Uniform.
type Loss interface {
	Name() string
	Evaluate(predicted, observed Series, w WeightFunc) float64
}

// MSE is the weighted mean of per-sample mean squared residuals.
type MSE struct{}

func (MSE) Name() string { return "mse" }

func (MSE) Evaluate(predicted, observed Series, w WeightFunc) float64 {
	return reduce(predicted, observed, w, true, func(r []float64) float64 {
		return floats.Dot(r, r) / float64(len(r))
	})
}

// SSE is the weighted sum of squared residuals over all samples and dimensions.
type SSE struct{}

func (SSE) Name() string { return "sse" }

func (SSE) Evaluate(predicted, observed Series, w WeightFunc) float64 {
	return reduce(predicted, observed, w, false, func(r []float64) float64 {
		return floats.Dot(r, r)
	})
}

// MAE is the weighted mean of per-sample mean absolute residuals.
type MAE struct{}

func (MAE) Name() string { return "mae" }

func (MAE) Evaluate(predicted, observed Series, w WeightFunc) float64 {
	return reduce(predicted, observed, w, true, func(r []float64) float64 {
		return floats.Norm(r, 1) / float64(len(r))
	})
}

// Huber is quadratic for residuals within Delta and linear beyond.
type Huber struct {
	Delta float64
}

func (h Huber) Name() string { return "huber" }

func (h Huber) Evaluate(predicted, observed Series, w WeightFunc) float64 {
	delta := h.Delta
	if delta <= 0 {
		delta = 1
	}
	return reduce(predicted, observed, w, true, func(r []float64) float64 {
		var sum float64
		for _, v := range r {
			d := math.Abs(v)
			if d <= delta {
				sum += 0.5 * d * d
			} else {
				sum += delta*d - 0.5*delta*delta
			}
		}
		return sum / float64(len(r))
	})
}

// LossByName returns the built-in loss registered under name.
// An empty name selects MSE.
func LossByName(name string) (Loss, error) {
	switch name {
	case "", "mse":
		return MSE{}, nil
	case "sse":
		return SSE{}, nil
	case "mae":
		return MAE{}, nil
	case "huber":
		return Huber{Delta: 1}, nil
	}
	return nil, fmt.Errorf("%w: unknown loss %q", ErrInvalidConfig, name)
}

// reduce combines per-sample costs. Mismatched series lengths or
// dimensions yield +Inf so that optimizers reject the point.
func reduce(predicted, observed Series, w WeightFunc, mean bool, point func([]float64) float64) float64 {
	if predicted.Len() != observed.Len() || predicted.Len() == 0 {
		return math.Inf(1)
	}
	if w == nil {
		w = Uniform
	}
	var total, norm float64
	var r []float64
	for i := range observed.Values {
		p, o := predicted.Values[i], observed.Values[i]
		if len(p) != len(o) {
			return math.Inf(1)
		}
		if cap(r) < len(o) {
			r = make([]float64, len(o))
		}
		r = r[:len(o)]
		floats.SubTo(r, p, o)
		wt := w(observed.Times[i])
		total += wt * point(r)
		norm += wt
	}
	if !mean {
		return total
	}
	if norm == 0 {
		return math.Inf(1)
	}
	return total / norm
}
