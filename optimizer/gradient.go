package optimizer

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/sky-flux/horizon"
)

const gradEps = 1e-5

// Gradient computes the gradient of obj at p using central differences:
// dL/dp[i] ≈ (L(p[i]+ε) - L(p[i]-ε)) / (2ε).
//
// Coordinates are evaluated concurrently on up to workers goroutines
// (workers < 1 means one per coordinate). The first evaluation error
// cancels the rest and is returned.
func Gradient(ctx context.Context, obj horizon.Objective, p horizon.Params, eps float64, workers int) ([]float64, error) {
	if eps <= 0 {
		eps = gradEps
	}
	grad := make([]float64, len(p))

	base := pool.New()
	if workers > 0 {
		base = base.WithMaxGoroutines(workers)
	}
	pl := base.WithContext(ctx).WithCancelOnError().WithFirstError()

	for i := range p {
		i := i // per-iteration copy (go directive lowered below 1.22)
		pl.Go(func(ctx context.Context) error {
			pPlus := p.Clone()
			pPlus[i] += eps
			pMinus := p.Clone()
			pMinus[i] -= eps

			lPlus, err := obj.Loss(ctx, pPlus)
			if err != nil {
				return err
			}
			lMinus, err := obj.Loss(ctx, pMinus)
			if err != nil {
				return err
			}
			grad[i] = (lPlus - lMinus) / (2 * eps)
			return nil
		})
	}
	if err := pl.Wait(); err != nil {
		return nil, err
	}
	return grad, nil
}

// batchObjective scores a fixed subset of a BatchObjective's samples.
type batchObjective struct {
	obj horizon.BatchObjective
	idx []int
}

func (b batchObjective) Loss(ctx context.Context, p horizon.Params) (float64, error) {
	return b.obj.BatchLoss(ctx, p, b.idx)
}
