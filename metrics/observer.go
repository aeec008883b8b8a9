// Package metrics exports curriculum progress as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sky-flux/horizon"
)

// Observer records each completed stage. It implements horizon.Observer.
type Observer struct {
	stageLoss    *prometheus.GaugeVec
	stageSamples *prometheus.GaugeVec
	completed    prometheus.Counter
}

var _ horizon.Observer = (*Observer)(nil)

// NewObserver creates an Observer and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{
		stageLoss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "horizon_stage_loss",
				Help: "Loss at the end of each curriculum stage",
			},
			[]string{"stage"},
		),
		stageSamples: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "horizon_stage_samples",
				Help: "Number of observations fitted in each curriculum stage",
			},
			[]string{"stage"},
		),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "horizon_stages_completed_total",
			Help: "Number of curriculum stages completed",
		}),
	}
	for _, c := range []prometheus.Collector{o.stageLoss, o.stageSamples, o.completed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnStageComplete implements horizon.Observer.
func (o *Observer) OnStageComplete(stage int, loss float64, predicted horizon.Series) {
	label := strconv.Itoa(stage)
	o.stageLoss.WithLabelValues(label).Set(loss)
	o.stageSamples.WithLabelValues(label).Set(float64(predicted.Len()))
	o.completed.Inc()
}
