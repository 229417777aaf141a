package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the SDK collectors on reg. A nil reg uses
// the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payrails",
			Name:      "events_total",
			Help:      "payrails SDK event counters",
		},
		[]string{"type", LabelPaymentMethod, LabelResult},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payrails",
			Name:      "latency_seconds",
			Help:      "payrails execution API latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", LabelPaymentMethod},
	)

	return &PrometheusRecorder{
		counters:  register(reg, counters),
		histogram: register(reg, histogram),
	}
}

// register adds c to reg, reusing the collector of an earlier recorder when
// one is already registered under the same description.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":             name,
		LabelPaymentMethod: labels[LabelPaymentMethod],
		LabelResult:        labels[LabelResult],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation":        name,
		LabelPaymentMethod: labels[LabelPaymentMethod],
	}).Observe(d.Seconds())
}
