// Package prometheus exports hook dispatch activity as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()         // hookable metrics + Go runtime
//	obs := hookable.NewObservers().Register(prometheus.NewObserver())
//	http.Handle("/metrics", prometheus.Handler(reg))
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hookable"

var (
	// callsTotal counts completed calls by outcome.
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of hook calls",
		},
		[]string{"hook", "kind", "status"}, // status: success, error, bailed, unanswered
	)

	// callDuration is a histogram of call duration in seconds.
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Histogram of hook call duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"hook", "kind"},
	)

	// callsActive is a gauge of calls currently running.
	callsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of hook calls currently running",
		},
		[]string{"hook"},
	)

	// tapsTotal counts callback invocations by outcome.
	tapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taps_total",
			Help:      "Total number of callback invocations",
		},
		[]string{"hook", "tap", "status"}, // status: success, error, bailed, passed
	)

	// tapDuration is a histogram of callback duration in seconds.
	tapDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tap_duration_seconds",
			Help:      "Histogram of callback duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"hook", "tap"},
	)
)

var allMetrics = []prometheus.Collector{
	callsTotal,
	callDuration,
	callsActive,
	tapsTotal,
	tapDuration,
}

// Register adds the hookable metrics to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range allMetrics {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry creates a registry holding the hookable metrics and the Go
// runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the metrics of reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
