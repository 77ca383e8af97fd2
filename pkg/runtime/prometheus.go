package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
)

// Metrics for monitoring service.
var (
	//liveValues prometheus metric.
	liveValues = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current number of live heap values",
			Name:      "live_values",
			Namespace: "vesper",
		},
	)
	//allocations prometheus metric.
	allocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of heap allocations",
			Name:      "allocations_total",
			Namespace: "vesper",
		},
		[]string{"type"},
	)
	//finalizations prometheus metric.
	finalizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of finalized heap values",
			Name:      "finalizations_total",
			Namespace: "vesper",
		},
		[]string{"type"},
	)
	//finalizationFailures prometheus metric.
	finalizationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of failed stream finalizations",
			Name:      "finalization_failures_total",
			Namespace: "vesper",
		},
	)
)

func init() {
	prometheus.MustRegister(
		liveValues,
		allocations,
		finalizations,
		finalizationFailures,
	)
}

func updateLiveValues(n int) {
	liveValues.Set(float64(n))
}

func updateAllocations(t value.Type) {
	allocations.WithLabelValues(t.String()).Inc()
}

func updateFinalizations(t value.Type) {
	finalizations.WithLabelValues(t.String()).Inc()
}

func updateFinalizationFailures() {
	finalizationFailures.Inc()
}
