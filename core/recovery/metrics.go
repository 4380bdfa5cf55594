package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cancelOutcomes     *prometheus.CounterVec
	cancelLatency      *prometheus.HistogramVec
	opportunitySearch  prometheus.Histogram
	opportunitiesFound *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Histogram, *prometheus.CounterVec) {
	out := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cancel_outcomes_total",
			Help: "Number of cancellation operations by outcome",
		},
		[]string{"outcome"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cancel_latency_seconds",
			Help:    "Latency of cancellation operations from request to outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	search := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opportunity_search_seconds",
			Help:    "Duration of alternative placement searches",
			Buckets: prometheus.DefBuckets,
		},
	)
	found := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunities_found_total",
			Help: "Number of placement opportunities surfaced by kind",
		},
		[]string{"kind"},
	)
	return out, lat, search, found
}

func init() {
	cancelOutcomes, cancelLatency, opportunitySearch, opportunitiesFound = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers recovery metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cancelOutcomes, cancelLatency, opportunitySearch, opportunitiesFound)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	cancelOutcomes, cancelLatency, opportunitySearch, opportunitiesFound = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
