package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scheduleLatency    *prometheus.HistogramVec
	sessionOutcomes    *prometheus.CounterVec
	conflictsDetected  *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	notifySuccess      prometheus.Counter
	notifyFailure      prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedule_operation_latency_seconds",
			Help:    "Latency of scheduling operations from request to outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	out := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_outcomes_total",
			Help: "Number of scheduling operations by outcome",
		},
		[]string{"outcome"},
	)
	conf := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_conflicts_total",
			Help: "Number of conflicts detected by type",
		},
		[]string{"type"},
	)
	trans := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Number of committed session status transitions",
		},
		[]string{"to"},
	)
	suc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_publish_success_total",
			Help: "Number of successful notification publish operations",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_publish_failure_total",
			Help: "Number of failed notification publish operations",
		},
	)
	return lat, out, conf, trans, suc, fail
}

func init() {
	scheduleLatency, sessionOutcomes, conflictsDetected, sessionTransitions, notifySuccess, notifyFailure = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduling metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(scheduleLatency, sessionOutcomes, conflictsDetected, sessionTransitions, notifySuccess, notifyFailure)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	scheduleLatency, sessionOutcomes, conflictsDetected, sessionTransitions, notifySuccess, notifyFailure = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
