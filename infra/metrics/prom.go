package metrics

import (
	coremetrics "github.com/novabehavior/abacore/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	events      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	disruptions *prometheus.CounterVec
	continuity  *prometheus.GaugeVec
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer. The metrics server should be started separately with
// StartPromServer.
func NewPromSink() (coremetrics.EventSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.EventSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Total number of scheduling outcomes",
	}, []string{"rbt_id", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_latency_seconds",
		Help:    "Time spent inside one scheduling operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	disruptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "disruption_events_total",
		Help: "Total number of schedule disruptions",
	}, []string{"event_type"})
	continuity := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "continuity_score",
		Help: "Latest continuity score per client and caregiver pair",
	}, []string{"client_id", "rbt_id"})

	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			events = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(disruptions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			disruptions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(continuity); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			continuity = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{events: events, latency: latency, disruptions: disruptions, continuity: continuity}, nil
}

// RecordSession increments the outcome counter and observes latency.
func (s *PromSink) RecordSession(ev coremetrics.SessionEvent) error {
	s.events.WithLabelValues(ev.RBTID, ev.Outcome).Inc()
	if ev.Latency > 0 {
		s.latency.WithLabelValues(ev.Outcome).Observe(ev.Latency.Seconds())
	}
	return nil
}

// RecordDisruption increments the disruption counter per event type.
func (s *PromSink) RecordDisruption(ev coremetrics.DisruptionEvent) error {
	s.disruptions.WithLabelValues(ev.EventType).Inc()
	return nil
}

// RecordContinuity sets the latest score for the pair.
func (s *PromSink) RecordContinuity(ev coremetrics.ContinuityEvent) error {
	s.continuity.WithLabelValues(ev.ClientID, ev.RBTID).Set(ev.Score)
	return nil
}
