package metrics

import (
	"sync"

	coremetrics "github.com/novabehavior/abacore/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// UtilizationSink accumulates scheduled therapy hours per caregiver and day
// as Prometheus gauges, giving the clinic a live capacity view alongside the
// outcome counters.
type UtilizationSink struct {
	mu    sync.Mutex
	hours map[string]float64
	gauge *prometheus.GaugeVec
}

// NewUtilizationSink creates a sink with its gauge registered on reg.
func NewUtilizationSink(reg prometheus.Registerer) *UtilizationSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rbt_scheduled_hours",
		Help: "Scheduled therapy hours per caregiver and day",
	}, []string{"rbt_id", "day"})
	reg.MustRegister(g)
	return &UtilizationSink{hours: make(map[string]float64), gauge: g}
}

// RecordSession adds the booked hours of successfully scheduled sessions to
// the caregiver's daily bucket.
func (s *UtilizationSink) RecordSession(ev coremetrics.SessionEvent) error {
	if ev.Outcome != "success" || ev.RBTID == "" || !ev.End.After(ev.Start) {
		return nil
	}
	day := ev.Start.Format("2006-01-02")
	key := ev.RBTID + "|" + day
	s.mu.Lock()
	s.hours[key] += ev.End.Sub(ev.Start).Hours()
	total := s.hours[key]
	s.mu.Unlock()
	s.gauge.WithLabelValues(ev.RBTID, day).Set(total)
	return nil
}
