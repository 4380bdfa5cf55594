package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/novabehavior/abacore/core/factory"
	coremetrics "github.com/novabehavior/abacore/core/metrics"
)

// init registers built-in event sinks.
func init() {
	_ = coremetrics.RegisterEventSink("nop", func(map[string]any) (coremetrics.EventSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterEventSink("prometheus", func(map[string]any) (coremetrics.EventSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterEventSink("utilization", func(map[string]any) (coremetrics.EventSink, error) {
		return NewUtilizationSink(prometheus.DefaultRegisterer), nil
	})

	_ = coremetrics.RegisterEventSink("influx", func(conf map[string]any) (coremetrics.EventSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
