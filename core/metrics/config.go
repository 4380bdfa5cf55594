package metrics

import "github.com/novabehavior/abacore/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PromAddr, when set, exposes the Prometheus scrape endpoint on this
	// address (for example ":9100").
	PromAddr string `json:"prom_addr"`
}
