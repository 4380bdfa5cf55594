package analytics

import "fmt"

// Config tunes report generation.
type Config struct {
	// TrendBand is the relative change between the two halves of a report
	// window below which the disruption trend is labelled stable. 0.2 means
	// a swing of more than 20% flips the label.
	TrendBand float64 `json:"trend_band" yaml:"trend_band"`
	// TopReasons caps the ranked free-text reasons in a frequency report.
	TopReasons int `json:"top_reasons" yaml:"top_reasons"`
}

// SetDefaults fills unset fields with default values.
func (c *Config) SetDefaults() {
	if c.TrendBand == 0 {
		c.TrendBand = 0.2
	}
	if c.TopReasons == 0 {
		c.TopReasons = 5
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.TrendBand <= 0 || c.TrendBand >= 1 {
		return fmt.Errorf("trend_band must be between 0 and 1 exclusive")
	}
	if c.TopReasons < 1 {
		return fmt.Errorf("top_reasons must be at least 1")
	}
	return nil
}
