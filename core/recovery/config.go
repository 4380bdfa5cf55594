package recovery

import "fmt"

// Config tunes the opportunity searches run after a cancellation.
type Config struct {
	// MaxAlternatives caps the ranked alternative placements returned.
	MaxAlternatives int `json:"max_alternatives" yaml:"max_alternatives"`
	// RescheduleSearchDays bounds the window scanned for reschedule
	// candidates after a freed slot.
	RescheduleSearchDays int `json:"reschedule_search_days" yaml:"reschedule_search_days"`
	// SearchParallelism bounds concurrent candidate reads against the store.
	SearchParallelism int `json:"search_parallelism" yaml:"search_parallelism"`
}

// SetDefaults fills unset fields with default values.
func (c *Config) SetDefaults() {
	if c.MaxAlternatives == 0 {
		c.MaxAlternatives = 5
	}
	if c.RescheduleSearchDays == 0 {
		c.RescheduleSearchDays = 7
	}
	if c.SearchParallelism == 0 {
		c.SearchParallelism = 4
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.MaxAlternatives < 1 {
		return fmt.Errorf("max_alternatives must be at least 1")
	}
	if c.RescheduleSearchDays < 1 {
		return fmt.Errorf("reschedule_search_days must be at least 1")
	}
	if c.SearchParallelism < 1 {
		return fmt.Errorf("search_parallelism must be at least 1")
	}
	return nil
}
