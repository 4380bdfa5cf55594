package config

import (
	"fmt"

	"github.com/novabehavior/abacore/infra/notify"
)

// NotifyConfig controls session change notifications to care team devices.
type NotifyConfig struct {
	// Enabled turns MQTT publishing on. When false the rest of the section
	// is ignored and no broker connection is made.
	Enabled bool `json:"enabled"`
	// AckTimeoutSeconds bounds the wait for a care team acknowledgment.
	AckTimeoutSeconds int `json:"ack_timeout_seconds"`
	// MQTT holds the broker connection settings.
	MQTT notify.Config `json:"mqtt"`
}

// SetDefaults applies sane defaults.
func (c *NotifyConfig) SetDefaults() {
	if c.AckTimeoutSeconds == 0 {
		c.AckTimeoutSeconds = 10
	}
}

// Validate checks mandatory fields when publishing is enabled.
func (c NotifyConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("notify enabled but mqtt broker is empty")
	}
	if c.AckTimeoutSeconds < 1 {
		return fmt.Errorf("ack_timeout_seconds must be at least 1")
	}
	return nil
}
