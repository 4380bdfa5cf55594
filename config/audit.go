package config

import (
	"fmt"

	"github.com/novabehavior/abacore/core/auditlog"
)

// AuditConfig defines settings for schedule event log storage and rotation.
type AuditConfig struct {
	// Backend selects the event store type: "memory", "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the event store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	// Only the jsonl backend rotates.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "schedule_events.log"
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	switch c.Backend {
	case "memory", "jsonl", "sqlite":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Backend != "memory" && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// NewStore opens the configured audit log backend.
func (c AuditConfig) NewStore() (auditlog.Store, error) {
	switch c.Backend {
	case "memory":
		return auditlog.NewMemoryStore(), nil
	case "jsonl":
		if c.MaxSizeMB > 0 {
			return auditlog.NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		}
		return auditlog.NewJSONLStore(c.Path)
	case "sqlite":
		return auditlog.NewSQLiteStore(c.Path)
	default:
		return nil, fmt.Errorf("unknown backend %s", c.Backend)
	}
}
