package config

import (
	"fmt"
)

// JournalConfig defines where replan records are stored.
type JournalConfig struct {
	// Backend selects the store type: "jsonl", "jsonl-rotating" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// Rotation settings, used by jsonl-rotating only. Zero keeps the store defaults.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults disables the journal unless a path is given.
func (c *JournalConfig) SetDefaults() {
	if c.Backend == "" {
		if c.Path == "" {
			c.Backend = "none"
		} else {
			c.Backend = "jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c JournalConfig) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "jsonl", "jsonl-rotating":
		if c.Path == "" {
			return fmt.Errorf("path is required")
		}
		if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
			return fmt.Errorf("rotation settings must be non-negative")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
}

// Enabled reports whether replan records are persisted.
func (c JournalConfig) Enabled() bool { return c.Backend != "none" }

// Settings returns the raw store settings handed to the backend factory.
func (c JournalConfig) Settings() map[string]any {
	conf := map[string]any{"path": c.Path}
	if c.MaxSizeMB > 0 {
		conf["max_size_mb"] = c.MaxSizeMB
	}
	if c.MaxBackups > 0 {
		conf["max_backups"] = c.MaxBackups
	}
	if c.MaxAgeDays > 0 {
		conf["max_age_days"] = c.MaxAgeDays
	}
	return conf
}
