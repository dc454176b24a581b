// Package journals selects the replan journal store by backend name.
package journals

import (
	"github.com/kilianp07/acodispatch/core/dispatch/journal"
	"github.com/kilianp07/acodispatch/core/factory"
)

var stores = factory.NewRegistry[journal.Store]()

func init() {
	_ = Register("jsonl", func(conf map[string]any) (journal.Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return journal.NewJSONLStore(c.Path)
	})

	_ = Register("jsonl-rotating", func(conf map[string]any) (journal.Store, error) {
		c := struct {
			Path       string `json:"path"`
			MaxSizeMB  int    `json:"max_size_mb"`
			MaxBackups int    `json:"max_backups"`
			MaxAgeDays int    `json:"max_age_days"`
		}{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return journal.NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
}

// Register adds a store backend.
func Register(name string, f factory.Factory[journal.Store]) error {
	return stores.Register(name, f)
}

// Backends lists the registered backends.
func Backends() []string { return stores.Names() }

// Open builds the store for backend from its raw settings.
func Open(backend string, conf map[string]any) (journal.Store, error) {
	return stores.Create(factory.ModuleConfig{Type: backend, Conf: conf})
}
