package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/acodispatch/api"
	"github.com/kilianp07/acodispatch/core/dispatch"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/solver"
	"github.com/kilianp07/acodispatch/infra/mqtt"
)

type Config struct {
	Grid       GridConfig      `json:"grid"`
	Fleet      FleetConfig     `json:"fleet"`
	Resupply   ResupplyConfig  `json:"resupply"`
	Orders     OrdersConfig    `json:"orders"`
	Physics    model.Physics   `json:"physics"`
	Simulation dispatch.Config `json:"simulation"`
	Solver     solver.Params   `json:"solver"`
	Metrics    metrics.Config  `json:"metrics"`
	MQTT       mqtt.Config     `json:"mqtt"`
	Journal    JournalConfig   `json:"journal"`
	API        api.Config      `json:"api"`
	// Scenario is the path of the YAML file with orders, blockages and
	// breakdowns.
	Scenario string `json:"scenario"`
}

// Load reads the configuration file at path, applies K_ environment
// overrides, fills defaults and validates every section. An empty path loads
// the defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the reference configuration.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Grid.SetDefaults()
	c.Fleet.SetDefaults()
	c.Resupply.SetDefaults()
	c.Orders.SetDefaults()
	c.Physics.SetDefaults()
	c.Simulation.SetDefaults()
	c.Solver.SetDefaults()
	c.MQTT.SetDefaults()
	c.Journal.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := c.Fleet.Validate(); err != nil {
		return fmt.Errorf("fleet: %w", err)
	}
	if err := c.Resupply.Validate(c.Grid.Grid()); err != nil {
		return fmt.Errorf("resupply: %w", err)
	}
	if err := c.Orders.Validate(); err != nil {
		return fmt.Errorf("orders: %w", err)
	}
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if err := c.Journal.Validate(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
