package dispatch

import (
	"fmt"

	"github.com/kilianp07/acodispatch/core/model"
)

// CollapsePolicy decides what happens when an order misses its deadline.
type CollapsePolicy string

const (
	// CollapseHalt stops the run with ErrCollapse.
	CollapseHalt CollapsePolicy = "halt"
	// CollapseDiscard discards the late order and keeps running.
	CollapseDiscard CollapsePolicy = "discard"
)

// Config holds the scheduler settings.
type Config struct {
	// HorizonMinutes is the number of simulated minutes Run executes.
	HorizonMinutes int `json:"horizon_minutes"`
	// LookaheadMinutes forces re-examination of scheduled orders whose
	// deadline is this close.
	LookaheadMinutes int `json:"lookahead_minutes"`
	// ImminentMinutes excludes orders whose delivery is this close from replanning.
	ImminentMinutes int `json:"imminent_minutes"`
	// ServiceMinutes keeps a vehicle busy after a delivery run and a resupply.
	ServiceMinutes int `json:"service_minutes"`
	// SnapshotEvery emits an observability snapshot every N minutes.
	SnapshotEvery  int            `json:"snapshot_every"`
	CollapsePolicy CollapsePolicy `json:"collapse_policy"`
	// DisableDiversion keeps Delivering vehicles out of replanning.
	DisableDiversion bool `json:"disable_diversion"`
	// StopWhenIdle ends Run early once every order is settled and the fleet is idle.
	StopWhenIdle bool `json:"stop_when_idle"`
	// Penalties maps breakdown severity codes to downtime minutes.
	Penalties map[string]int `json:"penalties"`
}

// SetDefaults applies the reference values: one week horizon, 60 minute
// lookahead, 15 minute service time and hourly snapshots.
func (c *Config) SetDefaults() {
	if c.HorizonMinutes == 0 {
		c.HorizonMinutes = 7 * model.MinutesPerDay
	}
	if c.LookaheadMinutes == 0 {
		c.LookaheadMinutes = 60
	}
	if c.ImminentMinutes == 0 {
		c.ImminentMinutes = 1
	}
	if c.ServiceMinutes == 0 {
		c.ServiceMinutes = 15
	}
	if c.SnapshotEvery == 0 {
		c.SnapshotEvery = 60
	}
	if c.CollapsePolicy == "" {
		c.CollapsePolicy = CollapseHalt
	}
	if c.Penalties == nil {
		c.Penalties = make(map[string]int)
	}
	for sev, minutes := range model.DefaultPenalties() {
		if _, ok := c.Penalties[string(sev)]; !ok {
			c.Penalties[string(sev)] = minutes
		}
	}
}

// Validate checks the ranges.
func (c Config) Validate() error {
	if c.HorizonMinutes <= 0 {
		return fmt.Errorf("horizon_minutes must be positive")
	}
	if c.LookaheadMinutes < 0 || c.ImminentMinutes < 0 || c.ServiceMinutes < 0 {
		return fmt.Errorf("lookahead, imminent and service minutes must be non-negative")
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot_every must be non-negative")
	}
	switch c.CollapsePolicy {
	case CollapseHalt, CollapseDiscard:
	default:
		return fmt.Errorf("unknown collapse policy %q", c.CollapsePolicy)
	}
	for sev, minutes := range c.Penalties {
		if _, err := model.ParseSeverity(sev); err != nil {
			return err
		}
		if minutes < 0 {
			return fmt.Errorf("penalty for %s must be non-negative", sev)
		}
	}
	return nil
}

func (c Config) penalty(sev model.Severity) int {
	if m, ok := c.Penalties[string(sev)]; ok {
		return m
	}
	return model.DefaultPenalties()[sev]
}
