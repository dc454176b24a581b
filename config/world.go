package config

import (
	"fmt"

	"github.com/kilianp07/acodispatch/core/fleet"
	"github.com/kilianp07/acodispatch/core/grid"
	"github.com/kilianp07/acodispatch/core/model"
)

// GridConfig describes the city lattice.
type GridConfig struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Depot  model.Cell `json:"depot"`
	// BlockagePolicy is "edge" or "point".
	BlockagePolicy string `json:"blockage_policy"`
}

// SetDefaults applies the 70x50 city with the depot at (12,8).
func (c *GridConfig) SetDefaults() {
	if c.Width == 0 && c.Height == 0 {
		c.Width, c.Height = 70, 50
		if c.Depot == (model.Cell{}) {
			c.Depot = model.Cell{X: 12, Y: 8}
		}
	}
	if c.BlockagePolicy == "" {
		c.BlockagePolicy = string(grid.PolicyEdge)
	}
}

// Validate checks the dimensions, the depot and the policy.
func (c GridConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if !c.Grid().Contains(c.Depot) {
		return fmt.Errorf("depot %s outside grid", c.Depot)
	}
	_, err := grid.ParsePolicy(c.BlockagePolicy)
	return err
}

// Grid returns the lattice bounds.
func (c GridConfig) Grid() model.Grid { return model.Grid{Width: c.Width, Height: c.Height} }

// Policy returns the parsed blockage policy.
func (c GridConfig) Policy() grid.Policy {
	p, _ := grid.ParsePolicy(c.BlockagePolicy)
	return p
}

// FleetConfig lists the vehicle classes.
type FleetConfig struct {
	Classes []model.VehicleClass `json:"classes"`
}

// SetDefaults uses the reference fleet when no class is configured.
func (c *FleetConfig) SetDefaults() {
	if len(c.Classes) == 0 {
		c.Classes = fleet.DefaultClasses()
	}
}

// Validate checks that the classes build a registry.
func (c FleetConfig) Validate() error {
	_, err := fleet.NewRegistry(c.Classes, model.Cell{})
	return err
}

// ResupplyConfig lists the intermediate tanks.
type ResupplyConfig struct {
	Tanks []model.Tank `json:"tanks"`
	// RefreshMinutes is the tank refill period.
	RefreshMinutes int `json:"refresh_minutes"`
	// NoTanks disables the default tank layout.
	NoTanks bool `json:"no_tanks"`
}

// DefaultTanks returns the two 160 m³ tanks of the reference city.
func DefaultTanks() []model.Tank {
	return []model.Tank{
		{ID: "tank-1", Location: model.Cell{X: 30, Y: 15}, Capacity: 160, Available: 160},
		{ID: "tank-2", Location: model.Cell{X: 50, Y: 40}, Capacity: 160, Available: 160},
	}
}

// SetDefaults fills the tank layout and a daily refresh.
func (c *ResupplyConfig) SetDefaults() {
	if len(c.Tanks) == 0 && !c.NoTanks {
		c.Tanks = DefaultTanks()
	}
	for i := range c.Tanks {
		if c.Tanks[i].Available == 0 {
			c.Tanks[i].Available = c.Tanks[i].Capacity
		}
	}
	if c.RefreshMinutes == 0 {
		c.RefreshMinutes = model.MinutesPerDay
	}
}

// Validate checks that every tank lies inside g.
func (c ResupplyConfig) Validate(g model.Grid) error {
	if c.RefreshMinutes <= 0 {
		return fmt.Errorf("refresh_minutes must be positive")
	}
	for _, t := range c.Tanks {
		if !g.Contains(t.Location) {
			return fmt.Errorf("tank %s outside grid", t.ID)
		}
	}
	return nil
}

// OrdersConfig holds the intake rules.
type OrdersConfig struct {
	// MinLeadMinutes rejects orders created closer than this to their deadline.
	// A negative value disables the check.
	MinLeadMinutes int `json:"min_lead_minutes"`
}

// SetDefaults applies the four hour minimum lead time.
func (c *OrdersConfig) SetDefaults() {
	if c.MinLeadMinutes == 0 {
		c.MinLeadMinutes = 240
	}
}

// Validate checks the lead time.
func (c OrdersConfig) Validate() error {
	if c.MinLeadMinutes > 30*model.MinutesPerDay {
		return fmt.Errorf("min_lead_minutes above 30 days")
	}
	return nil
}
