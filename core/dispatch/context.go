package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/acodispatch/core/fleet"
	"github.com/kilianp07/acodispatch/core/grid"
	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/orders"
	"github.com/kilianp07/acodispatch/core/resupply"
)

// SimContext is the mutable world of one run. It is owned by a Scheduler and
// only mutated from Step.
type SimContext struct {
	Grid       model.Grid
	Physics    model.Physics
	Fleet      *fleet.Registry
	Orders     *orders.Book
	Resupply   *resupply.Network
	Blockages  *grid.BlockageIndex
	Planner    *grid.Planner
	Breakdowns model.BreakdownSchedule
	// Epoch maps simulated minute 0 to wall time for external records.
	Epoch time.Time
}

// Validate checks that every component is present and fills the planner and
// breakdown schedule when omitted.
func (c *SimContext) Validate() error {
	if c.Fleet == nil || c.Orders == nil || c.Resupply == nil {
		return errors.New("dispatch: fleet, orders and resupply are required")
	}
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return errors.New("dispatch: grid dimensions must be positive")
	}
	if !c.Grid.Contains(c.Resupply.Depot()) {
		return errors.New("dispatch: depot outside grid")
	}
	c.Physics.SetDefaults()
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if c.Blockages == nil {
		c.Blockages = grid.NewBlockageIndex(c.Grid, grid.PolicyEdge, nil)
	}
	if c.Planner == nil {
		c.Planner = grid.NewPlanner(c.Grid, c.Blockages)
	}
	if c.Breakdowns == nil {
		c.Breakdowns = make(model.BreakdownSchedule)
	}
	if c.Epoch.IsZero() {
		c.Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return nil
}

// At converts a simulated minute into wall time.
func (c *SimContext) At(minute int) time.Time {
	return c.Epoch.Add(time.Duration(minute) * time.Minute)
}
