package events

import (
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
)

// DeliveredEvent is published when a delivery event fires.
type DeliveredEvent struct {
	Record metrics.DeliveryRecord
}

// ReplanEvent is published after each optimisation round.
type ReplanEvent struct {
	Record metrics.ReplanRecord
}

// BreakdownEvent is published when a vehicle is taken out of service.
type BreakdownEvent struct {
	Record metrics.BreakdownRecord
}

// CollapseEvent is published when an order is past its deadline. Discarded is
// true when the run continues without the order.
type CollapseEvent struct {
	Minute    int
	OrderID   string
	Deadline  int
	Discarded bool
}

// FuelExhaustedEvent is published when a moving vehicle runs out of fuel.
// Shortfall is the fuel the step needed beyond what was left.
type FuelExhaustedEvent struct {
	Minute    int
	VehicleID string
	Position  model.Cell
	Shortfall float64
}

// SnapshotEvent carries the periodic simulation snapshot.
type SnapshotEvent struct {
	Snapshot metrics.Snapshot
}
