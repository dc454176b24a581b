package solver

import (
	"fmt"
	"math"

	"github.com/kilianp07/acodispatch/core/model"
)

// Leg is the projection of one vehicle driving from a cell to an order.
type Leg struct {
	Distance int
	Depart   int
	Arrival  int
	// Fuel is burnt with the whole load on board.
	Fuel float64
	// Reserve is the fuel still needed after the delivery to reach home.
	Reserve float64
}

// ProjectLeg estimates the trip of v to o's destination. The vehicle leaves
// at max(now, v.FreeAt).
func ProjectLeg(ph model.Physics, v VehicleSnapshot, now int, o *model.Order) Leg {
	depart := now
	if v.FreeAt > depart {
		depart = v.FreeAt
	}
	dist := v.Position.Manhattan(o.Destination)
	load := math.Max(v.Load, o.Volume)
	return Leg{
		Distance: dist,
		Depart:   depart,
		Arrival:  depart + ph.TravelMinutes(dist),
		Fuel:     ph.TripFuel(dist, v.TareKg, load),
		Reserve:  ph.TripFuel(o.Destination.Manhattan(v.Home), v.TareKg, load-o.Volume),
	}
}

// Feasible reports whether the leg respects capacity and deadline and leaves
// enough fuel to get home.
func (l Leg) Feasible(o *model.Order, capacity, fuel float64) bool {
	return capacity >= o.Volume && l.Arrival <= o.Deadline && fuel+1e-9 >= l.Fuel+l.Reserve
}

// advance moves v past the leg to o.
func (v *VehicleSnapshot) advance(l Leg, o *model.Order) {
	v.Position = o.Destination
	v.FreeAt = l.Arrival
	v.Capacity -= o.Volume
	v.Load = math.Max(v.Load-o.Volume, 0)
	v.Fuel -= l.Fuel
}

// Verify checks routes against the snapshot they were computed from: every
// vehicle exists, no order appears twice and each leg is feasible in sequence.
func Verify(ph model.Physics, routes []Route, vehicles []VehicleSnapshot, now int) error {
	byID := make(map[string]VehicleSnapshot, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}
	seen := make(map[string]bool)
	for _, r := range routes {
		v, ok := byID[r.VehicleID]
		if !ok {
			return fmt.Errorf("route for unknown vehicle %s", r.VehicleID)
		}
		for i, o := range r.Orders {
			if seen[o.ID] {
				return fmt.Errorf("order %s assigned twice", o.ID)
			}
			seen[o.ID] = true
			leg := ProjectLeg(ph, v, now, o)
			if !leg.Feasible(o, v.Capacity, v.Fuel) {
				return fmt.Errorf("vehicle %s cannot serve order %s (arrival %d deadline %d, capacity %.2f volume %.2f, fuel %.3f need %.3f)",
					v.ID, o.ID, leg.Arrival, o.Deadline, v.Capacity, o.Volume, v.Fuel, leg.Fuel+leg.Reserve)
			}
			if i < len(r.Arrivals) && r.Arrivals[i] != leg.Arrival {
				return fmt.Errorf("order %s: projected arrival %d, route says %d", o.ID, leg.Arrival, r.Arrivals[i])
			}
			v.advance(leg, o)
		}
	}
	return nil
}
