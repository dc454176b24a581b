package dispatch

import (
	"fmt"
	"math"

	"github.com/kilianp07/acodispatch/core/events"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
)

// fireEvents delivers every order whose event falls on minute t.
func (s *Scheduler) fireEvents(t int) error {
	for _, ev := range s.queue.pop(t) {
		v, ok := s.sim.Fleet.Get(ev.VehicleID)
		if !ok {
			s.log.Warnf("minute %d: event for unknown vehicle %s dropped", t, ev.VehicleID)
			continue
		}
		o, err := s.sim.Orders.Get(ev.OrderID)
		if err != nil {
			s.log.Warnf("minute %d: %v", t, err)
			continue
		}
		if o.Status != model.OrderScheduled || o.VehicleID != v.ID {
			s.log.Warnf("minute %d: stale event for order %s (%s on %q)", t, o.ID, o.Status, o.VehicleID)
			continue
		}
		if err := s.deliver(t, v, o); err != nil {
			return err
		}
	}
	return nil
}

// deliver completes o at minute t. Events are placed on the Manhattan
// projection, so when the planned path is longer (a detour around a
// blockage) the steps still left before o are all taken in minute t.
func (s *Scheduler) deliver(t int, v *model.Vehicle, o *model.Order) error {
	i := routeIndex(v, o.ID)
	if i < 0 {
		s.log.Warnf("minute %d: order %s not on route of %s", t, o.ID, v.ID)
		return nil
	}
	if i < len(v.LegEnds) {
		for v.Step < v.LegEnds[i] && v.Step < len(v.Path) {
			s.advance(t, v)
		}
	}
	v.Position = o.Destination

	if v.Cargo+1e-9 < o.Volume {
		return fmt.Errorf("%w: vehicle %s carries %.2f, order %s needs %.2f",
			ErrNegativeCargo, v.ID, v.Cargo, o.ID, o.Volume)
	}
	v.Cargo -= o.Volume
	if v.Cargo < 0 {
		v.Cargo = 0
	}
	if err := s.sim.Orders.Transition(o, model.OrderDelivered); err != nil {
		return err
	}
	o.DeliveredAt = t
	removeStop(v, i)

	rec := metrics.DeliveryRecord{
		RunID:     s.runID,
		OrderID:   o.ID,
		ParentID:  o.ParentID,
		VehicleID: v.ID,
		Minute:    t,
		Deadline:  o.Deadline,
		Slack:     o.Deadline - t,
		Volume:    o.Volume,
		Time:      s.sim.At(t),
	}
	s.deliveries = append(s.deliveries, rec)
	deliveriesTotal.Inc()
	if r, ok := s.sink.(metrics.DeliveryRecorder); ok {
		if err := r.RecordDelivery(rec); err != nil {
			s.log.Errorf("record delivery %s: %v", o.ID, err)
		}
	}
	s.publish(events.DeliveredEvent{Record: rec})
	s.log.Debugf("minute %d: %s delivered %s (%.1f m3, slack %d)", t, v.ID, o.ID, o.Volume, rec.Slack)

	if len(v.Route) == 0 {
		return s.startReturn(t, v)
	}
	return nil
}

// startReturn sends an emptied vehicle to the nearest stop able to restore
// its cargo.
func (s *Scheduler) startReturn(t int, v *model.Vehicle) error {
	deficit := v.Capacity - v.Cargo
	stop := s.sim.Resupply.SelectReturn(v.Position, deficit)
	path, err := s.sim.Planner.BuildPath(v.Position, stop.Location, t)
	if err != nil {
		return fmt.Errorf("vehicle %s return to %s: %w", v.ID, stop.Location, err)
	}
	if err := s.sim.Resupply.Reserve(stop.TankID, deficit); err != nil {
		return fmt.Errorf("vehicle %s: %w", v.ID, err)
	}
	v.Path = path
	v.Step = 0
	v.LegEnds = nil
	v.TankID = stop.TankID
	v.Deficit = deficit
	v.Status = model.VehicleReturning
	v.FreeAt = t + s.cfg.ServiceMinutes
	target := "depot"
	if !stop.IsDepot() {
		target = stop.TankID
	}
	s.log.Debugf("minute %d: %s returning to %s (%d steps, deficit %.1f)", t, v.ID, target, len(path), deficit)
	return nil
}

// moveVehicles advances every vehicle one step and completes resupplies.
func (s *Scheduler) moveVehicles(t int) error {
	for _, v := range s.sim.Fleet.All() {
		if v.HasPendingSteps() {
			s.advance(t, v)
		}
		if v.Status == model.VehicleReturning && !v.HasPendingSteps() {
			if err := s.completeResupply(t, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scheduler) advance(t int, v *model.Vehicle) {
	fuel := s.sim.Physics.StepFuel(v.TareKg, v.Cargo)
	if fuel > v.Fuel+1e-9 {
		s.runDry(t, v, fuel-v.Fuel)
		v.Fuel = 0
	} else {
		v.Fuel = math.Max(v.Fuel-fuel, 0)
	}
	v.FuelUsed += fuel
	v.Distance++
	v.Position = v.Path[v.Step]
	v.Step++
}

// runDry records a step taken without enough fuel. The vehicle keeps moving;
// the overrun accumulates on the vehicle and is reported once per trip.
func (s *Scheduler) runDry(t int, v *model.Vehicle, short float64) {
	v.FuelShortfall += short
	if s.dry[v.ID] {
		return
	}
	s.dry[v.ID] = true
	s.dryRuns = append(s.dryRuns, v.ID)
	fuelExhausted.Inc()
	s.log.Errorf("minute %d: vehicle %s ran out of fuel at %s (short %.3f)", t, v.ID, v.Position, short)
	s.publish(events.FuelExhaustedEvent{Minute: t, VehicleID: v.ID, Position: v.Position, Shortfall: short})
}

func (s *Scheduler) completeResupply(t int, v *model.Vehicle) error {
	if err := s.sim.Resupply.Deplete(v.TankID, v.Deficit); err != nil {
		return fmt.Errorf("vehicle %s: %w", v.ID, err)
	}
	v.Cargo = v.Capacity
	v.Fuel = v.FuelCapacity
	delete(s.dry, v.ID)
	v.TankID = ""
	v.Deficit = 0
	v.Status = model.VehicleAvailable
	v.ClearPath()
	v.FreeAt = t + s.cfg.ServiceMinutes
	s.log.Debugf("minute %d: %s resupplied at %s, free at %d", t, v.ID, v.Position, v.FreeAt)
	return nil
}

func routeIndex(v *model.Vehicle, orderID string) int {
	for i, o := range v.Route {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}

// removeStop drops Route[i] and its leg end. The path is left untouched.
func removeStop(v *model.Vehicle, i int) {
	v.Route = append(v.Route[:i:i], v.Route[i+1:]...)
	if i < len(v.LegEnds) {
		v.LegEnds = append(v.LegEnds[:i:i], v.LegEnds[i+1:]...)
	}
}
