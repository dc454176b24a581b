package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/acodispatch/core/dispatch/journal"
	"github.com/kilianp07/acodispatch/core/events"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/solver"
)

// intake activates the orders created up to t.
func (s *Scheduler) intake(t int) {
	arrived := s.sim.Orders.Activate(t)
	if len(arrived) == 0 {
		return
	}
	s.flagged = true
	s.log.Debugf("minute %d: %d new orders", t, len(arrived))
}

// checkDeadlines applies the collapse policy to every open order past its
// deadline.
func (s *Scheduler) checkDeadlines(t int) error {
	for _, o := range s.sim.Orders.Overdue(t) {
		collapsesTotal.WithLabelValues(string(s.cfg.CollapsePolicy)).Inc()
		if s.cfg.CollapsePolicy == CollapseHalt {
			s.collapse = &CollapseError{OrderID: o.ID, Deadline: o.Deadline, Minute: t}
			s.publish(events.CollapseEvent{Minute: t, OrderID: o.ID, Deadline: o.Deadline})
			return s.collapse
		}
		s.queue.cancel(o.ID)
		if err := s.dropOrder(t, o); err != nil {
			return err
		}
		if err := s.sim.Orders.Discard(o, "deadline missed"); err != nil {
			return err
		}
		s.lateOrders = append(s.lateOrders, o.ID)
		s.flagged = true
		s.publish(events.CollapseEvent{Minute: t, OrderID: o.ID, Deadline: o.Deadline, Discarded: true})
		s.log.Warnf("minute %d: order %s discarded, deadline %d missed", t, o.ID, o.Deadline)
	}
	return nil
}

// candidates returns the open orders worth (re)assigning at t: every pending
// order, and scheduled orders whose delivery is not imminent and that are
// either close to their deadline or reachable sooner by an idle vehicle.
func (s *Scheduler) candidates(t int) []*model.Order {
	var idle []*model.Vehicle
	for _, v := range s.sim.Fleet.All() {
		if v.Eligible(t) {
			idle = append(idle, v)
		}
	}
	var out []*model.Order
	for _, o := range s.sim.Orders.Open() {
		if o.Status == model.OrderPending {
			out = append(out, o)
			continue
		}
		ev, ok := s.queue.lookup(o.ID)
		if !ok {
			out = append(out, o)
			continue
		}
		if ev.Minute-t <= s.cfg.ImminentMinutes {
			continue
		}
		if o.Deadline-t <= s.cfg.LookaheadMinutes || s.fasterElsewhere(t, o, ev.Minute, idle) {
			out = append(out, o)
		}
	}
	return out
}

func (s *Scheduler) fasterElsewhere(t int, o *model.Order, eventMinute int, idle []*model.Vehicle) bool {
	for _, v := range idle {
		if v.Spare() < o.Volume {
			continue
		}
		if t+s.sim.Physics.TravelMinutes(v.Position.Manhattan(o.Destination)) < eventMinute {
			return true
		}
	}
	return false
}

// solverVehicles returns the fleet as seen by the solver at t. Delivering
// vehicles join with their spare cargo and the fuel left after their
// committed route unless diversion is disabled.
func (s *Scheduler) solverVehicles(t int) []solver.VehicleSnapshot {
	var out []solver.VehicleSnapshot
	for _, v := range s.sim.Fleet.All() {
		if v.Eligible(t) {
			out = append(out, solver.SnapshotOf(v, s.sim.Resupply.Depot()))
			continue
		}
		if s.cfg.DisableDiversion || v.Status != model.VehicleDelivering || v.BrokenDown {
			continue
		}
		snap := solver.SnapshotOf(v, s.sim.Resupply.Depot())
		snap.FreeAt = t
		snap.Fuel = v.Fuel - s.project(t, v, v.Route).fuel
		if snap.Capacity <= 0 || snap.Fuel <= 0 {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// replan runs one optimisation round when something changed since the last
// one.
func (s *Scheduler) replan(t int) error {
	if !s.flagged {
		return nil
	}
	s.flagged = false

	cands := s.candidates(t)
	if len(cands) == 0 {
		return nil
	}
	previous := make(map[string]string)
	for _, o := range cands {
		if o.Status != model.OrderScheduled {
			continue
		}
		previous[o.ID] = o.VehicleID
		if err := s.unschedule(t, o); err != nil {
			return err
		}
	}

	vehicles := s.solverVehicles(t)
	start := time.Now()
	var routes []solver.Route
	if len(vehicles) > 0 {
		routes = s.solver.Solve(vehicles, cands, t)
	}
	dur := time.Since(start)
	solveDuration.Observe(dur.Seconds())
	replansTotal.Inc()
	if err := solver.Verify(s.sim.Physics, routes, vehicles, t); err != nil {
		return fmt.Errorf("%w: %v", ErrInfeasibleRoute, err)
	}

	rec := journal.Record{
		Timestamp: s.sim.At(t),
		RunID:     s.runID,
		Minute:    t,
		Cost:      solver.TotalCost(routes),
		Duration:  dur,
	}
	for _, o := range cands {
		rec.Candidates = append(rec.Candidates, o.ID)
	}

	assigned := 0
	for _, r := range routes {
		v, ok := s.sim.Fleet.Get(r.VehicleID)
		if !ok {
			return fmt.Errorf("%w: unknown vehicle %s", ErrInfeasibleRoute, r.VehicleID)
		}
		strat := s.strategyFor(v)
		committed, err := strat.apply(s, t, v, r)
		if err != nil {
			return err
		}
		assigned += len(committed)
		strategyOutcomes.WithLabelValues(strat.Name(), "committed").Add(float64(len(committed)))
		if n := len(r.Orders) - len(committed); n > 0 {
			strategyOutcomes.WithLabelValues(strat.Name(), "rejected").Add(float64(n))
		}
		rec.Routes = append(rec.Routes, s.routeRecord(strat, r, committed))
	}

	for _, o := range cands {
		if o.Status != model.OrderPending {
			continue
		}
		if vid, ok := previous[o.ID]; ok && s.reinstate(t, vid, o) {
			assigned++
			continue
		}
		rec.Unassigned = append(rec.Unassigned, o.ID)
	}
	if len(rec.Unassigned) > 0 {
		s.flagged = true
	}
	sort.Strings(rec.Unassigned)

	if s.journal != nil {
		if err := s.journal.Append(context.Background(), rec); err != nil {
			s.log.Errorf("journal append: %v", err)
		}
	}
	rr := metrics.ReplanRecord{
		RunID:      s.runID,
		Minute:     t,
		Candidates: len(cands),
		Assigned:   assigned,
		Vehicles:   len(vehicles),
		Cost:       rec.Cost,
		Duration:   dur,
		Time:       rec.Timestamp,
	}
	if r, ok := s.sink.(metrics.ReplanRecorder); ok {
		if err := r.RecordReplan(rr); err != nil {
			s.log.Errorf("record replan: %v", err)
		}
	}
	s.publish(events.ReplanEvent{Record: rr})
	s.log.Debugw("replan", map[string]any{
		"minute":     t,
		"candidates": len(cands),
		"assigned":   assigned,
		"vehicles":   len(vehicles),
		"cost":       rec.Cost,
	})
	return nil
}

// reinstate puts a withdrawn order back on the vehicle that carried it when
// the round found no better home for it.
func (s *Scheduler) reinstate(t int, vehicleID string, o *model.Order) bool {
	v, ok := s.sim.Fleet.Get(vehicleID)
	if !ok || v.BrokenDown || v.Status == model.VehicleReturning {
		return false
	}
	committed, err := s.insertion.apply(s, t, v, solver.Route{VehicleID: v.ID, Orders: []*model.Order{o}})
	if err != nil {
		s.log.Warnf("minute %d: reinstate %s on %s: %v", t, o.ID, v.ID, err)
		return false
	}
	if len(committed) == 0 {
		return false
	}
	strategyOutcomes.WithLabelValues(s.insertion.Name(), "reinstated").Inc()
	return true
}

func (s *Scheduler) routeRecord(strat RouteStrategy, r solver.Route, committed []*model.Order) journal.RouteRecord {
	rr := journal.RouteRecord{
		VehicleID: r.VehicleID,
		Strategy:  strat.Name(),
		Arrivals:  append([]int(nil), r.Arrivals...),
	}
	for _, o := range r.Orders {
		rr.Orders = append(rr.Orders, o.ID)
	}
	for _, o := range committed {
		rr.Committed = append(rr.Committed, o.ID)
	}
	return rr
}
