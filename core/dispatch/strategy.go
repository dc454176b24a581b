package dispatch

import (
	"fmt"
	"math"

	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/solver"
)

// RouteStrategy turns a solver route into committed work for one vehicle.
// It returns the route orders it committed.
type RouteStrategy interface {
	Name() string
	apply(s *Scheduler, t int, v *model.Vehicle, r solver.Route) ([]*model.Order, error)
}

// ReplaceStrategy makes the solver route the vehicle's whole route. Orders
// previously on the vehicle but absent from the route go back to pending.
type ReplaceStrategy struct{}

func (ReplaceStrategy) Name() string { return "replace" }

func (ReplaceStrategy) apply(s *Scheduler, t int, v *model.Vehicle, r solver.Route) ([]*model.Order, error) {
	keep := make(map[string]bool, len(r.Orders))
	for _, o := range r.Orders {
		keep[o.ID] = true
	}
	for _, o := range append([]*model.Order(nil), v.Route...) {
		if !keep[o.ID] {
			if err := s.unschedule(t, o); err != nil {
				return nil, err
			}
		}
	}
	if err := s.commit(t, v, r.Orders); err != nil {
		return nil, err
	}
	return r.Orders, nil
}

// InsertionStrategy inserts each solver order into a vehicle's existing route
// at the position minimising the final arrival, keeping every deadline,
// the spare cargo and the fuel on board. Orders with no such position stay
// pending.
type InsertionStrategy struct{}

func (InsertionStrategy) Name() string { return "insertion" }

func (InsertionStrategy) apply(s *Scheduler, t int, v *model.Vehicle, r solver.Route) ([]*model.Order, error) {
	current := append([]*model.Order(nil), v.Route...)
	var committed []*model.Order
	for _, o := range r.Orders {
		var best []*model.Order
		bestArrival := math.MaxInt
		for pos := 0; pos <= len(current); pos++ {
			cand := insertAt(current, pos, o)
			p := s.project(t, v, cand)
			if !p.feasible(v, cand) {
				continue
			}
			if last := p.arrivals[len(p.arrivals)-1]; last < bestArrival {
				best, bestArrival = cand, last
			}
		}
		if best == nil {
			continue
		}
		current = best
		committed = append(committed, o)
	}
	if len(committed) == 0 {
		return nil, nil
	}
	if err := s.commit(t, v, current); err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *Scheduler) strategyFor(v *model.Vehicle) RouteStrategy {
	if v.Status == model.VehicleDelivering && !s.cfg.DisableDiversion {
		return s.insertion
	}
	return s.replace
}

func insertAt(route []*model.Order, pos int, o *model.Order) []*model.Order {
	out := make([]*model.Order, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, o)
	return append(out, route[pos:]...)
}

// routePlan is the Manhattan projection of a vehicle serving orders in turn.
type routePlan struct {
	departs  []int
	arrivals []int
	fuel     float64
	// reserve is the fuel left needed to reach the depot after the last stop.
	reserve float64
}

// project estimates departures and arrivals for v visiting orders from its
// current position. Arrivals are never before t+1. Fuel is burnt with the
// cargo actually on board, which shrinks at every delivery.
func (s *Scheduler) project(t int, v *model.Vehicle, orders []*model.Order) routePlan {
	depart := t
	if v.Status == model.VehicleAvailable && v.FreeAt > t {
		depart = v.FreeAt
	}
	p := routePlan{
		departs:  make([]int, len(orders)),
		arrivals: make([]int, len(orders)),
	}
	pos := v.Position
	load := v.Cargo
	for i, o := range orders {
		d := pos.Manhattan(o.Destination)
		arrival := depart + s.sim.Physics.TravelMinutes(d)
		if arrival < t+1 {
			arrival = t + 1
		}
		p.departs[i] = depart
		p.arrivals[i] = arrival
		p.fuel += s.sim.Physics.TripFuel(d, v.TareKg, math.Max(load, 0))
		load -= o.Volume
		depart = arrival
		pos = o.Destination
	}
	p.reserve = s.sim.Physics.TripFuel(pos.Manhattan(s.sim.Resupply.Depot()), v.TareKg, math.Max(load, 0))
	return p
}

// feasible reports whether v can serve orders in turn and still reach the
// depot. Any resupply stop chosen on return is no farther than the depot.
func (p routePlan) feasible(v *model.Vehicle, orders []*model.Order) bool {
	load := 0.0
	for i, o := range orders {
		if p.arrivals[i] > o.Deadline {
			return false
		}
		load += o.Volume
	}
	return load <= v.Cargo+1e-9 && p.fuel+p.reserve <= v.Fuel+1e-9
}

// buildLegs plans the grid path through every order destination, leg i
// leaving at departs[i].
func (s *Scheduler) buildLegs(v *model.Vehicle, orders []*model.Order, departs []int) ([]model.Cell, []int, error) {
	var path []model.Cell
	ends := make([]int, len(orders))
	pos := v.Position
	for i, o := range orders {
		seg, err := s.sim.Planner.BuildPath(pos, o.Destination, departs[i])
		if err != nil {
			return nil, nil, fmt.Errorf("vehicle %s to order %s: %w", v.ID, o.ID, err)
		}
		path = append(path, seg...)
		ends[i] = len(path)
		pos = o.Destination
	}
	return path, ends, nil
}

// commit makes orders the route of v: it plans the path, schedules one
// delivery event per order and marks the vehicle delivering until the
// last arrival.
func (s *Scheduler) commit(t int, v *model.Vehicle, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	p := s.project(t, v, orders)
	path, ends, err := s.buildLegs(v, orders, p.departs)
	if err != nil {
		return err
	}
	for i, o := range orders {
		if o.Status == model.OrderPending {
			if err := s.sim.Orders.Transition(o, model.OrderScheduled); err != nil {
				return err
			}
		}
		o.VehicleID = v.ID
		s.queue.schedule(model.DeliveryEvent{Minute: p.arrivals[i], VehicleID: v.ID, OrderID: o.ID})
	}
	v.Route = append([]*model.Order(nil), orders...)
	v.Path = path
	v.Step = 0
	v.LegEnds = ends
	v.Status = model.VehicleDelivering
	v.FreeAt = p.arrivals[len(p.arrivals)-1]
	return nil
}

// reroute replans the path of a delivering vehicle from its current cell,
// keeping the committed event minutes.
func (s *Scheduler) reroute(t int, v *model.Vehicle) error {
	departs := make([]int, len(v.Route))
	depart := t
	for i, o := range v.Route {
		departs[i] = depart
		if ev, ok := s.queue.lookup(o.ID); ok {
			depart = ev.Minute
		}
	}
	path, ends, err := s.buildLegs(v, v.Route, departs)
	if err != nil {
		return err
	}
	v.Path = path
	v.Step = 0
	v.LegEnds = ends
	if n := len(v.Route); n > 0 {
		if ev, ok := s.queue.lookup(v.Route[n-1].ID); ok {
			v.FreeAt = ev.Minute
		}
	}
	return nil
}

// dropOrder removes o from the route of the vehicle carrying it. A
// delivering vehicle left without orders becomes available where it stands.
func (s *Scheduler) dropOrder(t int, o *model.Order) error {
	if o.VehicleID == "" {
		return nil
	}
	v, ok := s.sim.Fleet.Get(o.VehicleID)
	if !ok {
		return nil
	}
	i := routeIndex(v, o.ID)
	if i < 0 {
		return nil
	}
	removeStop(v, i)
	if v.Status != model.VehicleDelivering {
		return nil
	}
	if len(v.Route) == 0 {
		v.Status = model.VehicleAvailable
		v.ClearPath()
		v.FreeAt = t
		return nil
	}
	return s.reroute(t, v)
}

// unschedule withdraws a scheduled order from its vehicle and makes it pending.
func (s *Scheduler) unschedule(t int, o *model.Order) error {
	s.queue.cancel(o.ID)
	if err := s.dropOrder(t, o); err != nil {
		return err
	}
	if o.Status == model.OrderScheduled {
		return s.sim.Orders.Transition(o, model.OrderPending)
	}
	return nil
}
