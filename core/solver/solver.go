// Package solver assigns pending orders to vehicles with an ant colony
// optimiser for capacitated routing with deadlines and fuel budgets.
package solver

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/acodispatch/core/logger"
	"github.com/kilianp07/acodispatch/core/model"
)

// minCost keeps Q/cost finite for zero-distance solutions.
const minCost = 1e-6

// VehicleSnapshot is the solver's read-only view of a vehicle.
type VehicleSnapshot struct {
	ID       string
	Position model.Cell
	// Capacity is the cargo on board not promised to other orders.
	Capacity float64
	// Load is the cargo carried while driving, promised or not.
	Load   float64
	TareKg float64
	Fuel   float64
	FreeAt int
	// Home is a stop the vehicle can always resupply at. Every leg keeps
	// enough fuel to reach it.
	Home model.Cell
}

// SnapshotOf captures the solver view of v returning to home.
func SnapshotOf(v *model.Vehicle, home model.Cell) VehicleSnapshot {
	return VehicleSnapshot{
		ID:       v.ID,
		Position: v.Position,
		Capacity: v.Spare(),
		Load:     v.Cargo,
		TareKg:   v.TareKg,
		Fuel:     v.Fuel,
		FreeAt:   v.FreeAt,
		Home:     home,
	}
}

// Route is the ordered work assigned to one vehicle.
type Route struct {
	VehicleID string
	Orders    []*model.Order
	// Arrivals[i] is the projected arrival minute at Orders[i].
	Arrivals []int
	Distance int
	Fuel     float64
	Cost     float64
}

// TotalCost sums route costs.
func TotalCost(routes []Route) float64 {
	total := 0.0
	for _, r := range routes {
		total += r.Cost
	}
	return total
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the solver logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Solver) { s.log = logger.OrNop(l) }
}

// WithRand replaces the seeded random source.
func WithRand(r *rand.Rand) Option {
	return func(s *Solver) { s.rng = r }
}

// Solver runs the colony. It is safe for sequential reuse; concurrent Solve
// calls are serialised.
type Solver struct {
	params  Params
	physics model.Physics
	log     logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Solver. Zero parameters are replaced by defaults.
func New(params Params, physics model.Physics, opts ...Option) *Solver {
	params.SetDefaults()
	physics.SetDefaults()
	s := &Solver{
		params:  params,
		physics: physics,
		log:     logger.NopLogger{},
		rng:     rand.New(rand.NewSource(params.Seed)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Params returns the effective parameters.
func (s *Solver) Params() Params { return s.params }

// Physics returns the effective physics constants.
func (s *Solver) Physics() model.Physics { return s.physics }

type step struct {
	vehicle int
	order   int
	leg     Leg
}

type antRoute struct {
	orders   []int
	arrivals []int
	distance int
	fuel     float64
}

type antSolution struct {
	routes   []antRoute
	pairs    [][2]int
	assigned int
	cost     float64
}

func (a antSolution) betterThan(b antSolution) bool {
	if a.assigned != b.assigned {
		return a.assigned > b.assigned
	}
	return a.cost < b.cost
}

// Solve assigns orders to vehicles at minute now and returns one route per
// vehicle that received work. Every returned assignment is feasible for
// capacity, deadline and fuel. An empty result means nothing could be placed.
func (s *Solver) Solve(vehicles []VehicleSnapshot, orders []*model.Order, now int) []Route {
	if len(vehicles) == 0 || len(orders) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	pher := NewPheromone(len(vehicles), len(orders), 1)
	var best antSolution
	found := false

	for it := 0; it < s.params.Iterations; it++ {
		sols := s.runAnts(pher, vehicles, orders, now)

		pher.Evaporate(s.params.Rho)
		for _, sol := range sols {
			if sol.assigned == 0 {
				continue
			}
			amount := s.params.Q / math.Max(sol.cost, minCost)
			for _, p := range sol.pairs {
				pher.Deposit(p[0], p[1], amount)
			}
			if !found || sol.betterThan(best) {
				best = sol
				found = true
			}
		}
	}

	if !found {
		s.log.Debugw("aco solve found no assignment", map[string]any{
			"vehicles": len(vehicles), "orders": len(orders), "minute": now,
		})
		return nil
	}
	routes := s.materialise(best, vehicles, orders)
	s.log.Debugw("aco solve", map[string]any{
		"vehicles": len(vehicles),
		"orders":   len(orders),
		"assigned": best.assigned,
		"cost":     best.cost,
		"minute":   now,
		"elapsed":  time.Since(start).String(),
	})
	return routes
}

// runAnts builds one solution per ant. Ants only read the pheromone matrix,
// so they run concurrently; each owns a private random source.
func (s *Solver) runAnts(pher *Pheromone, vehicles []VehicleSnapshot, orders []*model.Order, now int) []antSolution {
	sols := make([]antSolution, s.params.Ants)
	rngs := make([]*rand.Rand, s.params.Ants)
	for a := range rngs {
		rngs[a] = rand.New(rand.NewSource(s.rng.Int63()))
	}
	var g errgroup.Group
	g.SetLimit(s.params.Workers)
	for a := 0; a < s.params.Ants; a++ {
		g.Go(func() error {
			sols[a] = s.construct(rngs[a], pher, vehicles, orders, now)
			return nil
		})
	}
	_ = g.Wait()
	return sols
}

func (s *Solver) construct(rng *rand.Rand, pher *Pheromone, vehicles []VehicleSnapshot, orders []*model.Order, now int) antSolution {
	local := make([]VehicleSnapshot, len(vehicles))
	copy(local, vehicles)
	routes := make([]antRoute, len(vehicles))
	unassigned := make([]int, len(orders))
	for i := range unassigned {
		unassigned[i] = i
	}

	sol := antSolution{}
	candidates := make([]step, 0, len(vehicles)*len(orders))
	weights := make([]float64, 0, cap(candidates))

	for len(unassigned) > 0 {
		candidates = candidates[:0]
		weights = weights[:0]
		total := 0.0
		for vi := range local {
			v := &local[vi]
			for _, oi := range unassigned {
				o := orders[oi]
				leg := ProjectLeg(s.physics, *v, now, o)
				if !leg.Feasible(o, v.Capacity, v.Fuel) {
					continue
				}
				w := s.desirability(pher.At(vi, oi), leg.Distance, v.FreeAt, now)
				candidates = append(candidates, step{vehicle: vi, order: oi, leg: leg})
				weights = append(weights, w)
				total += w
			}
		}
		if len(candidates) == 0 {
			break
		}
		pick := roulette(rng, weights, total)
		c := candidates[pick]

		o := orders[c.order]
		local[c.vehicle].advance(c.leg, o)

		r := &routes[c.vehicle]
		r.orders = append(r.orders, c.order)
		r.arrivals = append(r.arrivals, c.leg.Arrival)
		r.distance += c.leg.Distance
		r.fuel += c.leg.Fuel
		sol.pairs = append(sol.pairs, [2]int{c.vehicle, c.order})
		sol.assigned++

		unassigned = remove(unassigned, c.order)
	}

	sol.routes = routes
	for _, r := range routes {
		sol.cost += s.physics.RouteCost(r.distance, r.fuel)
	}
	return sol
}

func (s *Solver) desirability(tau float64, dist, freeAt, now int) float64 {
	delay := math.Max(0, float64(freeAt-now))
	eta := 1 / float64(dist+1) * 1 / (1 + delay)
	return math.Pow(tau, s.params.Alpha) * math.Pow(eta, s.params.Beta)
}

// roulette samples an index proportionally to weights. When all weights are
// zero the first index is returned.
func roulette(rng *rand.Rand, weights []float64, total float64) int {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	r := rng.Float64() * total
	acc := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if r < acc {
			return i
		}
	}
	return last
}

func remove(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func (s *Solver) materialise(sol antSolution, vehicles []VehicleSnapshot, orders []*model.Order) []Route {
	var out []Route
	for vi, r := range sol.routes {
		if len(r.orders) == 0 {
			continue
		}
		route := Route{
			VehicleID: vehicles[vi].ID,
			Arrivals:  append([]int(nil), r.arrivals...),
			Distance:  r.distance,
			Fuel:      r.fuel,
			Cost:      s.physics.RouteCost(r.distance, r.fuel),
		}
		for _, oi := range r.orders {
			route.Orders = append(route.Orders, orders[oi])
		}
		out = append(out, route)
	}
	return out
}
