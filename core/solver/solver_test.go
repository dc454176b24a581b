package solver

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/acodispatch/core/model"
)

func truck(id string, pos model.Cell, capacity float64) VehicleSnapshot {
	return VehicleSnapshot{ID: id, Position: pos, Capacity: capacity, Load: capacity, TareKg: 7500, Fuel: 25}
}

func TestSolveSingleOrder(t *testing.T) {
	ph := model.DefaultPhysics()
	ph.MinutesPerUnit = 2
	s := New(DefaultParams(), ph)

	order := &model.Order{ID: "1", Deadline: 200, Destination: model.Cell{X: 5, Y: 3}, Volume: 10}
	routes := s.Solve([]VehicleSnapshot{truck("TA01", model.Cell{}, 25)}, []*model.Order{order}, 0)

	require.Len(t, routes, 1)
	r := routes[0]
	assert.Equal(t, "TA01", r.VehicleID)
	require.Len(t, r.Orders, 1)
	assert.Same(t, order, r.Orders[0])
	assert.Equal(t, 8, r.Distance)
	assert.LessOrEqual(t, r.Arrivals[0], 16)
	assert.LessOrEqual(t, r.Arrivals[0], order.Deadline)
	assert.Equal(t, model.OrderPending, order.Status, "solver must not mutate orders")
}

func TestSolveInfeasibleReturnsEmpty(t *testing.T) {
	s := New(DefaultParams(), model.DefaultPhysics())
	vehicles := []VehicleSnapshot{truck("TD01", model.Cell{}, 5)}

	tooBig := &model.Order{ID: "big", Deadline: 1000, Destination: model.Cell{X: 1}, Volume: 10}
	tooLate := &model.Order{ID: "late", Deadline: 3, Destination: model.Cell{X: 10}, Volume: 1}
	assert.Empty(t, s.Solve(vehicles, []*model.Order{tooBig, tooLate}, 0))

	dry := vehicles[0]
	dry.Fuel = 0.01
	far := &model.Order{ID: "far", Deadline: 1000, Destination: model.Cell{X: 40}, Volume: 1}
	assert.Empty(t, s.Solve([]VehicleSnapshot{dry}, []*model.Order{far}, 0))

	assert.Empty(t, s.Solve(nil, []*model.Order{far}, 0))
	assert.Empty(t, s.Solve(vehicles, nil, 0))
}

func TestProjectLegCarriesLoadAndReserve(t *testing.T) {
	ph := model.DefaultPhysics()
	v := truck("TA01", model.Cell{}, 25)
	o := &model.Order{ID: "1", Deadline: 200, Destination: model.Cell{X: 10, Y: 10}, Volume: 1}

	leg := ProjectLeg(ph, v, 0, o)
	assert.Equal(t, 20, leg.Distance)
	assert.Equal(t, 24, leg.Arrival)
	// 7.5t tare + 25m3 * 0.5 out, one cubic metre lighter back.
	assert.InDelta(t, 20*20.0/180, leg.Fuel, 1e-9)
	assert.InDelta(t, 20*19.5/180, leg.Reserve, 1e-9)

	v.Fuel = 3
	assert.False(t, leg.Feasible(o, v.Capacity, v.Fuel), "no fuel left to get home")
	v.Fuel = 5
	assert.True(t, leg.Feasible(o, v.Capacity, v.Fuel))
}

func TestSolveKeepsFuelForHome(t *testing.T) {
	s := New(DefaultParams(), model.DefaultPhysics())
	o := &model.Order{ID: "1", Deadline: 200, Destination: model.Cell{X: 10, Y: 10}, Volume: 1}

	v := truck("TA01", model.Cell{}, 25)
	v.Fuel = 3
	assert.Empty(t, s.Solve([]VehicleSnapshot{v}, []*model.Order{o}, 0))

	// The same fuel is enough when home is the destination itself.
	v.Home = o.Destination
	routes := s.Solve([]VehicleSnapshot{v}, []*model.Order{o}, 0)
	require.Len(t, routes, 1)
	require.NoError(t, Verify(s.Physics(), routes, []VehicleSnapshot{v}, 0))
}

func TestSolvePrefersCheaperVehicle(t *testing.T) {
	s := New(DefaultParams(), model.DefaultPhysics())
	near := truck("near", model.Cell{X: 9, Y: 9}, 25)
	far := truck("far", model.Cell{X: 60, Y: 40}, 25)
	o := &model.Order{ID: "1", Deadline: 500, Destination: model.Cell{X: 10, Y: 10}, Volume: 5}

	routes := s.Solve([]VehicleSnapshot{far, near}, []*model.Order{o}, 0)
	require.Len(t, routes, 1)
	assert.Equal(t, "near", routes[0].VehicleID)
}

func TestSolveAccountsForFreeTime(t *testing.T) {
	s := New(DefaultParams(), model.DefaultPhysics())
	busy := truck("busy", model.Cell{}, 25)
	busy.FreeAt = 100
	o := &model.Order{ID: "1", Deadline: 50, Destination: model.Cell{X: 2}, Volume: 5}
	assert.Empty(t, s.Solve([]VehicleSnapshot{busy}, []*model.Order{o}, 0))
}

func randomInstance(rng *rand.Rand, nv, no int) ([]VehicleSnapshot, []*model.Order) {
	caps := []float64{25, 15, 10, 5}
	tares := []float64{7500, 5000, 4000, 3000}
	vehicles := make([]VehicleSnapshot, nv)
	for i := range vehicles {
		k := i % len(caps)
		vehicles[i] = VehicleSnapshot{
			ID:       fmt.Sprintf("V%02d", i),
			Position: model.Cell{X: rng.Intn(70), Y: rng.Intn(50)},
			Capacity: caps[k],
			Load:     caps[k],
			TareKg:   tares[k],
			Fuel:     5 + rng.Float64()*20,
			FreeAt:   rng.Intn(30),
			Home:     model.Cell{X: 12, Y: 8},
		}
	}
	orders := make([]*model.Order, no)
	for i := range orders {
		orders[i] = &model.Order{
			ID:          fmt.Sprintf("O%02d", i),
			Deadline:    20 + rng.Intn(200),
			Destination: model.Cell{X: rng.Intn(70), Y: rng.Intn(50)},
			Volume:      1 + float64(rng.Intn(20)),
		}
	}
	return vehicles, orders
}

func TestSolveAlwaysFeasible(t *testing.T) {
	ph := model.DefaultPhysics()
	for seed := int64(1); seed <= 8; seed++ {
		rng := rand.New(rand.NewSource(seed))
		vehicles, orders := randomInstance(rng, 6, 15)
		p := DefaultParams()
		p.Seed = seed
		p.Iterations = 10
		s := New(p, ph)

		routes := s.Solve(vehicles, orders, 0)
		require.NoError(t, Verify(s.Physics(), routes, vehicles, 0), "seed %d", seed)

		for _, r := range routes {
			var v VehicleSnapshot
			for _, c := range vehicles {
				if c.ID == r.VehicleID {
					v = c
				}
			}
			load := 0.0
			for _, o := range r.Orders {
				load += o.Volume
			}
			assert.LessOrEqual(t, load, v.Capacity, "seed %d vehicle %s", seed, v.ID)
		}
	}
}

func TestSolveReproducibleWithSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vehicles, orders := randomInstance(rng, 5, 10)
	p := DefaultParams()
	p.Seed = 7
	p.Workers = 4

	a := New(p, model.DefaultPhysics()).Solve(vehicles, orders, 0)
	b := New(p, model.DefaultPhysics()).Solve(vehicles, orders, 0)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].VehicleID, b[i].VehicleID)
		assert.Equal(t, a[i].Arrivals, b[i].Arrivals)
		assert.InDelta(t, a[i].Cost, b[i].Cost, 1e-12)
	}
}

func TestVerifyRejectsOvercommit(t *testing.T) {
	ph := model.DefaultPhysics()
	v := truck("TD01", model.Cell{}, 5)
	o1 := &model.Order{ID: "1", Deadline: 100, Destination: model.Cell{X: 1}, Volume: 4}
	o2 := &model.Order{ID: "2", Deadline: 100, Destination: model.Cell{X: 2}, Volume: 4}
	err := Verify(ph, []Route{{VehicleID: "TD01", Orders: []*model.Order{o1, o2}}}, []VehicleSnapshot{v}, 0)
	assert.Error(t, err)

	err = Verify(ph, []Route{{VehicleID: "ghost", Orders: []*model.Order{o1}}}, []VehicleSnapshot{v}, 0)
	assert.Error(t, err)
}

func TestPheromoneEvaporateAndDeposit(t *testing.T) {
	p := NewPheromone(3, 4, 1)
	prev := p.Max()
	for i := 0; i < 200; i++ {
		p.Evaporate(0.1)
		assert.Less(t, p.Max(), prev)
		assert.GreaterOrEqual(t, p.Min(), 0.0)
		prev = p.Max()
	}

	p.Deposit(1, 2, 5)
	p.Deposit(0, 0, -3)
	assert.Greater(t, p.At(1, 2), 5.0)
	assert.GreaterOrEqual(t, p.At(0, 0), 0.0)
	v, o := p.Dims()
	assert.Equal(t, 3, v)
	assert.Equal(t, 4, o)
}

func TestRoulette(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 0, roulette(rng, []float64{0, 0}, 0))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, roulette(rng, []float64{0, 3, 0}, 3))
	}
}

func TestParamsValidate(t *testing.T) {
	p := Params{}
	p.SetDefaults()
	require.NoError(t, p.Validate())
	assert.Positive(t, p.Workers)

	bad := DefaultParams()
	bad.Rho = 1
	assert.Error(t, bad.Validate())
	bad = DefaultParams()
	bad.Ants = -1
	assert.Error(t, bad.Validate())
}
