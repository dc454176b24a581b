package dispatch

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/acodispatch/core/dispatch/journal"
	"github.com/kilianp07/acodispatch/core/events"
	"github.com/kilianp07/acodispatch/core/fleet"
	"github.com/kilianp07/acodispatch/core/grid"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/orders"
	"github.com/kilianp07/acodispatch/core/resupply"
	"github.com/kilianp07/acodispatch/core/solver"
	"github.com/kilianp07/acodispatch/internal/eventbus"
)

var oneTA = []model.VehicleClass{{Code: "TA", Count: 1, Capacity: 25, TareKg: 7500, FuelCapacity: 25}}

func newSim(t *testing.T, classes []model.VehicleClass, in []model.Order, tanks []model.Tank) *SimContext {
	t.Helper()
	depot := model.Cell{}
	reg, err := fleet.NewRegistry(classes, depot)
	require.NoError(t, err)
	book := orders.NewBook(0)
	require.Empty(t, book.Intake(in, reg.MaxCapacity()))
	net, err := resupply.NewNetwork(depot, tanks, 0)
	require.NoError(t, err)
	return &SimContext{
		Grid:     model.Grid{Width: 20, Height: 20},
		Physics:  model.DefaultPhysics(),
		Fleet:    reg,
		Orders:   book,
		Resupply: net,
	}
}

func newScheduler(t *testing.T, sim *SimContext, cfg Config, opts ...Option) *Scheduler {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	s, err := New(sim, cfg, opts...)
	require.NoError(t, err)
	return s
}

func stepTo(t *testing.T, s *Scheduler, minute int) {
	t.Helper()
	for s.Now() < minute {
		require.NoError(t, s.Step())
	}
}

func vehicle(t *testing.T, s *Scheduler, id string) model.Vehicle {
	t.Helper()
	for _, v := range s.Vehicles() {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("vehicle %s not found", id)
	return model.Vehicle{}
}

type recordingSink struct {
	snapshots  []metrics.Snapshot
	deliveries []metrics.DeliveryRecord
	replans    []metrics.ReplanRecord
	breakdowns []metrics.BreakdownRecord
}

func (r *recordingSink) RecordSnapshot(s metrics.Snapshot) error {
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *recordingSink) RecordDelivery(d metrics.DeliveryRecord) error {
	r.deliveries = append(r.deliveries, d)
	return nil
}

func (r *recordingSink) RecordReplan(p metrics.ReplanRecord) error {
	r.replans = append(r.replans, p)
	return nil
}

func (r *recordingSink) RecordBreakdown(b metrics.BreakdownRecord) error {
	r.breakdowns = append(r.breakdowns, b)
	return nil
}

func routeOf(vehicleID string, o ...*model.Order) solver.Route {
	return solver.Route{VehicleID: vehicleID, Orders: o}
}

func TestNewValidates(t *testing.T) {
	sim := newSim(t, oneTA, nil, nil)
	_, err := New(nil, Config{})
	assert.Error(t, err)

	_, err = New(sim, Config{CollapsePolicy: "explode"})
	assert.Error(t, err)

	other := model.DefaultPhysics()
	other.MinutesPerUnit = 3
	_, err = New(sim, Config{}, WithSolver(solver.New(solver.DefaultParams(), other)))
	assert.Error(t, err)
}

func TestDeliveryThenDepotReturn(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "o1", CreatedAt: 0, Deadline: 100, Destination: model.Cell{X: 3}, Volume: 10},
	}, nil)
	sink := &recordingSink{}
	s := newScheduler(t, sim, Config{StopWhenIdle: true, HorizonMinutes: 200}, WithSink(sink), WithRunID("run-1"))

	require.NoError(t, s.Step())
	v := vehicle(t, s, "TA01")
	assert.Equal(t, model.VehicleDelivering, v.Status)
	assert.Equal(t, 4, v.FreeAt)
	assert.Equal(t, 1, s.PendingEvents())

	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, 1, rep.Delivered)
	assert.Equal(t, 7, rep.Minutes)
	assert.Equal(t, 6, rep.TotalDistance)
	assert.InDelta(t, 3*20.0/180+3*15.0/180, rep.TotalFuel, 1e-9)
	require.Len(t, rep.Deliveries, 1)
	assert.Equal(t, 4, rep.Deliveries[0].Minute)
	assert.Equal(t, 96, rep.Deliveries[0].Slack)
	assert.Equal(t, 96.0, rep.AvgSlack)

	v = vehicle(t, s, "TA01")
	assert.Equal(t, model.VehicleAvailable, v.Status)
	assert.Equal(t, model.Cell{}, v.Position)
	assert.Equal(t, 25.0, v.Cargo)
	assert.Equal(t, 25.0, v.Fuel)
	assert.Equal(t, 6+15, v.FreeAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(deliveriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(replansTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(strategyOutcomes.WithLabelValues("replace", "committed")))
	require.Len(t, sink.deliveries, 1)
	require.Len(t, sink.replans, 1)
	assert.Equal(t, 1, sink.replans[0].Assigned)
	require.NotEmpty(t, sink.snapshots)
	assert.Equal(t, 0, sink.snapshots[0].Minute)
}

func TestReturnToNearerTank(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "o1", Deadline: 100, Destination: model.Cell{X: 8}, Volume: 10},
	}, []model.Tank{{ID: "north", Location: model.Cell{X: 5}, Capacity: 50}})
	s := newScheduler(t, sim, Config{StopWhenIdle: true, HorizonMinutes: 200})

	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Delivered)

	v := vehicle(t, s, "TA01")
	assert.Equal(t, model.Cell{X: 5}, v.Position)
	assert.Equal(t, 25.0, v.Cargo)
	tanks := s.Tanks()
	require.Len(t, tanks, 1)
	assert.Equal(t, 40.0, tanks[0].Available)
}

func TestBreakdownPenaltyWindow(t *testing.T) {
	sim := newSim(t, oneTA, nil, nil)
	sink := &recordingSink{}
	s := newScheduler(t, sim, Config{}, WithSink(sink))

	stepTo(t, s, 100)
	require.NoError(t, s.AddBreakdown(model.ShiftAt(100), "TA01", model.SeverityT2))
	require.NoError(t, s.Step())

	v := vehicle(t, s, "TA01")
	assert.True(t, v.BrokenDown)
	assert.Equal(t, 160, v.FreeAt)
	for s.Now() < 160 {
		require.NoError(t, s.Step())
		v = vehicle(t, s, "TA01")
		assert.False(t, v.Eligible(s.Now()-1), "eligible at minute %d", s.Now()-1)
	}
	require.NoError(t, s.Step())
	v = vehicle(t, s, "TA01")
	assert.False(t, v.BrokenDown)
	assert.True(t, v.Eligible(160))

	assert.Equal(t, 1.0, testutil.ToFloat64(breakdownsTotal))
	require.Len(t, sink.breakdowns, 1)
	assert.Equal(t, 100, sink.breakdowns[0].Minute)
	assert.Equal(t, 160, sink.breakdowns[0].Until)
}

func TestBreakdownOncePerShift(t *testing.T) {
	sim := newSim(t, oneTA, nil, nil)
	sim.Breakdowns = model.BreakdownSchedule{}
	sim.Breakdowns.Add(model.ShiftT1, "TA01", model.SeverityT1)
	sim.Breakdowns.Add(model.ShiftT1, "ghost", model.SeverityT3)
	s := newScheduler(t, sim, Config{})

	require.NoError(t, s.Step())
	assert.Equal(t, 30, vehicle(t, s, "TA01").FreeAt)
	stepTo(t, s, 479)
	assert.Equal(t, 1.0, testutil.ToFloat64(breakdownsTotal))

	assert.Error(t, s.AddBreakdown("T9", "TA01", model.SeverityT1))
	assert.Error(t, s.AddBreakdown(model.ShiftT1, "TA01", "T7"))
}

func TestCollapseHalt(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "late", Deadline: 5, Destination: model.Cell{X: 15, Y: 15}, Volume: 5},
	}, nil)
	s := newScheduler(t, sim, Config{HorizonMinutes: 100})

	rep, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollapse))
	var ce *CollapseError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "late", ce.OrderID)
	assert.Equal(t, 6, ce.Minute)
	assert.True(t, rep.Collapsed)
	assert.Equal(t, "late", rep.CollapseOrderID)
	assert.Equal(t, 1.0, testutil.ToFloat64(collapsesTotal.WithLabelValues("halt")))

	assert.ErrorIs(t, s.Step(), ErrCollapse)
	assert.Equal(t, 6, s.Now())
}

func TestCollapseDiscard(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "late", Deadline: 5, Destination: model.Cell{X: 15, Y: 15}, Volume: 5},
		{ID: "ok", Deadline: 100, Destination: model.Cell{X: 3}, Volume: 10},
	}, nil)
	s := newScheduler(t, sim, Config{HorizonMinutes: 200, CollapsePolicy: CollapseDiscard, StopWhenIdle: true})

	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Collapsed)
	assert.Equal(t, 1, rep.Delivered)
	assert.Equal(t, 1, rep.Discarded)
	assert.Equal(t, []string{"late"}, rep.LateOrders)
	assert.Equal(t, 1.0, testutil.ToFloat64(collapsesTotal.WithLabelValues("discard")))

	o, err := sim.Orders.Get("late")
	require.NoError(t, err)
	assert.Equal(t, model.OrderDiscarded, o.Status)
	assert.Equal(t, "deadline missed", o.Reason)
}

func TestNoPathIsHardError(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "boxed", Deadline: 500, Destination: model.Cell{X: 5, Y: 5}, Volume: 5},
	}, nil)
	box := model.Blockage{Start: 0, End: 1000, Polyline: []model.Cell{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4}}}
	sim.Blockages = grid.NewBlockageIndex(sim.Grid, grid.PolicyPoint, []model.Blockage{box})
	s := newScheduler(t, sim, Config{})

	err := s.Step()
	require.Error(t, err)
	assert.ErrorIs(t, err, grid.ErrNoPath)
	assert.Equal(t, 0, s.Now())
	assert.NotEmpty(t, s.BlockedEdges())
}

func TestInsertionStrategy(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "far", Deadline: 100, Destination: model.Cell{X: 10}, Volume: 10},
		{ID: "near", Deadline: 100, Destination: model.Cell{X: 5}, Volume: 10},
		{ID: "big", Deadline: 100, Destination: model.Cell{X: 6}, Volume: 10},
	}, nil)
	s := newScheduler(t, sim, Config{})
	sim.Orders.Activate(0)
	far, _ := sim.Orders.Get("far")
	near, _ := sim.Orders.Get("near")
	big, _ := sim.Orders.Get("big")
	v, _ := sim.Fleet.Get("TA01")

	assert.Equal(t, "replace", s.strategyFor(v).Name())
	require.NoError(t, s.commit(0, v, []*model.Order{far}))
	assert.Equal(t, "insertion", s.strategyFor(v).Name())

	committed, err := s.insertion.apply(s, 0, v, routeOf(v.ID, near))
	require.NoError(t, err)
	assert.Equal(t, []*model.Order{near}, committed)
	assert.Equal(t, []*model.Order{near, far}, v.Route)
	assert.Equal(t, []int{5, 10}, v.LegEnds)
	assert.Equal(t, 12, v.FreeAt)
	ev, ok := s.queue.lookup("near")
	require.True(t, ok)
	assert.Equal(t, 6, ev.Minute)
	ev, _ = s.queue.lookup("far")
	assert.Equal(t, 12, ev.Minute)

	committed, err = s.insertion.apply(s, 0, v, routeOf(v.ID, big))
	require.NoError(t, err)
	assert.Empty(t, committed, "spare cargo is 5")
	assert.Equal(t, model.OrderPending, big.Status)

	s.cfg.DisableDiversion = true
	assert.Equal(t, "replace", s.strategyFor(v).Name())
}

func TestUnscheduleFreesVehicle(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "o1", Deadline: 100, Destination: model.Cell{X: 4}, Volume: 5},
	}, nil)
	s := newScheduler(t, sim, Config{})
	sim.Orders.Activate(0)
	o, _ := sim.Orders.Get("o1")
	v, _ := sim.Fleet.Get("TA01")
	require.NoError(t, s.commit(0, v, []*model.Order{o}))
	assert.Equal(t, model.OrderScheduled, o.Status)

	require.NoError(t, s.unschedule(2, o))
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Empty(t, o.VehicleID)
	assert.Equal(t, model.VehicleAvailable, v.Status)
	assert.Equal(t, 2, v.FreeAt)
	assert.Equal(t, 0, s.PendingEvents())
}

func TestJournalAndBus(t *testing.T) {
	sim := newSim(t, oneTA, []model.Order{
		{ID: "o1", Deadline: 100, Destination: model.Cell{X: 3}, Volume: 10},
	}, nil)
	store, err := journal.NewJSONLStore(filepath.Join(t.TempDir(), "journal.jsonl"))
	require.NoError(t, err)
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	s := newScheduler(t, sim, Config{StopWhenIdle: true}, WithJournal(store), WithBus(bus))

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	recs, err := store.Query(context.Background(), journal.Query{OrderID: "o1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Len(t, recs[0].Routes, 1)
	assert.Equal(t, []string{"o1"}, recs[0].Routes[0].Committed)
	assert.Equal(t, s.RunID(), recs[0].RunID)

	delivered := 0
	for len(sub) > 0 {
		if _, ok := (<-sub).(events.DeliveredEvent); ok {
			delivered++
		}
	}
	assert.Equal(t, 1, delivered)
}

func TestRunHonoursContext(t *testing.T) {
	sim := newSim(t, oneTA, nil, nil)
	s := newScheduler(t, sim, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Now())
}

func TestRandomRunKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var in []model.Order
	for i := 0; i < 25; i++ {
		created := rng.Intn(300)
		in = append(in, model.Order{
			ID:          string(rune('a'+i%26)) + string(rune('0'+i/26)),
			CreatedAt:   created,
			Deadline:    created + 120 + rng.Intn(240),
			Destination: model.Cell{X: rng.Intn(21), Y: rng.Intn(21)},
			Volume:      float64(1 + rng.Intn(12)),
		})
	}
	classes := []model.VehicleClass{
		{Code: "TA", Count: 1, Capacity: 25, TareKg: 7500, FuelCapacity: 25},
		{Code: "TB", Count: 2, Capacity: 15, TareKg: 5000, FuelCapacity: 25},
		{Code: "TD", Count: 2, Capacity: 5, TareKg: 3000, FuelCapacity: 25},
	}
	sim := newSim(t, classes, in, []model.Tank{{Location: model.Cell{X: 15, Y: 15}, Capacity: 80}})
	s := newScheduler(t, sim, Config{HorizonMinutes: 900, CollapsePolicy: CollapseDiscard, StopWhenIdle: true})

	for s.Now() < 900 {
		require.NoError(t, s.Step())
		for _, v := range s.Vehicles() {
			assert.GreaterOrEqual(t, v.Cargo, 0.0, v.ID)
			assert.GreaterOrEqual(t, v.Fuel, 0.0, v.ID)
			assert.LessOrEqual(t, v.Fuel, v.FuelCapacity+1e-9, v.ID)
			assert.LessOrEqual(t, v.Reserved(), v.Cargo+1e-9, v.ID)
			assert.LessOrEqual(t, v.Cargo, v.Capacity+1e-9, v.ID)
			assert.True(t, sim.Grid.Contains(v.Position), v.ID)
		}
		for _, tk := range s.Tanks() {
			assert.GreaterOrEqual(t, tk.Available, 0.0)
		}
	}
	rep := s.Report()
	assert.Positive(t, rep.Delivered)
	for _, d := range rep.Deliveries {
		assert.GreaterOrEqual(t, d.Slack, 0, d.OrderID)
	}
	assert.Equal(t, len(in), rep.Delivered+rep.Discarded+rep.Open)
	assert.Empty(t, rep.DryRuns)
	assert.Zero(t, rep.FuelShortfall)
	assert.Zero(t, testutil.ToFloat64(fuelExhausted))
}

func TestFuelKeepsReserveForReturn(t *testing.T) {
	// A full TA burns 20*20/180 to reach (10,10) and 20*19.5/180 to come back.
	cases := []struct {
		name      string
		fuel      float64
		delivered int
	}{
		{"short of the outbound leg", 1, 0},
		{"short of the way home", 3, 0},
		{"enough for both", 5, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			classes := []model.VehicleClass{{Code: "TA", Count: 1, Capacity: 25, TareKg: 7500, FuelCapacity: c.fuel}}
			sim := newSim(t, classes, []model.Order{
				{ID: "o1", Deadline: 200, Destination: model.Cell{X: 10, Y: 10}, Volume: 1},
			}, nil)
			s := newScheduler(t, sim, Config{HorizonMinutes: 150})

			stepTo(t, s, 150)
			rep := s.Report()
			assert.Equal(t, c.delivered, rep.Delivered)
			assert.Empty(t, rep.DryRuns)
			assert.Zero(t, rep.FuelShortfall)

			v := vehicle(t, s, "TA01")
			assert.Equal(t, model.Cell{}, v.Position)
			assert.Equal(t, c.fuel, v.Fuel)
			if c.delivered == 0 {
				assert.Zero(t, v.Distance)
				o, err := sim.Orders.Get("o1")
				require.NoError(t, err)
				assert.Equal(t, model.OrderPending, o.Status)
			}
		})
	}
}

func TestRunningDryIsReported(t *testing.T) {
	classes := []model.VehicleClass{{Code: "TA", Count: 1, Capacity: 25, TareKg: 7500, FuelCapacity: 1}}
	sim := newSim(t, classes, []model.Order{
		{ID: "o1", Deadline: 200, Destination: model.Cell{X: 10, Y: 10}, Volume: 1},
	}, nil)
	bus := eventbus.NewWithBuffer(1024)
	defer bus.Close()
	sub := bus.Subscribe()
	s := newScheduler(t, sim, Config{}, WithBus(bus))
	sim.Orders.Activate(0)
	o, _ := sim.Orders.Get("o1")
	v, _ := sim.Fleet.Get("TA01")
	require.NoError(t, s.commit(0, v, []*model.Order{o}))

	stepTo(t, s, 100)
	rep := s.Report()
	assert.Equal(t, 1, rep.Delivered)
	assert.Equal(t, []string{"TA01"}, rep.DryRuns)
	assert.Equal(t, 1.0, testutil.ToFloat64(fuelExhausted))

	got := vehicle(t, s, "TA01")
	assert.Equal(t, model.VehicleAvailable, got.Status)
	assert.Equal(t, 1.0, got.Fuel, "refuelled at the depot")
	assert.InDelta(t, got.FuelUsed-1, got.FuelShortfall, 1e-9)
	assert.InDelta(t, got.FuelShortfall, rep.FuelShortfall, 1e-12)

	var dry []events.FuelExhaustedEvent
	for len(sub) > 0 {
		if e, ok := (<-sub).(events.FuelExhaustedEvent); ok {
			dry = append(dry, e)
		}
	}
	require.Len(t, dry, 1)
	assert.Equal(t, "TA01", dry[0].VehicleID)
	assert.Positive(t, dry[0].Shortfall)
	assert.Less(t, dry[0].Minute, 24)
}

func TestPhysicsBelowOneMinuteRejected(t *testing.T) {
	sim := newSim(t, oneTA, nil, nil)
	sim.Physics.MinutesPerUnit = 0.5
	_, err := New(sim, Config{})
	assert.Error(t, err)
}
