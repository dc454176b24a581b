package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/acodispatch/core/dispatch/journal"
	"github.com/kilianp07/acodispatch/core/logger"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/solver"
	"github.com/kilianp07/acodispatch/internal/eventbus"
)

// Scheduler is the discrete-event simulation clock. Each call to Step fully
// processes one minute; nothing else mutates the SimContext.
type Scheduler struct {
	mu sync.Mutex

	sim     *SimContext
	cfg     Config
	solver  *solver.Solver
	log     logger.Logger
	sink    metrics.MetricsSink
	bus     eventbus.EventBus
	journal journal.Store
	runID   string

	insertion RouteStrategy
	replace   RouteStrategy

	now     int
	queue   *eventQueue
	flagged bool
	shift   model.Shift
	applied map[string]bool
	dry     map[string]bool

	deliveries []metrics.DeliveryRecord
	collapse   *CollapseError
	lateOrders []string
	dryRuns    []string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option { return func(s *Scheduler) { s.log = logger.OrNop(l) } }

// WithSink sets the observability sink receiving snapshots and records.
func WithSink(m metrics.MetricsSink) Option { return func(s *Scheduler) { s.sink = m } }

// WithBus publishes scheduler events on bus.
func WithBus(b eventbus.EventBus) Option { return func(s *Scheduler) { s.bus = b } }

// WithJournal appends every replanning round to store.
func WithJournal(store journal.Store) Option { return func(s *Scheduler) { s.journal = store } }

// WithSolver replaces the default solver. Its physics must match the context.
func WithSolver(sv *solver.Solver) Option { return func(s *Scheduler) { s.solver = sv } }

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option { return func(s *Scheduler) { s.runID = id } }

// New builds a scheduler starting at minute 0.
func New(sim *SimContext, cfg Config, opts ...Option) (*Scheduler, error) {
	if sim == nil {
		return nil, errors.New("dispatch: nil simulation context")
	}
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	s := &Scheduler{
		sim:       sim,
		cfg:       cfg,
		log:       logger.NopLogger{},
		sink:      metrics.NopSink{},
		insertion: InsertionStrategy{},
		replace:   ReplaceStrategy{},
		queue:     newEventQueue(),
		applied:   make(map[string]bool),
		dry:       make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	if s.solver == nil {
		s.solver = solver.New(solver.DefaultParams(), sim.Physics, solver.WithLogger(s.log))
	}
	if s.solver.Physics() != sim.Physics {
		return nil, errors.New("dispatch: solver physics differ from simulation physics")
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.sink == nil {
		s.sink = metrics.NopSink{}
	}
	return s, nil
}

// RunID identifies this run in external records.
func (s *Scheduler) RunID() string { return s.runID }

// Now returns the next minute to be processed.
func (s *Scheduler) Now() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Step processes the current minute and advances the clock. It returns a
// *CollapseError (matching ErrCollapse) under CollapseHalt, or a hard error
// such as grid.ErrNoPath. After an error the clock does not advance.
func (s *Scheduler) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collapse != nil {
		return s.collapse
	}
	t := s.now

	if s.sim.Resupply.Refresh(t) {
		s.log.Infof("minute %d: tanks refilled", t)
	}
	if err := s.fireEvents(t); err != nil {
		return err
	}
	if err := s.moveVehicles(t); err != nil {
		return err
	}
	s.intake(t)
	if err := s.checkDeadlines(t); err != nil {
		return err
	}
	s.applyBreakdowns(t)
	if err := s.replan(t); err != nil {
		return err
	}
	if s.cfg.SnapshotEvery > 0 && t%s.cfg.SnapshotEvery == 0 {
		s.emitSnapshot(t)
	}
	s.now++
	return nil
}

// Run steps until the horizon, a collapse, a hard error or ctx cancellation.
// The report is filled in every case.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	s.log.Infof("run %s: starting, horizon %d minutes", s.runID, s.cfg.HorizonMinutes)
	for s.Now() < s.cfg.HorizonMinutes {
		if err := ctx.Err(); err != nil {
			return s.Report(), err
		}
		if err := s.Step(); err != nil {
			if errors.Is(err, ErrCollapse) {
				s.log.Errorf("run %s: %v", s.runID, err)
			}
			return s.Report(), err
		}
		if s.cfg.StopWhenIdle && s.idle() {
			s.log.Infof("run %s: idle at minute %d", s.runID, s.Now())
			break
		}
	}
	rep := s.Report()
	s.log.Infof("run %s: finished at minute %d, delivered %d, avg slack %.1f, fuel %.2f",
		s.runID, rep.Minutes, rep.Delivered, rep.AvgSlack, rep.TotalFuel)
	return rep, nil
}

func (s *Scheduler) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim.Orders.Queued() > 0 || len(s.sim.Orders.Open()) > 0 {
		return false
	}
	for _, v := range s.sim.Fleet.All() {
		if v.Status != model.VehicleAvailable {
			return false
		}
	}
	return true
}

// AddBreakdown injects a breakdown for shift. It applies on the next minute
// of that shift in which the vehicle is available, even if the vehicle
// already broke down earlier in the shift.
func (s *Scheduler) AddBreakdown(shift model.Shift, vehicleID string, sev model.Severity) error {
	switch shift {
	case model.ShiftT1, model.ShiftT2, model.ShiftT3:
	default:
		return fmt.Errorf("unknown shift %q", shift)
	}
	if _, err := model.ParseSeverity(string(sev)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim.Breakdowns.Add(shift, vehicleID, sev)
	if shift == s.shift {
		delete(s.applied, vehicleID)
	}
	return nil
}

// Vehicles returns copies of every vehicle.
func (s *Scheduler) Vehicles() []model.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Fleet.Snapshot()
}

// Orders returns copies of every order, including rejected ones.
func (s *Scheduler) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Orders.Snapshot()
}

// Tanks returns copies of the resupply tanks.
func (s *Scheduler) Tanks() []model.Tank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Resupply.Tanks()
}

// BlockedEdges returns the edges closed at the current minute.
func (s *Scheduler) BlockedEdges() []model.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Blockages.BlockedEdges(s.now)
}

// PendingEvents returns the number of committed deliveries not yet fired.
func (s *Scheduler) PendingEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

func (s *Scheduler) publish(ev eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
