package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/acodispatch/api"
	"github.com/kilianp07/acodispatch/app/journals"
	"github.com/kilianp07/acodispatch/config"
	"github.com/kilianp07/acodispatch/core/dispatch"
	"github.com/kilianp07/acodispatch/core/dispatch/journal"
	"github.com/kilianp07/acodispatch/core/fleet"
	"github.com/kilianp07/acodispatch/core/grid"
	coremetrics "github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
	"github.com/kilianp07/acodispatch/core/orders"
	"github.com/kilianp07/acodispatch/core/resupply"
	"github.com/kilianp07/acodispatch/core/solver"
	"github.com/kilianp07/acodispatch/infra/logger"
	"github.com/kilianp07/acodispatch/infra/metrics"
	"github.com/kilianp07/acodispatch/infra/mqtt"
	"github.com/kilianp07/acodispatch/internal/eventbus"
	"github.com/kilianp07/acodispatch/pkg/scenario"
)

// Inputs are the timed events of a run.
type Inputs struct {
	Orders     []model.Order
	Blockages  []model.Blockage
	Breakdowns model.BreakdownSchedule
}

// LoadInputs reads the scenario file named by cfg. No file yields an empty run.
func LoadInputs(cfg *config.Config) (Inputs, error) {
	if cfg.Scenario == "" {
		return Inputs{}, nil
	}
	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return Inputs{}, fmt.Errorf("scenario: %w", err)
	}
	return Inputs{Orders: sc.ModelOrders(), Blockages: sc.ModelBlockages(), Breakdowns: sc.Schedule()}, nil
}

// BuildSim assembles the world of a run and feeds the orders through intake.
func BuildSim(cfg *config.Config, in Inputs) (*dispatch.SimContext, []orders.Rejection, error) {
	g := cfg.Grid.Grid()
	reg, err := fleet.NewRegistry(cfg.Fleet.Classes, cfg.Grid.Depot)
	if err != nil {
		return nil, nil, fmt.Errorf("fleet: %w", err)
	}
	tanks := append([]model.Tank(nil), cfg.Resupply.Tanks...)
	network, err := resupply.NewNetwork(cfg.Grid.Depot, tanks, cfg.Resupply.RefreshMinutes)
	if err != nil {
		return nil, nil, fmt.Errorf("resupply: %w", err)
	}
	book := orders.NewBook(cfg.Orders.MinLeadMinutes)
	rejected := book.Intake(in.Orders, reg.MaxCapacity())
	index := grid.NewBlockageIndex(g, cfg.Grid.Policy(), in.Blockages)
	sim := &dispatch.SimContext{
		Grid:       g,
		Physics:    cfg.Physics,
		Fleet:      reg,
		Orders:     book,
		Resupply:   network,
		Blockages:  index,
		Planner:    grid.NewPlanner(g, index),
		Breakdowns: in.Breakdowns,
	}
	if err := sim.Validate(); err != nil {
		return nil, nil, err
	}
	return sim, rejected, nil
}

// busBuffer is sized so a broker round trip per event does not lose records
// of a busy minute.
const busBuffer = 1024

// Service wires a scheduler to its sinks, journal and broker.
type Service struct {
	Scheduler *dispatch.Scheduler
	Rejected  []orders.Rejection

	cfg       *config.Config
	sink      coremetrics.MetricsSink
	bus       *eventbus.Bus
	store     journal.Store
	client    *mqtt.PahoClient
	publisher *mqtt.StatePublisher
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	in, err := LoadInputs(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithInputs(cfg, in)
}

// NewWithInputs creates a Service for the given inputs instead of the
// configured scenario file.
func NewWithInputs(cfg *config.Config, in Inputs) (svc *Service, err error) {
	logg := logger.New("service")
	sim, rejected, err := BuildSim(cfg, in)
	if err != nil {
		return nil, err
	}
	for _, r := range rejected {
		logg.Warnf("order %s rejected: %s", r.OrderID, r.Reason)
	}

	svc = &Service{Rejected: rejected, cfg: cfg, bus: eventbus.NewWithBuffer(busBuffer), log: logg}
	defer func() {
		if err != nil {
			_ = svc.Close()
		}
	}()

	svc.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	opts := []dispatch.Option{
		dispatch.WithLogger(logger.New("scheduler")),
		dispatch.WithSink(svc.sink),
		dispatch.WithBus(svc.bus),
		dispatch.WithSolver(solver.New(cfg.Solver, sim.Physics, solver.WithLogger(logger.New("solver")))),
	}
	if cfg.Journal.Enabled() {
		svc.store, err = journals.Open(cfg.Journal.Backend, cfg.Journal.Settings())
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		opts = append(opts, dispatch.WithJournal(svc.store))
	}
	svc.Scheduler, err = dispatch.New(sim, cfg.Simulation, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.MQTT.Enabled() {
		svc.client, err = mqtt.NewPahoClient(cfg.MQTT, mqtt.WithBreakdownInjector(svc.Scheduler))
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.publisher = mqtt.NewStatePublisher(svc.client, svc.client.Config())
	}
	return svc, nil
}

// Run executes the simulation until the horizon, a collapse or ctx is done.
func (s *Service) Run(ctx context.Context) (dispatch.Report, error) {
	var collected <-chan struct{}
	if s.publisher != nil {
		collected = metrics.StartEventCollector(ctx, s.bus, s.publisher, s.log)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.cfg.API.Enabled() {
		mux := api.NewMux(s.Scheduler, s.store, s.cfg.API.Token)
		go func() {
			if err := api.Serve(ctx, s.cfg.API.Addr, mux); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("run %s started: %d vehicles, %d orders", s.Scheduler.RunID(), len(s.Scheduler.Vehicles()), len(s.Scheduler.Orders()))
	rep, err := s.Scheduler.Run(ctx)
	if err != nil && !errors.Is(err, dispatch.ErrCollapse) && !errors.Is(err, context.Canceled) {
		s.log.Errorf("run %s failed: %v", rep.RunID, err)
	}
	cancel()
	if collected != nil {
		// closing the bus lets the collector drain what is still buffered
		s.bus.Close()
		<-collected
	}
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("run %s: %d events dropped before reaching the broker", rep.RunID, n)
	}
	return rep, err
}

// Close releases the broker connection, the sinks and the journal.
func (s *Service) Close() error {
	var errs []error
	if s.bus != nil {
		s.bus.Close()
	}
	if s.client != nil {
		s.client.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
