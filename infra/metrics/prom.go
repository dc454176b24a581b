package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/acodispatch/core/metrics"
)

// PromSink exposes simulation snapshots and records as Prometheus metrics.
type PromSink struct {
	minute     prometheus.Gauge
	vehicles   *prometheus.GaugeVec
	orders     *prometheus.GaugeVec
	tanks      *prometheus.GaugeVec
	blocked    prometheus.Gauge
	fuelUsed   prometheus.Gauge
	slack      prometheus.Histogram
	assigned   prometheus.Counter
	breakdowns *prometheus.CounterVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.minute, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_minute",
		Help: "Last simulated minute reported",
	})); err != nil {
		return nil, err
	}
	if s.vehicles, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_vehicles",
		Help: "Vehicles per status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.orders, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orders",
		Help: "Orders per status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.tanks, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tank_available_volume",
		Help: "Volume left in each resupply tank",
	}, []string{"tank"})); err != nil {
		return nil, err
	}
	if s.blocked, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "blocked_edges",
		Help: "Grid edges closed by active blockages",
	})); err != nil {
		return nil, err
	}
	if s.fuelUsed, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_fuel_used",
		Help: "Fuel burnt by the whole fleet since the start of the run",
	})); err != nil {
		return nil, err
	}
	if s.slack, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_slack_minutes",
		Help:    "Minutes between delivery and deadline",
		Buckets: []float64{0, 15, 30, 60, 120, 240, 480, 960},
	})); err != nil {
		return nil, err
	}
	if s.assigned, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replan_orders_assigned_total",
		Help: "Orders committed by replanning rounds",
	})); err != nil {
		return nil, err
	}
	if s.breakdowns, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "breakdowns_by_severity_total",
		Help: "Breakdown penalties applied per severity",
	}, []string{"severity"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSnapshot sets the gauges from the snapshot.
func (s *PromSink) RecordSnapshot(snap coremetrics.Snapshot) error {
	s.minute.Set(float64(snap.Minute))
	s.blocked.Set(float64(snap.BlockedEdges))

	byStatus := map[string]float64{"available": 0, "delivering": 0, "returning": 0, "broken_down": 0}
	fuel := 0.0
	for _, v := range snap.Vehicles {
		if v.BrokenDown {
			byStatus["broken_down"]++
		} else {
			byStatus[v.Status]++
		}
		fuel += v.FuelUsed
	}
	for status, n := range byStatus {
		s.vehicles.WithLabelValues(status).Set(n)
	}
	s.fuelUsed.Set(fuel)

	s.orders.WithLabelValues("pending").Set(float64(snap.Pending))
	s.orders.WithLabelValues("scheduled").Set(float64(snap.Scheduled))
	s.orders.WithLabelValues("delivered").Set(float64(snap.Delivered))
	s.orders.WithLabelValues("discarded").Set(float64(snap.Discarded))
	for _, t := range snap.Tanks {
		s.tanks.WithLabelValues(t.ID).Set(t.Available)
	}
	return nil
}

// RecordDelivery observes the delivery slack.
func (s *PromSink) RecordDelivery(rec coremetrics.DeliveryRecord) error {
	s.slack.Observe(float64(rec.Slack))
	return nil
}

// RecordReplan counts committed orders.
func (s *PromSink) RecordReplan(rec coremetrics.ReplanRecord) error {
	s.assigned.Add(float64(rec.Assigned))
	return nil
}

// RecordBreakdown counts the breakdown by severity.
func (s *PromSink) RecordBreakdown(rec coremetrics.BreakdownRecord) error {
	s.breakdowns.WithLabelValues(rec.Severity).Inc()
	return nil
}
