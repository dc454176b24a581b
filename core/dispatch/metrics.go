package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	solveDuration    prometheus.Histogram
	replansTotal     prometheus.Counter
	deliveriesTotal  prometheus.Counter
	collapsesTotal   *prometheus.CounterVec
	strategyOutcomes *prometheus.CounterVec
	breakdownsTotal  prometheus.Counter
	fuelExhausted    prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, prometheus.Counter, prometheus.Counter, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter) {
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "route_solve_duration_seconds",
			Help:    "Wall time of one ant colony solve",
			Buckets: prometheus.DefBuckets,
		},
	)
	replans := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "route_replans_total",
			Help: "Number of replanning rounds",
		},
	)
	deliveries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deliveries_total",
			Help: "Number of orders delivered",
		},
	)
	collapses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadline_collapses_total",
			Help: "Orders found past their deadline",
		},
		[]string{"policy"},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_strategy_outcomes_total",
			Help: "Orders handled per route strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)
	breakdowns := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vehicle_breakdowns_total",
			Help: "Breakdown penalties applied",
		},
	)
	dry := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vehicle_fuel_exhausted_total",
			Help: "Times a vehicle ran out of fuel while moving",
		},
	)
	return dur, replans, deliveries, collapses, outcomes, breakdowns, dry
}

func init() {
	solveDuration, replansTotal, deliveriesTotal, collapsesTotal, strategyOutcomes, breakdownsTotal, fuelExhausted = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduler metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solveDuration, replansTotal, deliveriesTotal, collapsesTotal, strategyOutcomes, breakdownsTotal, fuelExhausted)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solveDuration, replansTotal, deliveriesTotal, collapsesTotal, strategyOutcomes, breakdownsTotal, fuelExhausted = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
