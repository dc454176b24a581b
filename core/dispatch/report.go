package dispatch

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
)

// Report summarises a run.
type Report struct {
	RunID     string `json:"run_id"`
	Minutes   int    `json:"minutes"`
	Delivered int    `json:"delivered"`
	// Discarded counts orders rejected at intake or dropped past their deadline.
	Discarded int  `json:"discarded"`
	Open      int  `json:"open"`
	Collapsed bool `json:"collapsed"`
	// CollapseOrderID is the order that halted the run.
	CollapseOrderID string   `json:"collapse_order_id,omitempty"`
	LateOrders      []string `json:"late_orders,omitempty"`
	// AvgSlack is the mean of deadline minus delivery minute.
	AvgSlack      float64                  `json:"avg_slack"`
	SlackStdDev   float64                  `json:"slack_std_dev"`
	// DryRuns lists a vehicle each time it ran out of fuel during a trip.
	DryRuns []string `json:"dry_runs,omitempty"`
	// FuelShortfall is the fuel burnt beyond empty tanks over the run.
	FuelShortfall float64                  `json:"fuel_shortfall,omitempty"`
	TotalFuel     float64                  `json:"total_fuel"`
	TotalDistance int                      `json:"total_distance"`
	Deliveries    []metrics.DeliveryRecord `json:"deliveries"`
}

// Report builds the summary of the run so far.
func (s *Scheduler) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.sim.Orders.Counts()
	rep := Report{
		RunID:      s.runID,
		Minutes:    s.now,
		Delivered:  counts[model.OrderDelivered],
		Discarded:  counts[model.OrderDiscarded],
		Open:       counts[model.OrderPending] + counts[model.OrderScheduled],
		LateOrders: append([]string(nil), s.lateOrders...),
		DryRuns:    append([]string(nil), s.dryRuns...),
		Deliveries: append([]metrics.DeliveryRecord(nil), s.deliveries...),
	}
	if s.collapse != nil {
		rep.Collapsed = true
		rep.CollapseOrderID = s.collapse.OrderID
	}
	if len(s.deliveries) > 0 {
		slack := make([]float64, len(s.deliveries))
		for i, d := range s.deliveries {
			slack[i] = float64(d.Slack)
		}
		rep.AvgSlack = stat.Mean(slack, nil)
		if len(slack) > 1 {
			rep.SlackStdDev = stat.StdDev(slack, nil)
		}
	}
	for _, v := range s.sim.Fleet.All() {
		rep.TotalFuel += v.FuelUsed
		rep.FuelShortfall += v.FuelShortfall
		rep.TotalDistance += v.Distance
	}
	return rep
}
