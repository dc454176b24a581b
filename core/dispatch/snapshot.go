package dispatch

import (
	"github.com/kilianp07/acodispatch/core/events"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
)

func (s *Scheduler) snapshot(t int) metrics.Snapshot {
	snap := metrics.Snapshot{
		RunID:        s.runID,
		Minute:       t,
		Time:         s.sim.At(t),
		BlockedEdges: len(s.sim.Blockages.BlockedEdges(t)),
	}
	for _, v := range s.sim.Fleet.All() {
		snap.Vehicles = append(snap.Vehicles, metrics.VehicleState{
			ID:         v.ID,
			Class:      v.Class,
			Status:     v.Status.String(),
			X:          v.Position.X,
			Y:          v.Position.Y,
			Cargo:      v.Cargo,
			Fuel:       v.Fuel,
			FuelUsed:   v.FuelUsed,
			Distance:   v.Distance,
			FreeAt:     v.FreeAt,
			RouteLen:   len(v.Route),
			BrokenDown: v.BrokenDown,

			FuelShortfall: v.FuelShortfall,
		})
	}
	for _, tk := range s.sim.Resupply.Tanks() {
		snap.Tanks = append(snap.Tanks, metrics.TankState{ID: tk.ID, Capacity: tk.Capacity, Available: tk.Available})
	}
	counts := s.sim.Orders.Counts()
	snap.Pending = counts[model.OrderPending]
	snap.Scheduled = counts[model.OrderScheduled]
	snap.Delivered = counts[model.OrderDelivered]
	snap.Discarded = counts[model.OrderDiscarded]
	return snap
}

// emitSnapshot hands the current state to the sink. Sink errors never stop
// the simulation.
func (s *Scheduler) emitSnapshot(t int) {
	snap := s.snapshot(t)
	if err := s.sink.RecordSnapshot(snap); err != nil {
		s.log.Errorf("minute %d: record snapshot: %v", t, err)
	}
	s.publish(events.SnapshotEvent{Snapshot: snap})
}

// Snapshot returns the observability view of the current minute.
func (s *Scheduler) Snapshot() metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.now)
}
