package dispatch

import (
	"sort"

	"github.com/kilianp07/acodispatch/core/events"
	"github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/core/model"
)

// applyBreakdowns takes scheduled vehicles out of service for the current
// shift and releases those whose penalty has elapsed. A vehicle breaks down
// at most once per shift entry, on the first minute it is idle.
func (s *Scheduler) applyBreakdowns(t int) {
	shift := model.ShiftAt(t)
	if shift != s.shift {
		s.shift = shift
		s.applied = make(map[string]bool)
	}

	planned := s.sim.Breakdowns[shift]
	ids := make([]string, 0, len(planned))
	for id := range planned {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if s.applied[id] {
			continue
		}
		v, ok := s.sim.Fleet.Get(id)
		if !ok {
			s.log.Warnf("minute %d: breakdown for unknown vehicle %s ignored", t, id)
			s.applied[id] = true
			continue
		}
		if v.Status != model.VehicleAvailable || v.BrokenDown || v.FreeAt > t {
			continue
		}
		sev := planned[id]
		v.FreeAt = t + s.cfg.penalty(sev)
		v.BrokenDown = true
		s.applied[id] = true
		s.flagged = true
		breakdownsTotal.Inc()

		rec := metrics.BreakdownRecord{
			RunID:     s.runID,
			VehicleID: v.ID,
			Shift:     string(shift),
			Severity:  string(sev),
			Minute:    t,
			Until:     v.FreeAt,
			Time:      s.sim.At(t),
		}
		if r, ok := s.sink.(metrics.BreakdownRecorder); ok {
			if err := r.RecordBreakdown(rec); err != nil {
				s.log.Errorf("record breakdown %s: %v", v.ID, err)
			}
		}
		s.publish(events.BreakdownEvent{Record: rec})
		s.log.Infof("minute %d: %s broke down (%s), out of service until %d", t, v.ID, sev, v.FreeAt)
	}

	for _, v := range s.sim.Fleet.All() {
		switch {
		case v.BrokenDown && v.FreeAt <= t:
			v.BrokenDown = false
			s.flagged = true
			s.log.Infof("minute %d: %s back in service", t, v.ID)
		case v.Status == model.VehicleAvailable && !v.BrokenDown && v.FreeAt == t:
			s.flagged = true
		}
	}
}
