package metrics

import (
	"context"

	"github.com/kilianp07/acodispatch/core/events"
	"github.com/kilianp07/acodispatch/core/logger"
	coremetrics "github.com/kilianp07/acodispatch/core/metrics"
	"github.com/kilianp07/acodispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards scheduler
// events to sink. Sinks that talk to slow backends are attached this way so
// they never hold up the simulation clock; events dropped by the bus are lost.
// Sink errors are logged on log, which may be nil. It stops when the context
// is canceled or the bus is closed. The returned channel is closed once the
// collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	log = logger.OrNop(log)
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := forward(sink, ev); err != nil {
					log.Errorf("forward %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func forward(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.SnapshotEvent:
		return sink.RecordSnapshot(e.Snapshot)
	case events.DeliveredEvent:
		if r, ok := sink.(coremetrics.DeliveryRecorder); ok {
			return r.RecordDelivery(e.Record)
		}
	case events.ReplanEvent:
		if r, ok := sink.(coremetrics.ReplanRecorder); ok {
			return r.RecordReplan(e.Record)
		}
	case events.BreakdownEvent:
		if r, ok := sink.(coremetrics.BreakdownRecorder); ok {
			return r.RecordBreakdown(e.Record)
		}
	}
	return nil
}
