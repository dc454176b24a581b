package dispatch

import (
	"sort"

	"github.com/kilianp07/acodispatch/core/model"
)

// eventQueue holds at most one pending delivery event per order, bucketed by minute.
type eventQueue struct {
	byOrder  map[string]model.DeliveryEvent
	byMinute map[int]map[string]struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		byOrder:  make(map[string]model.DeliveryEvent),
		byMinute: make(map[int]map[string]struct{}),
	}
}

// schedule replaces any pending event of the same order.
func (q *eventQueue) schedule(ev model.DeliveryEvent) {
	q.cancel(ev.OrderID)
	q.byOrder[ev.OrderID] = ev
	b, ok := q.byMinute[ev.Minute]
	if !ok {
		b = make(map[string]struct{})
		q.byMinute[ev.Minute] = b
	}
	b[ev.OrderID] = struct{}{}
}

// cancel drops the event of orderID and reports whether one existed.
func (q *eventQueue) cancel(orderID string) bool {
	ev, ok := q.byOrder[orderID]
	if !ok {
		return false
	}
	delete(q.byOrder, orderID)
	if b := q.byMinute[ev.Minute]; b != nil {
		delete(b, orderID)
		if len(b) == 0 {
			delete(q.byMinute, ev.Minute)
		}
	}
	return true
}

// lookup returns the pending event of orderID.
func (q *eventQueue) lookup(orderID string) (model.DeliveryEvent, bool) {
	ev, ok := q.byOrder[orderID]
	return ev, ok
}

// pop removes and returns the events due at minute, ordered by vehicle then order.
func (q *eventQueue) pop(minute int) []model.DeliveryEvent {
	b := q.byMinute[minute]
	if len(b) == 0 {
		return nil
	}
	out := make([]model.DeliveryEvent, 0, len(b))
	for id := range b {
		out = append(out, q.byOrder[id])
		delete(q.byOrder, id)
	}
	delete(q.byMinute, minute)
	sort.Slice(out, func(i, j int) bool {
		if out[i].VehicleID != out[j].VehicleID {
			return out[i].VehicleID < out[j].VehicleID
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

// len returns the number of pending events.
func (q *eventQueue) len() int { return len(q.byOrder) }
