// Package events defines the scheduler events emitted on the event bus.
//
// Available event types:
//   - DeliveredEvent: an order was delivered
//   - ReplanEvent: an optimisation round finished
//   - BreakdownEvent: a breakdown penalty was applied
//   - CollapseEvent: an order missed its deadline
//   - SnapshotEvent: periodic view of the simulation
package events
