// Package metrics defines the recorder interfaces fed by the dispatch
// scheduler. Sinks such as PromSink, InfluxSink and the MQTT snapshot
// publisher receive periodic snapshots, deliveries, replans and breakdowns and
// can be combined with NewMultiSink. The factory helpers return a MultiSink
// automatically when multiple sinks are configured.
package metrics
