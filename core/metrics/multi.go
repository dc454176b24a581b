package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSnapshot forwards the snapshot to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSnapshot(s Snapshot) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordSnapshot(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordDelivery forwards deliveries to sinks implementing DeliveryRecorder.
func (m *MultiSink) RecordDelivery(rec DeliveryRecord) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(DeliveryRecorder); ok {
			if err := r.RecordDelivery(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordReplan forwards optimisation rounds.
func (m *MultiSink) RecordReplan(rec ReplanRecord) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(ReplanRecorder); ok {
			if err := r.RecordReplan(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBreakdown forwards breakdowns.
func (m *MultiSink) RecordBreakdown(rec BreakdownRecord) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(BreakdownRecorder); ok {
			if err := r.RecordBreakdown(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var first error
	for _, sink := range m.Sinks {
		if c, ok := sink.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
