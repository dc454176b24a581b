package mqtt

import (
	"encoding/json"
	"errors"

	coremetrics "github.com/kilianp07/acodispatch/core/metrics"
	coremqtt "github.com/kilianp07/acodispatch/core/mqtt"
)

// StatePublisher mirrors the simulation on MQTT. Snapshots and per-vehicle
// states are retained so late subscribers see the latest view.
//
//	<prefix>/snapshot
//	<prefix>/vehicles/<id>/state
//	<prefix>/deliveries
//	<prefix>/replans
//	<prefix>/breakdowns
type StatePublisher struct {
	pub    coremqtt.Publisher
	prefix Config
}

// NewStatePublisher publishes through pub under the prefix of cfg.
func NewStatePublisher(pub coremqtt.Publisher, cfg Config) *StatePublisher {
	cfg.SetDefaults()
	return &StatePublisher{pub: pub, prefix: cfg}
}

func (s *StatePublisher) send(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.pub.Publish(topic, payload, retained)
}

// RecordSnapshot publishes the snapshot and each vehicle state. Every vehicle
// is attempted even if one publish fails.
func (s *StatePublisher) RecordSnapshot(snap coremetrics.Snapshot) error {
	errs := []error{s.send(s.prefix.Topic("snapshot"), snap, true)}
	for _, v := range snap.Vehicles {
		errs = append(errs, s.send(s.prefix.Topic("vehicles", v.ID, "state"), v, true))
	}
	return errors.Join(errs...)
}

// RecordDelivery publishes a delivery record.
func (s *StatePublisher) RecordDelivery(rec coremetrics.DeliveryRecord) error {
	return s.send(s.prefix.Topic("deliveries"), rec, false)
}

// RecordReplan publishes an optimisation round.
func (s *StatePublisher) RecordReplan(rec coremetrics.ReplanRecord) error {
	return s.send(s.prefix.Topic("replans"), rec, false)
}

// RecordBreakdown publishes a breakdown.
func (s *StatePublisher) RecordBreakdown(rec coremetrics.BreakdownRecord) error {
	return s.send(s.prefix.Topic("breakdowns"), rec, false)
}

// Close disconnects the underlying client when it owns a connection.
func (s *StatePublisher) Close() error {
	if d, ok := s.pub.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
	return nil
}
