package mqtt

import "github.com/kilianp07/acodispatch/core/model"

// Publisher sends payloads to a broker topic.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// BreakdownCommand is the payload accepted on the breakdown command topic.
type BreakdownCommand struct {
	Shift     model.Shift    `json:"shift"`
	VehicleID string         `json:"vehicle_id"`
	Severity  model.Severity `json:"severity"`
}

// BreakdownInjector receives breakdowns reported at runtime.
type BreakdownInjector interface {
	AddBreakdown(shift model.Shift, vehicleID string, sev model.Severity) error
}
