package metrics

import "time"

// VehicleState is one vehicle inside a Snapshot.
type VehicleState struct {
	ID         string  `json:"id"`
	Class      string  `json:"class"`
	Status     string  `json:"status"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Cargo      float64 `json:"cargo"`
	Fuel       float64 `json:"fuel"`
	FuelUsed   float64 `json:"fuel_used"`
	Distance   int     `json:"distance"`
	FreeAt     int     `json:"free_at"`
	RouteLen   int     `json:"route_len"`
	BrokenDown bool    `json:"broken_down"`
	// FuelShortfall is non-zero once the vehicle has driven on an empty tank.
	FuelShortfall float64 `json:"fuel_shortfall,omitempty"`
}

// TankState is one tank inside a Snapshot.
type TankState struct {
	ID        string  `json:"id"`
	Capacity  float64 `json:"capacity"`
	Available float64 `json:"available"`
}

// Snapshot is the periodic, non-authoritative view of a running simulation.
type Snapshot struct {
	RunID        string         `json:"run_id"`
	Minute       int            `json:"minute"`
	Time         time.Time      `json:"time"`
	Vehicles     []VehicleState `json:"vehicles"`
	Tanks        []TankState    `json:"tanks"`
	Pending      int            `json:"pending"`
	Scheduled    int            `json:"scheduled"`
	Delivered    int            `json:"delivered"`
	Discarded    int            `json:"discarded"`
	BlockedEdges int            `json:"blocked_edges"`
}

// MetricsSink records simulation snapshots for observability purposes.
type MetricsSink interface {
	RecordSnapshot(s Snapshot) error
}

// DeliveryRecord describes a completed delivery.
type DeliveryRecord struct {
	RunID     string    `json:"run_id"`
	OrderID   string    `json:"order_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	VehicleID string    `json:"vehicle_id"`
	Minute    int       `json:"minute"`
	Deadline  int       `json:"deadline"`
	Slack     int       `json:"slack"`
	Volume    float64   `json:"volume"`
	Time      time.Time `json:"time"`
}

// DeliveryRecorder records completed deliveries.
type DeliveryRecorder interface {
	RecordDelivery(rec DeliveryRecord) error
}

// ReplanRecord describes one optimisation round.
type ReplanRecord struct {
	RunID      string        `json:"run_id"`
	Minute     int           `json:"minute"`
	Candidates int           `json:"candidates"`
	Assigned   int           `json:"assigned"`
	Vehicles   int           `json:"vehicles"`
	Cost       float64       `json:"cost"`
	Duration   time.Duration `json:"duration"`
	Time       time.Time     `json:"time"`
}

// ReplanRecorder records optimisation rounds.
type ReplanRecorder interface {
	RecordReplan(rec ReplanRecord) error
}

// BreakdownRecord describes a breakdown penalty applied to a vehicle.
type BreakdownRecord struct {
	RunID     string    `json:"run_id"`
	VehicleID string    `json:"vehicle_id"`
	Shift     string    `json:"shift"`
	Severity  string    `json:"severity"`
	Minute    int       `json:"minute"`
	Until     int       `json:"until"`
	Time      time.Time `json:"time"`
}

// BreakdownRecorder records breakdowns.
type BreakdownRecorder interface {
	RecordBreakdown(rec BreakdownRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSnapshot(Snapshot) error         { return nil }
func (NopSink) RecordDelivery(DeliveryRecord) error   { return nil }
func (NopSink) RecordReplan(ReplanRecord) error       { return nil }
func (NopSink) RecordBreakdown(BreakdownRecord) error { return nil }
