package model

// VehicleStatus enumerates what a vehicle is currently doing.
type VehicleStatus int

const (
	VehicleAvailable VehicleStatus = iota
	VehicleDelivering
	VehicleReturning
)

func (s VehicleStatus) String() string {
	switch s {
	case VehicleAvailable:
		return "available"
	case VehicleDelivering:
		return "delivering"
	case VehicleReturning:
		return "returning"
	default:
		return "unknown"
	}
}

// CanTransition reports whether a vehicle may move from s to next.
// Delivering -> Available covers a route emptied by replanning.
func (s VehicleStatus) CanTransition(next VehicleStatus) bool {
	switch s {
	case VehicleAvailable:
		return next == VehicleDelivering || next == VehicleReturning
	case VehicleDelivering:
		return next == VehicleDelivering || next == VehicleReturning || next == VehicleAvailable
	case VehicleReturning:
		return next == VehicleAvailable
	}
	return false
}

// VehicleClass describes a capacity class of the fleet.
type VehicleClass struct {
	Code         string  `json:"code" yaml:"code"`
	Count        int     `json:"count" yaml:"count"`
	Capacity     float64 `json:"capacity" yaml:"capacity"`
	TareKg       float64 `json:"tare_kg" yaml:"tare_kg"`
	FuelCapacity float64 `json:"fuel_capacity" yaml:"fuel_capacity"`
}

// Vehicle is a capacity- and fuel-limited truck.
type Vehicle struct {
	ID           string        `json:"id"`
	Class        string        `json:"class"`
	Capacity     float64       `json:"capacity"`
	TareKg       float64       `json:"tare_kg"`
	FuelCapacity float64       `json:"fuel_capacity"`
	Fuel         float64       `json:"fuel"`
	Cargo        float64       `json:"cargo"`
	Position     Cell          `json:"position"`
	Status       VehicleStatus `json:"status"`
	FreeAt       int           `json:"free_at"`

	// Route holds committed orders not yet delivered, in visiting order.
	Route []*Order `json:"-"`
	// Path is the step sequence still being followed; Step is the cursor.
	Path []Cell `json:"-"`
	Step int    `json:"-"`
	// LegEnds[i] is the index in Path just past the arrival at Route[i].
	LegEnds []int `json:"-"`

	FuelUsed float64 `json:"fuel_used"`
	// FuelShortfall accumulates fuel burnt beyond an empty tank.
	FuelShortfall float64 `json:"fuel_shortfall,omitempty"`
	Distance      int     `json:"distance"`
	// TankID is the resupply tank targeted while Returning; empty means depot.
	TankID string `json:"tank_id,omitempty"`
	// Deficit is the cargo volume to restore at the end of the return trip.
	Deficit float64 `json:"deficit,omitempty"`
	// BrokenDown is set while a breakdown penalty is running.
	BrokenDown bool `json:"broken_down"`
}

// Reserved returns the cargo volume promised to the pending route.
func (v *Vehicle) Reserved() float64 {
	total := 0.0
	for _, o := range v.Route {
		total += o.Volume
	}
	return total
}

// Spare returns cargo on board not yet promised to any order.
func (v *Vehicle) Spare() float64 { return v.Cargo - v.Reserved() }

// StepLimit is the path index the vehicle may advance to before waiting for
// its next delivery event.
func (v *Vehicle) StepLimit() int {
	if v.Status == VehicleDelivering && len(v.LegEnds) > 0 {
		return v.LegEnds[0]
	}
	return len(v.Path)
}

// HasPendingSteps reports whether the vehicle can move this minute.
func (v *Vehicle) HasPendingSteps() bool { return v.Step < v.StepLimit() }

// Eligible reports whether the vehicle can receive new work at minute now.
func (v *Vehicle) Eligible(now int) bool {
	return v.Status == VehicleAvailable && !v.BrokenDown && v.FreeAt <= now
}

// ClearPath drops any remaining movement.
func (v *Vehicle) ClearPath() {
	v.Path = nil
	v.Step = 0
	v.LegEnds = nil
}

// Clone returns a copy that shares no mutable slices with v.
func (v *Vehicle) Clone() Vehicle {
	c := *v
	c.Route = append([]*Order(nil), v.Route...)
	c.Path = append([]Cell(nil), v.Path...)
	c.LegEnds = append([]int(nil), v.LegEnds...)
	return c
}
