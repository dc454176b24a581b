package fleet

import (
	"errors"
	"fmt"

	"github.com/kilianp07/acodispatch/core/model"
)

// DefaultClasses returns the reference fleet: 2 TA, 4 TB, 4 TC and 10 TD trucks.
func DefaultClasses() []model.VehicleClass {
	return []model.VehicleClass{
		{Code: "TA", Count: 2, Capacity: 25, TareKg: 7500, FuelCapacity: 25},
		{Code: "TB", Count: 4, Capacity: 15, TareKg: 5000, FuelCapacity: 25},
		{Code: "TC", Count: 4, Capacity: 10, TareKg: 4000, FuelCapacity: 25},
		{Code: "TD", Count: 10, Capacity: 5, TareKg: 3000, FuelCapacity: 25},
	}
}

// Registry owns every vehicle of the run. The fleet size is fixed.
type Registry struct {
	vehicles []*model.Vehicle
	byID     map[string]*model.Vehicle
}

// NewRegistry creates Count vehicles per class, fully loaded and fuelled at depot.
// Vehicle ids are the class code followed by a two digit index, e.g. TA01.
func NewRegistry(classes []model.VehicleClass, depot model.Cell) (*Registry, error) {
	if len(classes) == 0 {
		return nil, errors.New("fleet has no vehicle classes")
	}
	r := &Registry{byID: make(map[string]*model.Vehicle)}
	for _, c := range classes {
		if c.Capacity <= 0 || c.FuelCapacity <= 0 {
			return nil, fmt.Errorf("class %s: capacity and fuel capacity must be positive", c.Code)
		}
		for i := 1; i <= c.Count; i++ {
			v := &model.Vehicle{
				ID:           fmt.Sprintf("%s%02d", c.Code, i),
				Class:        c.Code,
				Capacity:     c.Capacity,
				TareKg:       c.TareKg,
				FuelCapacity: c.FuelCapacity,
				Fuel:         c.FuelCapacity,
				Cargo:        c.Capacity,
				Position:     depot,
				Status:       model.VehicleAvailable,
			}
			if err := r.add(v); err != nil {
				return nil, err
			}
		}
	}
	if len(r.vehicles) == 0 {
		return nil, errors.New("fleet is empty")
	}
	return r, nil
}

func (r *Registry) add(v *model.Vehicle) error {
	if _, ok := r.byID[v.ID]; ok {
		return fmt.Errorf("duplicate vehicle id %s", v.ID)
	}
	r.byID[v.ID] = v
	r.vehicles = append(r.vehicles, v)
	return nil
}

// Get resolves a vehicle by identifier.
func (r *Registry) Get(id string) (*model.Vehicle, bool) {
	v, ok := r.byID[id]
	return v, ok
}

// All returns the live vehicles in creation order. The slice must not be modified.
func (r *Registry) All() []*model.Vehicle { return r.vehicles }

// Len returns the fleet size.
func (r *Registry) Len() int { return len(r.vehicles) }

// Snapshot returns deep copies of every vehicle.
func (r *Registry) Snapshot() []model.Vehicle {
	out := make([]model.Vehicle, len(r.vehicles))
	for i, v := range r.vehicles {
		out[i] = v.Clone()
	}
	return out
}

// MaxCapacity returns the largest cargo capacity in the fleet.
func (r *Registry) MaxCapacity() float64 {
	max := 0.0
	for _, v := range r.vehicles {
		if v.Capacity > max {
			max = v.Capacity
		}
	}
	return max
}

// CountByStatus tallies vehicles per status.
func (r *Registry) CountByStatus() map[model.VehicleStatus]int {
	out := make(map[model.VehicleStatus]int, 3)
	for _, v := range r.vehicles {
		out[v.Status]++
	}
	return out
}
