package model

import (
	"fmt"
	"math"
)

// Physics holds the numeric constants linking distance, time, weight and fuel.
type Physics struct {
	// MinutesPerUnit is the travel time of one grid step.
	MinutesPerUnit float64 `json:"minutes_per_unit" yaml:"minutes_per_unit"`
	// CargoDensity converts cargo volume to tonnes.
	CargoDensity float64 `json:"cargo_density" yaml:"cargo_density"`
	// FuelEfficiency is the distance covered per fuel unit for one tonne.
	FuelEfficiency float64 `json:"fuel_efficiency" yaml:"fuel_efficiency"`
	// ModelFuel selects fuel as the route cost. When false distance is used.
	ModelFuel bool `json:"model_fuel" yaml:"model_fuel"`
}

// DefaultPhysics returns 50 km/h over 1 km cells with LPG density.
func DefaultPhysics() Physics {
	return Physics{MinutesPerUnit: 1.2, CargoDensity: 0.5, FuelEfficiency: 180, ModelFuel: true}
}

// SetDefaults fills zero fields.
func (p *Physics) SetDefaults() {
	d := DefaultPhysics()
	if p.MinutesPerUnit <= 0 {
		p.MinutesPerUnit = d.MinutesPerUnit
	}
	if p.CargoDensity <= 0 {
		p.CargoDensity = d.CargoDensity
	}
	if p.FuelEfficiency <= 0 {
		p.FuelEfficiency = d.FuelEfficiency
	}
}

// Validate rejects constants a minute clock cannot follow. A vehicle moves at
// most one step per minute, so a step must take at least a minute.
func (p Physics) Validate() error {
	if p.MinutesPerUnit < 1 {
		return fmt.Errorf("minutes_per_unit %.2f below one minute", p.MinutesPerUnit)
	}
	return nil
}

// TravelMinutes returns ceil(dist * MinutesPerUnit).
func (p Physics) TravelMinutes(dist int) int {
	// 5*1.2 is 6.000000000000001 in float64.
	return int(math.Ceil(float64(dist)*p.MinutesPerUnit - 1e-9))
}

// TripFuel is the fuel needed to carry volume over dist with the given tare.
func (p Physics) TripFuel(dist int, tareKg, volume float64) float64 {
	return float64(dist) * p.weight(tareKg, volume) / p.FuelEfficiency
}

// StepFuel is the fuel burnt by one unit move with the given load on board.
func (p Physics) StepFuel(tareKg, cargo float64) float64 {
	return p.weight(tareKg, cargo) / p.FuelEfficiency
}

// RouteCost returns fuel or distance depending on ModelFuel.
func (p Physics) RouteCost(dist int, fuel float64) float64 {
	if p.ModelFuel {
		return fuel
	}
	return float64(dist)
}

func (p Physics) weight(tareKg, volume float64) float64 {
	return tareKg/1000 + volume*p.CargoDensity
}
