package solver

import (
	"errors"
	"runtime"
)

// Params tunes the colony.
type Params struct {
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	Rho        float64 `json:"rho"`
	Q          float64 `json:"q"`
	Iterations int     `json:"iterations"`
	Ants       int     `json:"ants"`
	// Workers bounds concurrent ant construction. Zero uses GOMAXPROCS.
	Workers int `json:"workers"`
	// Seed makes runs reproducible. Zero keeps the default seed of 1.
	Seed int64 `json:"seed"`
}

// DefaultParams returns alpha=1 beta=2 rho=0.1 Q=1000 with 50 iterations of 10 ants.
func DefaultParams() Params {
	return Params{Alpha: 1, Beta: 2, Rho: 0.1, Q: 1000, Iterations: 50, Ants: 10, Seed: 1}
}

// SetDefaults fills zero values.
func (p *Params) SetDefaults() {
	d := DefaultParams()
	if p.Alpha == 0 {
		p.Alpha = d.Alpha
	}
	if p.Beta == 0 {
		p.Beta = d.Beta
	}
	if p.Rho == 0 {
		p.Rho = d.Rho
	}
	if p.Q == 0 {
		p.Q = d.Q
	}
	if p.Iterations == 0 {
		p.Iterations = d.Iterations
	}
	if p.Ants == 0 {
		p.Ants = d.Ants
	}
	if p.Workers == 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	if p.Seed == 0 {
		p.Seed = d.Seed
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Alpha < 0 || p.Beta < 0 {
		return errors.New("alpha and beta must be non-negative")
	}
	if p.Rho <= 0 || p.Rho >= 1 {
		return errors.New("rho must be in (0,1)")
	}
	if p.Q <= 0 {
		return errors.New("q must be positive")
	}
	if p.Iterations <= 0 || p.Ants <= 0 {
		return errors.New("iterations and ants must be positive")
	}
	if p.Workers < 0 {
		return errors.New("workers must be non-negative")
	}
	return nil
}
