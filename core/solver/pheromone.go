package solver

import "gonum.org/v1/gonum/mat"

// Pheromone holds one trail intensity per (vehicle, order) pair.
type Pheromone struct {
	m *mat.Dense
}

// NewPheromone returns a vehicles x orders matrix filled with init.
// Both dimensions must be positive.
func NewPheromone(vehicles, orders int, init float64) *Pheromone {
	data := make([]float64, vehicles*orders)
	for i := range data {
		data[i] = init
	}
	return &Pheromone{m: mat.NewDense(vehicles, orders, data)}
}

// At returns the intensity for vehicle v and order i.
func (p *Pheromone) At(v, i int) float64 { return p.m.At(v, i) }

// Dims returns the matrix shape.
func (p *Pheromone) Dims() (vehicles, orders int) { return p.m.Dims() }

// Evaporate scales every cell by (1-rho).
func (p *Pheromone) Evaporate(rho float64) {
	p.m.Scale(1-rho, p.m)
}

// Deposit adds amount to the (v, i) cell. Negative amounts are ignored.
func (p *Pheromone) Deposit(v, i int, amount float64) {
	if amount <= 0 {
		return
	}
	p.m.Set(v, i, p.m.At(v, i)+amount)
}

// Min returns the smallest intensity in the matrix.
func (p *Pheromone) Min() float64 {
	return mat.Min(p.m)
}

// Max returns the largest intensity in the matrix.
func (p *Pheromone) Max() float64 {
	return mat.Max(p.m)
}
