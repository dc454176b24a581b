package model

import "fmt"

// Cell is an integer lattice coordinate.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Manhattan returns the grid distance between two cells.
func (c Cell) Manhattan(o Cell) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y)
}

// Neighbors returns the four axis-aligned neighbours in a fixed order.
func (c Cell) Neighbors() [4]Cell {
	return [4]Cell{
		{c.X + 1, c.Y},
		{c.X - 1, c.Y},
		{c.X, c.Y + 1},
		{c.X, c.Y - 1},
	}
}

// Adjacent reports whether o is one unit step away from c.
func (c Cell) Adjacent(o Cell) bool { return c.Manhattan(o) == 1 }

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Edge is an undirected unit edge between two adjacent cells. Use NewEdge so
// that (a,b) and (b,a) map to the same key.
type Edge struct {
	A Cell `json:"a"`
	B Cell `json:"b"`
}

// NewEdge returns the normalised edge between a and b.
func NewEdge(a, b Cell) Edge {
	if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

func (e Edge) String() string { return e.A.String() + "-" + e.B.String() }

// Grid is a bounded rectangular lattice [0,Width] x [0,Height].
type Grid struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Contains reports whether c lies inside the grid bounds.
func (g Grid) Contains(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X <= g.Width && c.Y <= g.Height
}

// Walk expands a segment into unit steps, x first then y. The start cell is
// not included.
func Walk(from, to Cell) []Cell {
	steps := make([]Cell, 0, from.Manhattan(to))
	cur := from
	for cur.X != to.X {
		cur.X += sign(to.X - cur.X)
		steps = append(steps, cur)
	}
	for cur.Y != to.Y {
		cur.Y += sign(to.Y - cur.Y)
		steps = append(steps, cur)
	}
	return steps
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
