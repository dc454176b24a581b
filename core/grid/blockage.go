// Package grid answers reachability questions on the lattice: which moves are
// closed at a given minute and how a vehicle gets from one cell to another.
package grid

import (
	"fmt"
	"sort"

	"github.com/kilianp07/acodispatch/core/model"
)

// Policy selects how a blockage polyline closes the grid.
type Policy string

const (
	// PolicyEdge closes the unit edges along the polyline.
	PolicyEdge Policy = "edge"
	// PolicyPoint closes every cell on the polyline; entering one is blocked.
	PolicyPoint Policy = "point"
)

// ParsePolicy validates a policy name. Empty selects PolicyEdge.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyEdge, nil
	case PolicyEdge, PolicyPoint:
		return p, nil
	}
	return "", fmt.Errorf("unknown blockage policy %q", s)
}

type indexed struct {
	start, end int
	edges      map[model.Edge]struct{}
	cells      map[model.Cell]struct{}
}

func (b *indexed) active(minute int) bool { return b.start <= minute && minute < b.end }

// BlockageIndex stores the loaded blockages and answers time-indexed queries.
type BlockageIndex struct {
	grid      model.Grid
	policy    Policy
	blockages []indexed
}

// NewBlockageIndex expands the blockages once so queries are map lookups.
func NewBlockageIndex(g model.Grid, policy Policy, blockages []model.Blockage) *BlockageIndex {
	if policy == "" {
		policy = PolicyEdge
	}
	ix := &BlockageIndex{grid: g, policy: policy}
	for _, b := range blockages {
		e := indexed{start: b.Start, end: b.End, edges: map[model.Edge]struct{}{}, cells: map[model.Cell]struct{}{}}
		for _, edge := range b.Edges() {
			e.edges[edge] = struct{}{}
		}
		for _, c := range b.Cells() {
			e.cells[c] = struct{}{}
		}
		ix.blockages = append(ix.blockages, e)
	}
	sort.SliceStable(ix.blockages, func(i, j int) bool { return ix.blockages[i].start < ix.blockages[j].start })
	return ix
}

// Grid returns the bounds the index was built for.
func (ix *BlockageIndex) Grid() model.Grid { return ix.grid }

// Policy returns the active blockage policy.
func (ix *BlockageIndex) Policy() Policy { return ix.policy }

// IsEdgeBlocked reports whether moving from a into b is closed at minute.
// Under PolicyPoint only the entered cell b matters.
func (ix *BlockageIndex) IsEdgeBlocked(a, b model.Cell, minute int) bool {
	if ix == nil {
		return false
	}
	edge := model.NewEdge(a, b)
	for i := range ix.blockages {
		bl := &ix.blockages[i]
		if bl.start > minute {
			break
		}
		if !bl.active(minute) {
			continue
		}
		switch ix.policy {
		case PolicyPoint:
			if _, ok := bl.cells[b]; ok {
				return true
			}
		default:
			if _, ok := bl.edges[edge]; ok {
				return true
			}
		}
	}
	return false
}

// BlockedCells lists the cells on active polylines at minute.
func (ix *BlockageIndex) BlockedCells(minute int) []model.Cell {
	seen := map[model.Cell]struct{}{}
	var out []model.Cell
	for i := range ix.blockages {
		bl := &ix.blockages[i]
		if !bl.active(minute) {
			continue
		}
		for c := range bl.cells {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sortCells(out)
	return out
}

// BlockedEdges lists the edges that cannot be traversed at minute. Under
// PolicyPoint that is every in-grid edge touching a blocked cell.
func (ix *BlockageIndex) BlockedEdges(minute int) []model.Edge {
	seen := map[model.Edge]struct{}{}
	var out []model.Edge
	add := func(e model.Edge) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for i := range ix.blockages {
		bl := &ix.blockages[i]
		if !bl.active(minute) {
			continue
		}
		if ix.policy == PolicyPoint {
			for c := range bl.cells {
				for _, n := range c.Neighbors() {
					if ix.grid.Contains(n) {
						add(model.NewEdge(c, n))
					}
				}
			}
			continue
		}
		for e := range bl.edges {
			add(e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return lessCell(out[i].A, out[j].A)
		}
		return lessCell(out[i].B, out[j].B)
	})
	return out
}

func lessCell(a, b model.Cell) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func sortCells(cells []model.Cell) {
	sort.Slice(cells, func(i, j int) bool { return lessCell(cells[i], cells[j]) })
}
