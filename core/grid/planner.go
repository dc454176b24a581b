package grid

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/kilianp07/acodispatch/core/model"
)

// ErrNoPath is returned when no route avoids the active blockages.
var ErrNoPath = errors.New("no path")

// ErrOutOfGrid is returned for endpoints outside the grid bounds.
var ErrOutOfGrid = errors.New("cell outside grid")

// Planner builds step paths across the grid honouring time-indexed closures.
type Planner struct {
	grid  model.Grid
	index *BlockageIndex
}

// NewPlanner returns a planner backed by index. A nil index means no closures.
func NewPlanner(g model.Grid, index *BlockageIndex) *Planner {
	return &Planner{grid: g, index: index}
}

// BuildPath returns the cells visited when leaving from at minute and heading
// to to. The result excludes from and ends with to. Step i is checked at
// minute+i+1. The final step into to is never considered blocked.
func (p *Planner) BuildPath(from, to model.Cell, minute int) ([]model.Cell, error) {
	if !p.grid.Contains(from) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfGrid, from)
	}
	if !p.grid.Contains(to) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfGrid, to)
	}
	if from == to {
		return []model.Cell{}, nil
	}
	direct := model.Walk(from, to)
	prev := from
	for i, next := range direct {
		arrival := minute + i + 1
		if next != to && p.index.IsEdgeBlocked(prev, next, arrival) {
			detour, err := p.search(prev, to, minute+i)
			if err != nil {
				return nil, err
			}
			return append(direct[:i:i], detour...), nil
		}
		prev = next
	}
	return direct, nil
}

// Distance returns the step count of BuildPath.
func (p *Planner) Distance(from, to model.Cell, minute int) (int, error) {
	path, err := p.BuildPath(from, to, minute)
	if err != nil {
		return 0, err
	}
	return len(path), nil
}

type node struct {
	cell  model.Cell
	g, f  int
	index int
}

type openSet []*node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].g > o[j].g
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return n
}

// search runs A* from start (occupied at minute) to goal.
func (p *Planner) search(start, goal model.Cell, minute int) ([]model.Cell, error) {
	open := &openSet{}
	heap.Push(open, &node{cell: start, g: 0, f: start.Manhattan(goal)})
	cameFrom := map[model.Cell]model.Cell{}
	best := map[model.Cell]int{start: 0}
	closed := map[model.Cell]bool{}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if cur.cell == goal {
			return reconstruct(cameFrom, start, goal), nil
		}
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true
		arrival := minute + cur.g + 1
		for _, n := range cur.cell.Neighbors() {
			if !p.grid.Contains(n) || closed[n] {
				continue
			}
			if n != goal && p.index.IsEdgeBlocked(cur.cell, n, arrival) {
				continue
			}
			g := cur.g + 1
			if old, ok := best[n]; ok && old <= g {
				continue
			}
			best[n] = g
			cameFrom[n] = cur.cell
			heap.Push(open, &node{cell: n, g: g, f: g + n.Manhattan(goal)})
		}
	}
	return nil, fmt.Errorf("%w: %s -> %s at minute %d", ErrNoPath, start, goal, minute)
}

func reconstruct(cameFrom map[model.Cell]model.Cell, start, goal model.Cell) []model.Cell {
	var rev []model.Cell
	for c := goal; c != start; c = cameFrom[c] {
		rev = append(rev, c)
	}
	path := make([]model.Cell, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}
