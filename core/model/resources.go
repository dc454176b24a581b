package model

import "fmt"

// Blockage closes a polyline of cells during [Start, End).
type Blockage struct {
	Start    int    `json:"start" yaml:"start"`
	End      int    `json:"end" yaml:"end"`
	Polyline []Cell `json:"polyline" yaml:"polyline"`
}

// Active reports whether the blockage applies at minute.
func (b Blockage) Active(minute int) bool {
	return b.Start <= minute && minute < b.End
}

// Cells expands the polyline into every lattice cell it covers.
func (b Blockage) Cells() []Cell {
	if len(b.Polyline) == 0 {
		return nil
	}
	cells := []Cell{b.Polyline[0]}
	for i := 1; i < len(b.Polyline); i++ {
		cells = append(cells, Walk(b.Polyline[i-1], b.Polyline[i])...)
	}
	return cells
}

// Edges expands the polyline into unit edges between consecutive cells.
func (b Blockage) Edges() []Edge {
	cells := b.Cells()
	if len(cells) < 2 {
		return nil
	}
	edges := make([]Edge, 0, len(cells)-1)
	for i := 1; i < len(cells); i++ {
		if cells[i] == cells[i-1] {
			continue
		}
		edges = append(edges, NewEdge(cells[i-1], cells[i]))
	}
	return edges
}

// Tank is an intermediate resupply point.
type Tank struct {
	ID        string  `json:"id" yaml:"id"`
	Location  Cell    `json:"location" yaml:"location"`
	Capacity  float64 `json:"capacity" yaml:"capacity"`
	Available float64 `json:"available" yaml:"available"`
}

// Shift identifies an eight hour slot of the day.
type Shift string

const (
	ShiftT1 Shift = "T1"
	ShiftT2 Shift = "T2"
	ShiftT3 Shift = "T3"

	MinutesPerDay = 1440
)

// ShiftAt returns the shift containing the simulated minute.
func ShiftAt(minute int) Shift {
	m := minute % MinutesPerDay
	switch {
	case m < 480:
		return ShiftT1
	case m < 960:
		return ShiftT2
	default:
		return ShiftT3
	}
}

// Severity is a breakdown incident type selecting a downtime penalty.
type Severity string

const (
	SeverityT1 Severity = "T1"
	SeverityT2 Severity = "T2"
	SeverityT3 Severity = "T3"
)

// DefaultPenalties maps severities to downtime minutes.
func DefaultPenalties() map[Severity]int {
	return map[Severity]int{SeverityT1: 30, SeverityT2: 60, SeverityT3: 90}
}

// ParseSeverity validates a severity code.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityT1, SeverityT2, SeverityT3:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// BreakdownSchedule maps shift -> vehicle id -> severity.
type BreakdownSchedule map[Shift]map[string]Severity

// Add records a breakdown, creating the shift entry if needed.
func (s BreakdownSchedule) Add(shift Shift, vehicleID string, sev Severity) {
	m, ok := s[shift]
	if !ok {
		m = make(map[string]Severity)
		s[shift] = m
	}
	m[vehicleID] = sev
}
