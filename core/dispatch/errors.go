package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrCollapse is returned when an order misses its deadline under CollapseHalt.
	ErrCollapse = errors.New("deadline collapse")
	// ErrNegativeCargo signals a delivery larger than the cargo on board.
	ErrNegativeCargo = errors.New("cargo would go negative")
	// ErrInfeasibleRoute signals solver output that breaks a feasibility rule.
	ErrInfeasibleRoute = errors.New("infeasible route")
)

// CollapseError identifies the order that ended the run.
type CollapseError struct {
	OrderID  string
	Deadline int
	Minute   int
}

func (e *CollapseError) Error() string {
	return fmt.Sprintf("order %s missed deadline %d at minute %d", e.OrderID, e.Deadline, e.Minute)
}

func (e *CollapseError) Unwrap() error { return ErrCollapse }
