// Package journal persists the outcome of every replanning round so a run can
// be audited after the fact.
package journal

import (
	"context"
	"time"
)

// Record captures one replanning round.
type Record struct {
	Timestamp  time.Time     `json:"timestamp"`
	RunID      string        `json:"run_id"`
	Minute     int           `json:"minute"`
	Candidates []string      `json:"candidates"`
	Routes     []RouteRecord `json:"routes"`
	Unassigned []string      `json:"unassigned,omitempty"`
	Cost       float64       `json:"cost"`
	Duration   time.Duration `json:"duration"`
}

// RouteRecord is one solver route and what the scheduler did with it.
type RouteRecord struct {
	VehicleID string   `json:"vehicle_id"`
	Strategy  string   `json:"strategy"`
	Orders    []string `json:"orders"`
	Arrivals  []int    `json:"arrivals"`
	Committed []string `json:"committed"`
}

// Query filters records. Zero values do not filter.
type Query struct {
	FromMinute int
	ToMinute   int
	VehicleID  string
	OrderID    string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Matches reports whether rec satisfies q.
func (q Query) Matches(rec Record) bool {
	if rec.Minute < q.FromMinute {
		return false
	}
	if q.ToMinute > 0 && rec.Minute > q.ToMinute {
		return false
	}
	if q.VehicleID != "" {
		found := false
		for _, r := range rec.Routes {
			if r.VehicleID == q.VehicleID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.OrderID != "" {
		return contains(rec.Candidates, q.OrderID)
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
