package resupply

import (
	"fmt"

	"github.com/kilianp07/acodispatch/core/model"
)

// DefaultRefreshPeriod resets tanks once per simulated day.
const DefaultRefreshPeriod = model.MinutesPerDay

// Network is the depot plus the intermediate tanks. The depot has unlimited stock.
type Network struct {
	depot model.Cell
	tanks []*model.Tank
	byID  map[string]*model.Tank

	// reserved is volume promised to vehicles already heading to a tank.
	reserved map[string]float64
	period   int
}

// NewNetwork builds the network. Tanks start full. A period <= 0 selects
// DefaultRefreshPeriod.
func NewNetwork(depot model.Cell, tanks []model.Tank, period int) (*Network, error) {
	if period <= 0 {
		period = DefaultRefreshPeriod
	}
	n := &Network{
		depot:    depot,
		byID:     make(map[string]*model.Tank),
		reserved: make(map[string]float64),
		period:   period,
	}
	for i := range tanks {
		t := tanks[i]
		if t.ID == "" {
			t.ID = fmt.Sprintf("tank-%d", i+1)
		}
		if t.Capacity <= 0 {
			return nil, fmt.Errorf("tank %s: capacity must be positive", t.ID)
		}
		if _, dup := n.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tank id %s", t.ID)
		}
		t.Available = t.Capacity
		n.tanks = append(n.tanks, &t)
		n.byID[t.ID] = &t
	}
	return n, nil
}

// Depot returns the depot location.
func (n *Network) Depot() model.Cell { return n.depot }

// Stop is a resupply destination. TankID is empty for the depot.
type Stop struct {
	Location model.Cell
	TankID   string
}

// IsDepot reports whether the stop is the depot.
func (s Stop) IsDepot() bool { return s.TankID == "" }

// SelectReturn picks the nearest tank holding at least deficit that is strictly
// closer than the depot. Otherwise the depot is returned.
func (n *Network) SelectReturn(from model.Cell, deficit float64) Stop {
	best := Stop{Location: n.depot}
	bestDist := from.Manhattan(n.depot)
	for _, t := range n.tanks {
		if n.free(t) < deficit {
			continue
		}
		if d := from.Manhattan(t.Location); d < bestDist {
			best = Stop{Location: t.Location, TankID: t.ID}
			bestDist = d
		}
	}
	return best
}

func (n *Network) free(t *model.Tank) float64 { return t.Available - n.reserved[t.ID] }

// Reserve sets aside amount for a vehicle that selected the tank.
func (n *Network) Reserve(tankID string, amount float64) error {
	if tankID == "" || amount <= 0 {
		return nil
	}
	t, ok := n.byID[tankID]
	if !ok {
		return fmt.Errorf("unknown tank %s", tankID)
	}
	if amount > n.free(t) {
		return fmt.Errorf("tank %s has %.2f unreserved, cannot reserve %.2f", tankID, n.free(t), amount)
	}
	n.reserved[tankID] += amount
	return nil
}

// Deplete removes amount from the tank and releases the matching reservation.
// The depot (empty id) is never depleted.
func (n *Network) Deplete(tankID string, amount float64) error {
	if tankID == "" || amount <= 0 {
		return nil
	}
	t, ok := n.byID[tankID]
	if !ok {
		return fmt.Errorf("unknown tank %s", tankID)
	}
	if amount > t.Available {
		return fmt.Errorf("tank %s holds %.2f, cannot supply %.2f", tankID, t.Available, amount)
	}
	t.Available -= amount
	n.reserved[tankID] -= amount
	if n.reserved[tankID] < 0 {
		n.reserved[tankID] = 0
	}
	return nil
}

// Refresh refills every tank at the start of each period after minute 0.
// It reports whether a refill happened.
func (n *Network) Refresh(minute int) bool {
	if minute <= 0 || minute%n.period != 0 {
		return false
	}
	for _, t := range n.tanks {
		t.Available = t.Capacity
	}
	return true
}

// Tanks returns copies of the tanks.
func (n *Network) Tanks() []model.Tank {
	out := make([]model.Tank, len(n.tanks))
	for i, t := range n.tanks {
		out[i] = *t
	}
	return out
}
