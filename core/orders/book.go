package orders

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/acodispatch/core/model"
)

var (
	// ErrTerminal is returned when mutating a delivered or discarded order.
	ErrTerminal = errors.New("order is terminal")
	// ErrInvalidTransition is returned for a transition outside the lifecycle.
	ErrInvalidTransition = errors.New("invalid order transition")
	// ErrUnknownOrder is returned when an order id is not in the book.
	ErrUnknownOrder = errors.New("unknown order")
)

// Rejection records an order refused at intake.
type Rejection struct {
	OrderID string
	Reason  string
}

// Book owns every order of the run.
type Book struct {
	minLead int

	all      []*model.Order
	byID     map[string]*model.Order
	parents  map[string]model.Order
	incoming []*model.Order
	active   []*model.Order
}

// NewBook returns an empty book. Orders whose lead time is below minLead
// minutes are rejected at intake; zero disables the check.
func NewBook(minLead int) *Book {
	return &Book{
		minLead: minLead,
		byID:    make(map[string]*model.Order),
		parents: make(map[string]model.Order),
	}
}

// Split divides o into ceil(volume/maxCapacity) children of at most
// maxCapacity each. An order that already fits is returned unchanged.
func Split(o model.Order, maxCapacity float64) ([]model.Order, error) {
	if maxCapacity <= 0 {
		return nil, errors.New("fleet capacity must be positive")
	}
	if o.Volume <= 0 || math.IsNaN(o.Volume) || math.IsInf(o.Volume, 0) {
		return nil, fmt.Errorf("invalid volume %v", o.Volume)
	}
	if o.Volume <= maxCapacity {
		return []model.Order{o}, nil
	}
	n := int(math.Ceil(o.Volume / maxCapacity))
	children := make([]model.Order, 0, n)
	remaining := o.Volume
	for i := 1; i <= n; i++ {
		part := math.Min(maxCapacity, remaining)
		if i == n {
			part = remaining
		}
		c := o
		c.ID = fmt.Sprintf("%s-%d", o.ID, i)
		c.ParentID = o.ID
		c.Volume = part
		children = append(children, c)
		remaining -= part
	}
	return children, nil
}

// Intake validates and splits orders and queues them for activation at their
// creation minute. Refused orders are kept as Discarded with a reason.
func (b *Book) Intake(in []model.Order, maxCapacity float64) []Rejection {
	var rejected []Rejection
	for _, o := range in {
		o.Status = model.OrderPending
		if _, dup := b.byID[o.ID]; dup || b.isParent(o.ID) {
			rejected = append(rejected, Rejection{OrderID: o.ID, Reason: "duplicate order id"})
			continue
		}
		if b.minLead > 0 && o.LeadTime() < b.minLead {
			rejected = append(rejected, b.reject(o, fmt.Sprintf("lead time %d below minimum %d", o.LeadTime(), b.minLead)))
			continue
		}
		parts, err := Split(o, maxCapacity)
		if err != nil {
			rejected = append(rejected, b.reject(o, "infeasible split: "+err.Error()))
			continue
		}
		if len(parts) > 1 {
			b.parents[o.ID] = o
		}
		for i := range parts {
			p := parts[i]
			b.store(&p)
			b.incoming = append(b.incoming, &p)
		}
	}
	sort.SliceStable(b.incoming, func(i, j int) bool { return b.incoming[i].CreatedAt < b.incoming[j].CreatedAt })
	return rejected
}

func (b *Book) isParent(id string) bool {
	_, ok := b.parents[id]
	return ok
}

func (b *Book) reject(o model.Order, reason string) Rejection {
	o.Status = model.OrderDiscarded
	o.Reason = reason
	b.store(&o)
	return Rejection{OrderID: o.ID, Reason: reason}
}

func (b *Book) store(o *model.Order) {
	b.all = append(b.all, o)
	b.byID[o.ID] = o
}

// Activate moves every queued order created at or before minute into the
// active set and returns them.
func (b *Book) Activate(minute int) []*model.Order {
	n := 0
	for n < len(b.incoming) && b.incoming[n].CreatedAt <= minute {
		n++
	}
	if n == 0 {
		return nil
	}
	arrived := b.incoming[:n:n]
	b.incoming = b.incoming[n:]
	b.active = append(b.active, arrived...)
	return arrived
}

// Transition moves o to next if the lifecycle allows it.
func (b *Book) Transition(o *model.Order, next model.OrderStatus) error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, o.ID, o.Status)
	}
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, o.ID, o.Status, next)
	}
	o.Status = next
	if next == model.OrderPending {
		o.VehicleID = ""
	}
	return nil
}

// Discard marks o discarded with the given reason.
func (b *Book) Discard(o *model.Order, reason string) error {
	if err := b.Transition(o, model.OrderDiscarded); err != nil {
		return err
	}
	o.Reason = reason
	return nil
}

// Get resolves an order by id.
func (b *Book) Get(id string) (*model.Order, error) {
	o, ok := b.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	return o, nil
}

// Overdue returns active open orders whose deadline is before minute.
func (b *Book) Overdue(minute int) []*model.Order {
	var out []*model.Order
	for _, o := range b.active {
		if o.Open() && minute > o.Deadline {
			out = append(out, o)
		}
	}
	return out
}

// Open returns active orders still awaiting delivery.
func (b *Book) Open() []*model.Order {
	var out []*model.Order
	for _, o := range b.active {
		if o.Open() {
			out = append(out, o)
		}
	}
	return out
}

// All returns every order known to the book, including rejected ones, in
// intake order. Split parents are not included; see Parent.
func (b *Book) All() []*model.Order { return b.all }

// Parent returns the original order a child was split from.
func (b *Book) Parent(id string) (model.Order, bool) {
	p, ok := b.parents[id]
	return p, ok
}

// Queued returns the number of orders not yet activated.
func (b *Book) Queued() int { return len(b.incoming) }

// Counts tallies orders per status.
func (b *Book) Counts() map[model.OrderStatus]int {
	out := make(map[model.OrderStatus]int, 4)
	for _, o := range b.all {
		out[o.Status]++
	}
	return out
}

// Snapshot returns copies of every order.
func (b *Book) Snapshot() []model.Order {
	out := make([]model.Order, len(b.all))
	for i, o := range b.all {
		out[i] = *o
	}
	return out
}
