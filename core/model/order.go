package model

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderScheduled
	OrderDelivered
	OrderDiscarded
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"
	case OrderScheduled:
		return "scheduled"
	case OrderDelivered:
		return "delivered"
	case OrderDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderDiscarded
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderScheduled || next == OrderDiscarded
	case OrderScheduled:
		return next == OrderPending || next == OrderDelivered || next == OrderDiscarded
	case OrderDelivered, OrderDiscarded:
		return false
	}
	return false
}

// Order is a volume-bound delivery request.
type Order struct {
	ID          string      `json:"id"`
	ParentID    string      `json:"parent_id,omitempty"`
	CreatedAt   int         `json:"created_at"`
	Deadline    int         `json:"deadline"`
	Destination Cell        `json:"destination"`
	Volume      float64     `json:"volume"`
	Status      OrderStatus `json:"status"`

	// Reason is set when the order is discarded.
	Reason string `json:"reason,omitempty"`
	// DeliveredAt is the minute the delivery event fired.
	DeliveredAt int `json:"delivered_at,omitempty"`
	// VehicleID is the vehicle currently committed to the order.
	VehicleID string `json:"vehicle_id,omitempty"`
}

// LeadTime returns the allowed minutes between creation and deadline.
func (o *Order) LeadTime() int { return o.Deadline - o.CreatedAt }

// Open reports whether the order still awaits delivery.
func (o *Order) Open() bool {
	return o.Status == OrderPending || o.Status == OrderScheduled
}

// DeliveryEvent is a committed future delivery.
type DeliveryEvent struct {
	Minute    int
	VehicleID string
	OrderID   string
}
