package matching

import (
	"time"

	"github.com/google/uuid"
)

// Order is the engine's unit of work. Prices and quantities are fixed-point
// integers scaled by the instrument's tick size; the engine never touches
// floating point.
type Order struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	InstrumentID uuid.UUID
	ExtID      string

	Side         Side
	OrderType    OrderType
	TimeInForce  TimeInForce

	// LimitPrice is present iff OrderType is Limit or StopLimit.
	LimitPrice *int64
	// TriggerPrice is present iff OrderType is Stop or StopLimit.
	TriggerPrice *int64

	BaseAmount uint64

	RemainingBase uint64
	FilledBase    uint64
	RemainingQuote uint64
	FilledQuote    uint64

	Status OrderStatus

	// SequenceID is assigned by the engine at acceptance; it is the
	// time-priority tie-break key and the global event ordering key.
	SequenceID uint64

	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpirationDate time.Time

	// node is the PriceLevel's intrusive list element while resting;
	// nil for orders that have never rested.
	node *listNode
}

// HasLimitPrice reports whether the order carries a resting price.
func (o *Order) HasLimitPrice() bool {
	return o.LimitPrice != nil
}

// Clone returns a value copy safe to hand to a caller outside the worker.
// The intrusive list node is deliberately not copied: callers must never
// be able to reach back into the book through a cloned order.
func (o Order) Clone() Order {
	clone := o
	clone.node = nil
	if o.LimitPrice != nil {
		p := *o.LimitPrice
		clone.LimitPrice = &p
	}
	if o.TriggerPrice != nil {
		p := *o.TriggerPrice
		clone.TriggerPrice = &p
	}
	return clone
}

// applyFill mutates the order after a match of `qty` base at `price`,
// updating status. Returns true if the order is now fully filled.
func (o *Order) applyFill(qty uint64, price int64, now time.Time) bool {
	o.RemainingBase -= qty
	o.FilledBase += qty
	o.FilledQuote += uint64(price) * qty
	o.UpdatedAt = now
	if o.RemainingBase == 0 {
		o.Status = Filled
		return true
	}
	o.Status = PartiallyFilled
	return false
}
