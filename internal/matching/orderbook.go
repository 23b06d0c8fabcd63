package matching

import (
	"github.com/google/uuid"
	"github.com/tidwall/btree"
)

type priceLevels = btree.BTreeG[*PriceLevel]

// OrderBook is the passive, dual-sided container of resting orders for one
// instrument. It never matches orders itself; MatchingEngine drives it.
type OrderBook struct {
	InstrumentID uuid.UUID

	bids *priceLevels // ordered descending by price (best bid first)
	asks *priceLevels // ordered ascending by price (best ask first)

	orderIndex map[uuid.UUID]*Order

	nextSequence uint64

	bestBid *int64
	bestAsk *int64
}

// NewOrderBook creates an empty book for one instrument.
func NewOrderBook(instrumentID uuid.UUID) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})
	return &OrderBook{
		InstrumentID: instrumentID,
		bids:         bids,
		asks:         asks,
		orderIndex:   make(map[uuid.UUID]*Order),
	}
}

func (b *OrderBook) levelsFor(side Side) *priceLevels {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

// NextSequence hands out the book's next monotonic sequence id. Exposed so
// the owning MatchingEngine can share one counter across orders and trades.
func (b *OrderBook) NextSequence() uint64 {
	b.nextSequence++
	return b.nextSequence
}

// AddOrder rests an order on the book. The caller (MatchingEngine) is
// responsible for acceptance validation; AddOrder only enforces the
// book-level invariants it alone can guarantee.
func (b *OrderBook) AddOrder(order *Order) error {
	if !order.HasLimitPrice() {
		return ErrNoLimitPrice
	}
	if order.InstrumentID != b.InstrumentID {
		return ErrWrongInstrument
	}
	if order.RemainingBase == 0 {
		return ErrInvalidQuantity
	}
	if _, exists := b.orderIndex[order.ID]; exists {
		return ErrDuplicateOrderID
	}
	if order.SequenceID == 0 {
		order.SequenceID = b.NextSequence()
	}

	levels := b.levelsFor(order.Side)
	price := *order.LimitPrice
	level, ok := levels.Get(&PriceLevel{Price: price})
	if !ok {
		level = newPriceLevel(price)
		levels.Set(level)
	}
	level.append(order)
	b.orderIndex[order.ID] = order

	b.refreshBest(order.Side)
	return nil
}

// RemoveOrder removes and returns a resting order, destroying its level if
// it was the last order there.
func (b *OrderBook) RemoveOrder(id uuid.UUID) (*Order, error) {
	order, ok := b.orderIndex[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	level := order.node.level
	side := order.Side
	level.remove(order)
	delete(b.orderIndex, id)

	if level.empty() {
		b.levelsFor(side).Delete(level)
	}
	b.refreshBest(side)
	return order, nil
}

// Lookup returns the resting order for an id without removing it.
func (b *OrderBook) Lookup(id uuid.UUID) (*Order, bool) {
	o, ok := b.orderIndex[id]
	return o, ok
}

// BestBid returns the best (highest) resting bid price, if any.
func (b *OrderBook) BestBid() *int64 { return b.bestBid }

// BestAsk returns the best (lowest) resting ask price, if any.
func (b *OrderBook) BestAsk() *int64 { return b.bestAsk }

// topLevel returns the top-of-book PriceLevel on the given side, or nil.
func (b *OrderBook) topLevel(side Side) *PriceLevel {
	level, ok := b.levelsFor(side).Min()
	if !ok {
		return nil
	}
	return level
}

// refreshBest recomputes the cached best price for one side after mutation.
func (b *OrderBook) refreshBest(side Side) {
	level := b.topLevel(side)
	var cached **int64
	if side == Bid {
		cached = &b.bestBid
	} else {
		cached = &b.bestAsk
	}
	if level == nil {
		*cached = nil
		return
	}
	p := level.Price
	*cached = &p
}

// DepthSnapshot aggregates the book into a point-in-time projection, limited
// to `levels` price rows per side (0 means unlimited).
func (b *OrderBook) DepthSnapshot(levels int) DepthSnapshot {
	snap := DepthSnapshot{
		InstrumentID: b.InstrumentID,
		SequenceID:   b.nextSequence,
	}
	collect := func(tree *priceLevels) []DepthLevel {
		out := make([]DepthLevel, 0)
		count := 0
		tree.Scan(func(level *PriceLevel) bool {
			if levels > 0 && count >= levels {
				return false
			}
			out = append(out, DepthLevel{
				Price:      level.Price,
				Volume:     level.TotalVolume,
				OrderCount: level.OrderCount,
			})
			count++
			return true
		})
		return out
	}
	snap.Bids = collect(b.bids)
	snap.Asks = collect(b.asks)
	return snap
}

// Len reports the number of resting orders across both sides.
func (b *OrderBook) Len() int {
	return len(b.orderIndex)
}

// Orders returns the live order index. Callers must treat it as read-only;
// it is the same map the book mutates internally.
func (b *OrderBook) Orders() map[uuid.UUID]*Order {
	return b.orderIndex
}
