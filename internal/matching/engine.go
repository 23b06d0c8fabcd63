package matching

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProcessResult is the deterministic outcome of handing one order to
// MatchingEngine.Process.
type ProcessResult struct {
	Accepted *Order
	Trades   []Trade
	Rejected *Order
	RejectReason error

	DepthDeltas []DepthDelta

	BestBidAfter *int64
	BestAskAfter *int64

	// Halted is set when processing this order uncovered an internal
	// invariant violation; the instrument must stop accepting Submits.
	Halted bool
	HaltReason error
}

// MatchingEngine is the pure, synchronous state machine that applies one
// order at a time to an OrderBook. It holds no concurrency primitives of
// its own; InstrumentWorker is the sole caller.
type MatchingEngine struct {
	Book *OrderBook

	SelfTrade SelfTradePolicy
	TriggerRef TriggerReference

	clock Clock

	triggers *triggerSet

	lastTradePrice *int64

	metrics Metrics
}

// NewMatchingEngine builds an engine over a fresh book for one instrument.
func NewMatchingEngine(instrumentID uuid.UUID, clock Clock) *MatchingEngine {
	return &MatchingEngine{
		Book:       NewOrderBook(instrumentID),
		SelfTrade:  CancelMaker,
		TriggerRef: LastTradeReference,
		clock:      clock,
		triggers:   newTriggerSet(),
		metrics:    NoopMetrics{},
	}
}

// SetMetrics installs a Metrics sink; defaults to a no-op.
func (e *MatchingEngine) SetMetrics(m Metrics) {
	if m == nil {
		m = NoopMetrics{}
	}
	e.metrics = m
}

func (e *MatchingEngine) nextSequence() uint64 {
	return e.Book.NextSequence()
}

// Process applies one incoming order to the book and returns the full
// deterministic result. incoming.TimeInForce, if zero-valued GTC, is taken
// as given; callers may override the effective TIF before calling.
func (e *MatchingEngine) Process(incoming Order) *ProcessResult {
	now := e.clock.Now()
	incoming.CreatedAt = now
	incoming.UpdatedAt = now
	if incoming.Status == 0 {
		incoming.Status = Submitted
	}

	if err := e.validateAcceptance(&incoming, now); err != nil {
		incoming.Status = Rejected
		return &ProcessResult{Rejected: &incoming, RejectReason: err}
	}

	incoming.SequenceID = e.nextSequence()

	if incoming.OrderType == StopOrder || incoming.OrderType == StopLimitOrder {
		return e.acceptTrigger(&incoming)
	}

	result := e.matchAndFinalize(&incoming)
	if result.Halted {
		log.Error().Str("instrument", e.Book.InstrumentID.String()).Err(result.HaltReason).Msg("matching engine halted: internal invariant violation")
	}
	return result
}

// validateAcceptance runs the fail-fast preconditions every incoming order
// must clear before it can touch the book or trigger set.
func (e *MatchingEngine) validateAcceptance(o *Order, now time.Time) error {
	if o.InstrumentID != e.Book.InstrumentID {
		return ErrWrongInstrument
	}
	if _, exists := e.Book.Lookup(o.ID); exists {
		return ErrDuplicateOrderID
	}
	switch o.OrderType {
	case LimitOrder, StopLimitOrder:
		if o.LimitPrice == nil || *o.LimitPrice <= 0 {
			return ErrInvalidPrice
		}
	case MarketOrder:
		if o.LimitPrice != nil {
			return ErrNoLimitPrice
		}
		if o.TimeInForce != IOC && o.TimeInForce != FOK {
			return ErrMarketMustBeIOCorFOK
		}
	}
	if o.OrderType == StopOrder || o.OrderType == StopLimitOrder {
		if o.TriggerPrice == nil || *o.TriggerPrice <= 0 {
			return ErrMissingTriggerPrice
		}
	}
	if o.BaseAmount == 0 {
		return ErrInvalidQuantity
	}
	if !o.ExpirationDate.IsZero() && o.ExpirationDate.Before(now) {
		return ErrExpired
	}
	if o.RemainingBase == 0 {
		o.RemainingBase = o.BaseAmount
	}
	return nil
}

// acceptTrigger parks a Stop/StopLimit order until its trigger crosses the
// configured reference price, or releases it immediately if already crossed.
func (e *MatchingEngine) acceptTrigger(o *Order) *ProcessResult {
	reference := e.triggerReference()
	if reference != nil && crossed(o.Side, *o.TriggerPrice, *reference) {
		released := e.toActiveOrder(o)
		return e.matchAndFinalize(released)
	}
	o.Status = Submitted
	e.triggers.add(o)
	return &ProcessResult{Accepted: o}
}

// toActiveOrder converts a released Stop/StopLimit order into the Limit or
// Market order it becomes once triggered.
func (e *MatchingEngine) toActiveOrder(o *Order) *Order {
	active := *o
	if o.OrderType == StopOrder {
		active.OrderType = MarketOrder
		active.LimitPrice = nil
	} else {
		active.OrderType = LimitOrder
	}
	return &active
}

func crossed(side Side, trigger, reference int64) bool {
	if side == Bid {
		return reference >= trigger
	}
	return reference <= trigger
}

func (e *MatchingEngine) triggerReference() *int64 {
	switch e.TriggerRef {
	case LastTradeReference:
		return e.lastTradePrice
	case BestOppositeReference, MidpointReference:
		bid, ask := e.Book.BestBid(), e.Book.BestAsk()
		if bid == nil || ask == nil {
			return e.lastTradePrice
		}
		if e.TriggerRef == BestOppositeReference {
			mid := *ask
			return &mid
		}
		mid := (*bid + *ask) / 2
		return &mid
	}
	return e.lastTradePrice
}

// matchAndFinalize runs the aggressive walk for a Limit/Market taker and
// applies the TIF residual-handling rules.
func (e *MatchingEngine) matchAndFinalize(taker *Order) *ProcessResult {
	result := &ProcessResult{}

	if taker.TimeInForce == FOK {
		fillable := e.fillableVolume(taker)
		if fillable < taker.RemainingBase {
			taker.Status = Rejected
			result.Rejected = taker
			result.RejectReason = ErrFokNotFullyFillable
			return result
		}
	}

	for taker.RemainingBase > 0 {
		level := e.Book.topLevel(taker.Side.Opposite())
		if level == nil {
			break
		}
		if !e.crossesLevel(taker, level) {
			break
		}

		maker := level.peekHead()
		if maker == nil {
			break
		}

		if maker.AccountID == taker.AccountID && e.SelfTrade != AllowCross {
			if e.handleSelfTrade(taker, maker, level, result) {
				continue
			}
			break
		}

		fill := min64(taker.RemainingBase, maker.RemainingBase)
		price := *maker.LimitPrice

		quote, ok := mulOverflowCheck(uint64(price), fill)
		if !ok {
			taker.Status = Rejected
			result.Rejected = taker
			result.RejectReason = ErrArithmeticOverflow
			result.Halted = true
			result.HaltReason = ErrArithmeticOverflow
			return result
		}

		now := e.clock.Now()
		makerFilled := maker.applyFill(fill, price, now)
		takerFilled := taker.applyFill(fill, price, now)
		level.reduceVolume(fill)

		trade := Trade{
			ID:             uuid.New(),
			MakerOrderID:   maker.ID,
			TakerOrderID:   taker.ID,
			MakerAccountID: maker.AccountID,
			TakerAccountID: taker.AccountID,
			InstrumentID:   e.Book.InstrumentID,
			Price:          price,
			BaseAmount:     fill,
			QuoteAmount:    quote,
			SequenceID:     e.nextSequence(),
			CreatedAt:      now,
			MakerStatus:    maker.Status,
			TakerStatus:    taker.Status,
		}
		result.Trades = append(result.Trades, trade)
		e.lastTradePrice = &price
		e.metrics.TradeExecuted(fill, price)

		if makerFilled {
			level.removeHead()
			delete(e.Book.orderIndex, maker.ID)
		}
		if level.empty() {
			e.Book.levelsFor(maker.Side).Delete(level)
		}
		e.Book.refreshBest(maker.Side)
		result.DepthDeltas = append(result.DepthDeltas, depthDeltaFor(level, maker.Side))
	}

	e.applyResidual(taker, result)
	e.releaseTriggers(result)

	result.BestBidAfter = e.Book.BestBid()
	result.BestAskAfter = e.Book.BestAsk()
	return result
}

// handleSelfTrade applies the configured self-trade policy at the current
// top-of-book match candidate. Returns true if matching should continue
// (maker removed, taker unaffected) or false if the taker was also
// cancelled and matching should stop.
func (e *MatchingEngine) handleSelfTrade(taker, maker *Order, level *PriceLevel, result *ProcessResult) bool {
	cancelMaker := func() {
		level.removeHead()
		maker.Status = Cancelled
		delete(e.Book.orderIndex, maker.ID)
		if level.empty() {
			e.Book.levelsFor(maker.Side).Delete(level)
		}
		e.Book.refreshBest(maker.Side)
		result.DepthDeltas = append(result.DepthDeltas, depthDeltaFor(level, maker.Side))
	}

	switch e.SelfTrade {
	case CancelMaker:
		cancelMaker()
		return true
	case CancelTaker:
		taker.Status = Cancelled
		return false
	case CancelBoth:
		cancelMaker()
		taker.Status = Cancelled
		return false
	default:
		return true
	}
}

// crossesLevel reports whether taker's limit (or an unconditional market
// order) crosses the given resting price level.
func (e *MatchingEngine) crossesLevel(taker *Order, level *PriceLevel) bool {
	if taker.OrderType == MarketOrder {
		return true
	}
	if taker.Side == Bid {
		return level.Price <= *taker.LimitPrice
	}
	return level.Price >= *taker.LimitPrice
}

// fillableVolume sums resting volume at prices the taker would cross,
// without mutating the book. Used for the FOK pre-check.
func (e *MatchingEngine) fillableVolume(taker *Order) uint64 {
	var total uint64
	opp := e.Book.levelsFor(taker.Side.Opposite())
	opp.Scan(func(level *PriceLevel) bool {
		if taker.OrderType != MarketOrder && !e.crossesLevel(taker, level) {
			return false
		}
		total += level.TotalVolume
		if total >= taker.RemainingBase {
			return false
		}
		return true
	})
	return total
}

// applyResidual handles what happens to the taker after the matching loop
// exits, per TIF.
func (e *MatchingEngine) applyResidual(taker *Order, result *ProcessResult) {
	if result.Rejected != nil {
		return
	}
	switch {
	case taker.RemainingBase == 0:
		taker.Status = Filled
		result.Accepted = taker
	case taker.Status == Cancelled:
		// Cancelled by the self-trade policy; the residual never rests.
		result.Accepted = taker
	case taker.TimeInForce == IOC || taker.TimeInForce == FOK || taker.OrderType == MarketOrder:
		taker.Status = Cancelled
		result.Accepted = taker
	case taker.OrderType == LimitOrder:
		if err := e.Book.AddOrder(taker); err != nil {
			taker.Status = Rejected
			result.Rejected = taker
			result.RejectReason = err
			return
		}
		if taker.FilledBase > 0 {
			taker.Status = PartiallyFilled
		} else {
			taker.Status = Submitted
		}
		result.Accepted = taker
		result.DepthDeltas = append(result.DepthDeltas, depthDeltaFor(taker.node.level, taker.Side))
	default:
		taker.Status = Cancelled
		result.Accepted = taker
	}
}

// releaseTriggers re-injects any Stop/StopLimit orders whose trigger has
// crossed following the trades just applied.
func (e *MatchingEngine) releaseTriggers(result *ProcessResult) {
	reference := e.triggerReference()
	if reference == nil {
		return
	}
	for _, side := range []Side{Bid, Ask} {
		for {
			released := e.triggers.releasable(side, *reference)
			if len(released) == 0 {
				break
			}
			for _, o := range released {
				active := e.toActiveOrder(o)
				sub := e.matchAndFinalize(active)
				result.Trades = append(result.Trades, sub.Trades...)
				result.DepthDeltas = append(result.DepthDeltas, sub.DepthDeltas...)
				if sub.Halted {
					result.Halted = true
					result.HaltReason = sub.HaltReason
				}
			}
		}
	}
}

// Cancel removes a resting order from the book.
func (e *MatchingEngine) Cancel(id uuid.UUID) (*Order, []DepthDelta, *int64, *int64, error) {
	order, err := e.Book.RemoveOrder(id)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	order.Status = Cancelled
	order.UpdatedAt = e.clock.Now()
	delta := DepthDelta{Side: order.Side, Price: *order.LimitPrice}
	if level, ok := e.Book.levelsFor(order.Side).Get(&PriceLevel{Price: *order.LimitPrice}); ok {
		delta.Volume = level.TotalVolume
		delta.Count = level.OrderCount
	}
	return order, []DepthDelta{delta}, e.Book.BestBid(), e.Book.BestAsk(), nil
}

func depthDeltaFor(level *PriceLevel, side Side) DepthDelta {
	if level == nil {
		return DepthDelta{Side: side}
	}
	return DepthDelta{Side: side, Price: level.Price, Volume: level.TotalVolume, Count: level.OrderCount}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// mulOverflowCheck computes price*qty, reporting false if it would overflow
// a uint64.
func mulOverflowCheck(price, qty uint64) (uint64, bool) {
	if price == 0 || qty == 0 {
		return 0, true
	}
	if price > math.MaxUint64/qty {
		return 0, false
	}
	return price * qty, true
}
