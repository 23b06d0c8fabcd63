package matching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() (*MatchingEngine, uuid.UUID) {
	instrument := uuid.New()
	return NewMatchingEngine(instrument, NewMockClock(time.Unix(0, 0))), instrument
}

func limitOrder(instrument, account uuid.UUID, side Side, price int64, qty uint64) Order {
	return Order{
		ID:           uuid.New(),
		AccountID:    account,
		InstrumentID: instrument,
		Side:         side,
		OrderType:    LimitOrder,
		TimeInForce:  GTC,
		LimitPrice:   &price,
		BaseAmount:   qty,
	}
}

func TestProcess_RestsWhenNoCross(t *testing.T) {
	engine, instrument := newTestEngine()
	account := uuid.New()

	result := engine.Process(limitOrder(instrument, account, Bid, 100, 10))
	require.NotNil(t, result.Accepted)
	assert.Empty(t, result.Trades)
	assert.Equal(t, Submitted, result.Accepted.Status)
	assert.Equal(t, int64(100), *engine.Book.BestBid())
}

func TestProcess_CrossingOrderProducesTrade(t *testing.T) {
	engine, instrument := newTestEngine()
	maker := uuid.New()
	taker := uuid.New()

	engine.Process(limitOrder(instrument, maker, Ask, 100, 10))
	result := engine.Process(limitOrder(instrument, taker, Bid, 100, 10))

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, int64(100), trade.Price)
	assert.Equal(t, uint64(10), trade.BaseAmount)
	assert.Equal(t, Filled, result.Accepted.Status)
	assert.Nil(t, engine.Book.BestBid())
	assert.Nil(t, engine.Book.BestAsk())
}

func TestProcess_PartialFillRestsResidual(t *testing.T) {
	engine, instrument := newTestEngine()
	maker := uuid.New()
	taker := uuid.New()

	engine.Process(limitOrder(instrument, maker, Ask, 100, 5))
	result := engine.Process(limitOrder(instrument, taker, Bid, 100, 10))

	require.Len(t, result.Trades, 1)
	assert.Equal(t, uint64(5), result.Trades[0].BaseAmount)
	assert.Equal(t, PartiallyFilled, result.Accepted.Status)
	assert.Equal(t, uint64(5), result.Accepted.RemainingBase)
	assert.Equal(t, int64(100), *engine.Book.BestBid())
}

func TestProcess_PriceTimePriority(t *testing.T) {
	engine, instrument := newTestEngine()
	makerA := uuid.New()
	makerB := uuid.New()
	taker := uuid.New()

	engine.Process(limitOrder(instrument, makerA, Ask, 100, 10))
	engine.Process(limitOrder(instrument, makerB, Ask, 99, 10))

	result := engine.Process(limitOrder(instrument, taker, Bid, 100, 10))
	require.Len(t, result.Trades, 1)
	assert.Equal(t, int64(99), result.Trades[0].Price)
	assert.Equal(t, makerB, result.Trades[0].MakerAccountID)
}

func TestProcess_IOCCancelsResidual(t *testing.T) {
	engine, instrument := newTestEngine()
	maker := uuid.New()
	taker := uuid.New()

	engine.Process(limitOrder(instrument, maker, Ask, 100, 5))

	order := limitOrder(instrument, taker, Bid, 100, 10)
	order.TimeInForce = IOC
	result := engine.Process(order)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, Cancelled, result.Accepted.Status)
	assert.Nil(t, engine.Book.BestBid())
}

func TestProcess_FOKRejectedWhenNotFullyFillable(t *testing.T) {
	engine, instrument := newTestEngine()
	maker := uuid.New()
	taker := uuid.New()

	engine.Process(limitOrder(instrument, maker, Ask, 100, 5))

	order := limitOrder(instrument, taker, Bid, 100, 10)
	order.TimeInForce = FOK
	result := engine.Process(order)

	assert.Nil(t, result.Accepted)
	require.NotNil(t, result.Rejected)
	assert.ErrorIs(t, result.RejectReason, ErrFokNotFullyFillable)
	assert.Empty(t, result.Trades)
	// Book must be untouched: the resting maker order is still there.
	assert.Equal(t, int64(100), *engine.Book.BestAsk())
}

func TestProcess_FOKFillsWhenFullyFillable(t *testing.T) {
	engine, instrument := newTestEngine()
	maker := uuid.New()
	taker := uuid.New()

	engine.Process(limitOrder(instrument, maker, Ask, 100, 10))

	order := limitOrder(instrument, taker, Bid, 100, 10)
	order.TimeInForce = FOK
	result := engine.Process(order)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, Filled, result.Accepted.Status)
}

func TestProcess_MarketOrderRequiresIOCorFOK(t *testing.T) {
	engine, instrument := newTestEngine()
	account := uuid.New()

	order := Order{
		ID:           uuid.New(),
		AccountID:    account,
		InstrumentID: instrument,
		Side:         Bid,
		OrderType:    MarketOrder,
		TimeInForce:  GTC,
		BaseAmount:   10,
	}
	result := engine.Process(order)
	require.NotNil(t, result.Rejected)
	assert.ErrorIs(t, result.RejectReason, ErrMarketMustBeIOCorFOK)
}

func TestProcess_MarketOrderSweepsBook(t *testing.T) {
	engine, instrument := newTestEngine()
	maker := uuid.New()
	taker := uuid.New()

	engine.Process(limitOrder(instrument, maker, Ask, 100, 10))

	order := Order{
		ID:           uuid.New(),
		AccountID:    taker,
		InstrumentID: instrument,
		Side:         Bid,
		OrderType:    MarketOrder,
		TimeInForce:  IOC,
		BaseAmount:   10,
	}
	result := engine.Process(order)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, int64(100), result.Trades[0].Price)
}

func TestProcess_SelfTradeCancelMaker(t *testing.T) {
	engine, instrument := newTestEngine()
	engine.SelfTrade = CancelMaker
	account := uuid.New()
	otherMaker := uuid.New()

	engine.Process(limitOrder(instrument, account, Ask, 100, 5))
	engine.Process(limitOrder(instrument, otherMaker, Ask, 100, 5))

	result := engine.Process(limitOrder(instrument, account, Bid, 100, 5))

	require.Len(t, result.Trades, 1)
	assert.Equal(t, otherMaker, result.Trades[0].MakerAccountID)
	assert.Equal(t, Filled, result.Accepted.Status)
}

func TestProcess_SelfTradeCancelTaker(t *testing.T) {
	engine, instrument := newTestEngine()
	engine.SelfTrade = CancelTaker
	account := uuid.New()

	engine.Process(limitOrder(instrument, account, Ask, 100, 5))
	result := engine.Process(limitOrder(instrument, account, Bid, 100, 5))

	assert.Empty(t, result.Trades)
	assert.Equal(t, Cancelled, result.Accepted.Status)
	// Maker is untouched.
	assert.Equal(t, int64(100), *engine.Book.BestAsk())
}

func TestProcess_RejectsDuplicateOrderID(t *testing.T) {
	engine, instrument := newTestEngine()
	account := uuid.New()

	order := limitOrder(instrument, account, Bid, 100, 10)
	engine.Process(order)
	result := engine.Process(order)

	require.NotNil(t, result.Rejected)
	assert.ErrorIs(t, result.RejectReason, ErrDuplicateOrderID)
}

func TestProcess_RejectsExpiredOrder(t *testing.T) {
	engine, instrument := newTestEngine()
	account := uuid.New()

	order := limitOrder(instrument, account, Bid, 100, 10)
	order.ExpirationDate = time.Unix(-1, 0)
	result := engine.Process(order)

	require.NotNil(t, result.Rejected)
	assert.ErrorIs(t, result.RejectReason, ErrExpired)
}

func TestProcess_StopOrderParksUntriggered(t *testing.T) {
	engine, instrument := newTestEngine()
	account := uuid.New()

	trigger := int64(110)
	order := Order{
		ID:           uuid.New(),
		AccountID:    account,
		InstrumentID: instrument,
		Side:         Bid,
		OrderType:    StopOrder,
		TimeInForce:  IOC,
		TriggerPrice: &trigger,
		BaseAmount:   10,
	}
	result := engine.Process(order)
	require.NotNil(t, result.Accepted)
	assert.Empty(t, result.Trades)
}

func TestProcess_StopOrderReleasesOnTrigger(t *testing.T) {
	engine, instrument := newTestEngine()
	maker := uuid.New()
	stopAccount := uuid.New()

	trigger := int64(100)
	order := Order{
		ID:           uuid.New(),
		AccountID:    stopAccount,
		InstrumentID: instrument,
		Side:         Bid,
		OrderType:    StopOrder,
		TimeInForce:  IOC,
		TriggerPrice: &trigger,
		BaseAmount:   10,
	}
	engine.Process(order)

	// Resting ask at 100, then a trade at 100 moves lastTradePrice and should
	// release the stop order, which then trades against the remaining asks.
	engine.Process(limitOrder(instrument, maker, Ask, 100, 20))
	other := uuid.New()
	result := engine.Process(limitOrder(instrument, other, Bid, 100, 5))

	require.GreaterOrEqual(t, len(result.Trades), 1)
}

func TestCancel_RemovesRestingOrder(t *testing.T) {
	engine, instrument := newTestEngine()
	account := uuid.New()

	order := limitOrder(instrument, account, Bid, 100, 10)
	engine.Process(order)

	cancelled, deltas, bestBid, _, err := engine.Cancel(order.ID)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, cancelled.Status)
	require.Len(t, deltas, 1)
	assert.Nil(t, bestBid)
}

func TestCancel_UnknownOrderReturnsError(t *testing.T) {
	engine, _ := newTestEngine()
	_, _, _, _, err := engine.Cancel(uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestProcess_SequenceIDStrictlyIncreasing(t *testing.T) {
	engine, instrument := newTestEngine()
	account := uuid.New()

	var last uint64
	for i := 0; i < 5; i++ {
		order := limitOrder(instrument, account, Bid, int64(100-i), 1)
		result := engine.Process(order)
		require.NotNil(t, result.Accepted)
		assert.Greater(t, result.Accepted.SequenceID, last)
		last = result.Accepted.SequenceID
	}
}
