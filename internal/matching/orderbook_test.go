package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(instrument uuid.UUID, side Side, price int64, qty uint64) *Order {
	p := price
	return &Order{
		ID:            uuid.New(),
		AccountID:     uuid.New(),
		InstrumentID:  instrument,
		Side:          side,
		OrderType:     LimitOrder,
		TimeInForce:   GTC,
		LimitPrice:    &p,
		BaseAmount:    qty,
		RemainingBase: qty,
		Status:        Submitted,
	}
}

func TestOrderBook_AddOrder_RestsAtPriceLevel(t *testing.T) {
	instrument := uuid.New()
	book := NewOrderBook(instrument)

	o1 := newTestOrder(instrument, Bid, 100, 10)
	o2 := newTestOrder(instrument, Bid, 100, 5)

	require.NoError(t, book.AddOrder(o1))
	require.NoError(t, book.AddOrder(o2))

	bid := book.BestBid()
	require.NotNil(t, bid)
	assert.Equal(t, int64(100), *bid)
	assert.Equal(t, 2, book.Len())
}

func TestOrderBook_BestBidAndAsk_OrderedCorrectly(t *testing.T) {
	instrument := uuid.New()
	book := NewOrderBook(instrument)

	require.NoError(t, book.AddOrder(newTestOrder(instrument, Bid, 99, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(instrument, Bid, 101, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(instrument, Ask, 105, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(instrument, Ask, 103, 10)))

	assert.Equal(t, int64(101), *book.BestBid())
	assert.Equal(t, int64(103), *book.BestAsk())
}

func TestOrderBook_RemoveOrder_DeletesEmptyLevel(t *testing.T) {
	instrument := uuid.New()
	book := NewOrderBook(instrument)

	o := newTestOrder(instrument, Bid, 100, 10)
	require.NoError(t, book.AddOrder(o))

	removed, err := book.RemoveOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, removed.ID)
	assert.Nil(t, book.BestBid())
	assert.Equal(t, 0, book.Len())
}

func TestOrderBook_RemoveOrder_UnknownID(t *testing.T) {
	book := NewOrderBook(uuid.New())
	_, err := book.RemoveOrder(uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderBook_AddOrder_RejectsDuplicateID(t *testing.T) {
	instrument := uuid.New()
	book := NewOrderBook(instrument)

	o := newTestOrder(instrument, Bid, 100, 10)
	require.NoError(t, book.AddOrder(o))
	assert.ErrorIs(t, book.AddOrder(o), ErrDuplicateOrderID)
}

func TestOrderBook_AddOrder_RejectsWrongInstrument(t *testing.T) {
	book := NewOrderBook(uuid.New())
	other := newTestOrder(uuid.New(), Bid, 100, 10)
	assert.ErrorIs(t, book.AddOrder(other), ErrWrongInstrument)
}

func TestOrderBook_DepthSnapshot_AggregatesPerLevel(t *testing.T) {
	instrument := uuid.New()
	book := NewOrderBook(instrument)

	require.NoError(t, book.AddOrder(newTestOrder(instrument, Bid, 100, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(instrument, Bid, 100, 5)))
	require.NoError(t, book.AddOrder(newTestOrder(instrument, Ask, 101, 7)))

	snap := book.DepthSnapshot(0)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, uint64(15), snap.Bids[0].Volume)
	assert.Equal(t, 2, snap.Bids[0].OrderCount)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, uint64(7), snap.Asks[0].Volume)
}

func TestOrderBook_DepthSnapshot_LevelsLimit(t *testing.T) {
	instrument := uuid.New()
	book := NewOrderBook(instrument)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, book.AddOrder(newTestOrder(instrument, Bid, 100-i, 1)))
	}
	snap := book.DepthSnapshot(2)
	assert.Len(t, snap.Bids, 2)
}

func TestOrderBook_FIFOWithinPriceLevel(t *testing.T) {
	instrument := uuid.New()
	book := NewOrderBook(instrument)

	first := newTestOrder(instrument, Bid, 100, 10)
	second := newTestOrder(instrument, Bid, 100, 10)
	require.NoError(t, book.AddOrder(first))
	require.NoError(t, book.AddOrder(second))

	level, ok := book.bids.Get(&PriceLevel{Price: 100})
	require.True(t, ok)
	orders := level.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.Equal(t, second.ID, orders[1].ID)
	assert.Less(t, orders[0].SequenceID, orders[1].SequenceID)
}
