package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/internal/matching"
)

const testTimeout = 2 * time.Second

func newTestWorker(t *testing.T) (*InstrumentWorker, uuid.UUID, context.CancelFunc) {
	t.Helper()
	instrument := uuid.New()
	engine := matching.NewMatchingEngine(instrument, matching.RealClock)
	w := New(instrument, engine, Config{CommandQueueSize: 16, ResultQueueSize: 16})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(testTimeout):
			t.Fatal("worker did not stop in time")
		}
	})
	return w, instrument, cancel
}

func testOrder(instrument, account uuid.UUID, side matching.Side, price int64, qty uint64) matching.Order {
	return matching.Order{
		ID:           uuid.New(),
		AccountID:    account,
		InstrumentID: instrument,
		Side:         side,
		OrderType:    matching.LimitOrder,
		TimeInForce:  matching.GTC,
		LimitPrice:   &price,
		BaseAmount:   qty,
	}
}

func TestWorker_SubmitAccepted(t *testing.T) {
	w, instrument, _ := newTestWorker(t)
	client := w.Client()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	result, err := client.Submit(ctx, testOrder(instrument, uuid.New(), matching.Bid, 100, 10))
	require.NoError(t, err)
	require.NotNil(t, result.Accepted)
}

func TestWorker_ResultPublishedBeforeReply(t *testing.T) {
	w, instrument, _ := newTestWorker(t)
	client := w.Client()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	go func() {
		client.Submit(ctx, testOrder(instrument, uuid.New(), matching.Bid, 100, 10))
	}()

	select {
	case result := <-w.Results():
		assert.Equal(t, ResultAccepted, result.Kind)
	case <-time.After(testTimeout):
		t.Fatal("expected a result before the submit reply timeout")
	}
}

func TestWorker_CancelRoundTrip(t *testing.T) {
	w, instrument, _ := newTestWorker(t)
	client := w.Client()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	order := testOrder(instrument, uuid.New(), matching.Bid, 100, 10)
	_, err := client.Submit(ctx, order)
	require.NoError(t, err)
	<-w.Results()

	cancelled, err := client.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, matching.Cancelled, cancelled.Status)
	<-w.Results()
}

func TestWorker_CancelUnknownOrder(t *testing.T) {
	w, _, _ := newTestWorker(t)
	client := w.Client()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	_, err := client.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, matching.ErrOrderNotFound)
}

func TestWorker_Snapshot(t *testing.T) {
	w, instrument, _ := newTestWorker(t)
	client := w.Client()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	_, err := client.Submit(ctx, testOrder(instrument, uuid.New(), matching.Bid, 100, 10))
	require.NoError(t, err)
	<-w.Results()

	snap, err := client.Snapshot(ctx, 0)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, uint64(10), snap.Bids[0].Volume)
	<-w.Results()
}

func TestWorker_HaltRejectsSubmit(t *testing.T) {
	w, instrument, _ := newTestWorker(t)
	client := w.Client()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	require.NoError(t, client.Halt(ctx))
	<-w.Results()

	_, err := client.Submit(ctx, testOrder(instrument, uuid.New(), matching.Bid, 100, 10))
	assert.ErrorIs(t, err, matching.ErrTradingHalted)

	require.NoError(t, client.Resume(ctx))
	<-w.Results()

	_, err = client.Submit(ctx, testOrder(instrument, uuid.New(), matching.Bid, 100, 10))
	require.NoError(t, err)
	<-w.Results()
}

func TestWorker_ShutdownStopsLoop(t *testing.T) {
	instrument := uuid.New()
	engine := matching.NewMatchingEngine(instrument, matching.RealClock)
	w := New(instrument, engine, Config{CommandQueueSize: 4, ResultQueueSize: 4})

	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, w.Client().Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("worker did not stop after shutdown")
	}
}

func TestClient_EnqueueReturnsQueueFullWhenSaturated(t *testing.T) {
	ch := make(chan command)
	client := &Client{cmdCh: ch}
	err := client.enqueue(haltCommand{reply: make(chan struct{})})
	assert.ErrorIs(t, err, matching.ErrQueueFull)
}
