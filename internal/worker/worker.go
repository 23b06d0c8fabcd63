// Package worker is the concurrency boundary of the exchange core: exactly
// one InstrumentWorker owns its matching.MatchingEngine, draining commands
// off a bounded channel one at a time so the engine never observes
// concurrent mutation. External callers only ever touch a cloneable Client.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"vantage/internal/matching"
)

const defaultCommandQueueSize = 1024

// Ticker abstracts the periodic expiry sweep so tests can drive it
// deterministically instead of waiting on wall-clock time.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps a time.Ticker firing every interval.
func NewRealTicker(interval time.Duration) Ticker {
	return realTicker{t: time.NewTicker(interval)}
}

// InstrumentWorker is the single-consumer owner of one instrument's
// MatchingEngine.
type InstrumentWorker struct {
	instrumentID uuid.UUID
	engine       *matching.MatchingEngine

	cmdCh    chan command
	resultCh chan OrderbookResult

	sweepTicker Ticker
	clock       matching.Clock

	halted bool
}

// Config bundles the construction-time knobs an InstrumentWorker needs.
type Config struct {
	CommandQueueSize int
	ResultQueueSize  int
	ExpirySweep      Ticker
	Clock            matching.Clock
}

// New creates a worker that owns engine for instrumentID. Call Run to
// start its loop; New itself performs no I/O.
func New(instrumentID uuid.UUID, engine *matching.MatchingEngine, cfg Config) *InstrumentWorker {
	if cfg.CommandQueueSize == 0 {
		cfg.CommandQueueSize = defaultCommandQueueSize
	}
	if cfg.ResultQueueSize == 0 {
		cfg.ResultQueueSize = defaultCommandQueueSize
	}
	if cfg.Clock == nil {
		cfg.Clock = matching.RealClock
	}
	return &InstrumentWorker{
		instrumentID: instrumentID,
		engine:       engine,
		cmdCh:        make(chan command, cfg.CommandQueueSize),
		resultCh:     make(chan OrderbookResult, cfg.ResultQueueSize),
		sweepTicker:  cfg.ExpirySweep,
		clock:        cfg.Clock,
	}
}

// Results returns the worker's output channel. There is exactly one
// consumer role expected (an event emitter); fan-out to many subscribers is
// the consumer's job, not the worker's.
func (w *InstrumentWorker) Results() <-chan OrderbookResult {
	return w.resultCh
}

// Client returns a cheap, cloneable handle callers use to submit commands.
func (w *InstrumentWorker) Client() *Client {
	return &Client{cmdCh: w.cmdCh}
}

// Run drives the worker's loop under tomb supervision until the context is
// cancelled or a shutdown command (Client.Shutdown) is processed.
func (w *InstrumentWorker) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		return w.loop(t, ctx)
	})
	return t.Wait()
}

func (w *InstrumentWorker) loop(t *tomb.Tomb, ctx context.Context) error {
	logger := log.With().Str("instrument", w.instrumentID.String()).Logger()
	logger.Info().Msg("instrument worker starting")

	var sweepC <-chan time.Time
	if w.sweepTicker != nil {
		sweepC = w.sweepTicker.C()
		defer w.sweepTicker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("instrument worker stopping: context cancelled")
			return nil
		case <-t.Dying():
			return nil
		case cmd := <-w.cmdCh:
			if w.handle(logger, cmd) {
				return nil
			}
		case <-sweepC:
			w.sweepExpired(logger)
		}
	}
}

// handle processes one command to completion and publishes its result
// before returning, so a result is always visible before the command that
// caused it completes. Returns true if the worker should stop after this
// command (Shutdown).
func (w *InstrumentWorker) handle(logger zerologLogger, cmd command) bool {
	switch c := cmd.(type) {
	case submitCommand:
		w.handleSubmit(c)
	case cancelCommand:
		w.handleCancel(c)
	case snapshotCommand:
		w.handleSnapshot(c)
	case haltCommand:
		w.halted = true
		logger.Info().Msg("trading halted")
		w.publish(OrderbookResult{Kind: ResultHalted, InstrumentID: w.instrumentID})
		close(c.reply)
	case resumeCommand:
		w.halted = false
		logger.Info().Msg("trading resumed")
		w.publish(OrderbookResult{Kind: ResultResumed, InstrumentID: w.instrumentID})
		close(c.reply)
	case shutdownCommand:
		logger.Info().Msg("instrument worker shutting down")
		close(c.reply)
		return true
	}
	return false
}

func (w *InstrumentWorker) handleSubmit(c submitCommand) {
	if w.halted {
		c.reply <- submitReply{err: matching.ErrTradingHalted}
		return
	}
	result := w.engine.Process(c.order)
	w.publishProcessResult(result)
	if result.Halted {
		w.halted = true
	}
	c.reply <- submitReply{result: result}
}

func (w *InstrumentWorker) handleCancel(c cancelCommand) {
	order, deltas, bestBid, bestAsk, err := w.engine.Cancel(c.orderID)
	if err != nil {
		c.reply <- cancelReply{err: err}
		return
	}
	w.publish(OrderbookResult{
		Kind:         ResultCancelled,
		InstrumentID: w.instrumentID,
		SequenceID:   order.SequenceID,
		Order:        order,
		DepthDeltas:  deltas,
		BestBid:      bestBid,
		BestAsk:      bestAsk,
	})
	c.reply <- cancelReply{order: order}
}

func (w *InstrumentWorker) handleSnapshot(c snapshotCommand) {
	snap := w.engine.Book.DepthSnapshot(c.levels)
	snap.Timestamp = w.clock.Now()
	w.publish(OrderbookResult{
		Kind:         ResultSnapshot,
		InstrumentID: w.instrumentID,
		SequenceID:   snap.SequenceID,
		Snapshot:     &snap,
	})
	c.reply <- snapshotReply{snapshot: snap}
}

func (w *InstrumentWorker) publishProcessResult(result *matching.ProcessResult) {
	switch {
	case result.Rejected != nil:
		w.publish(OrderbookResult{
			Kind:         ResultRejected,
			InstrumentID: w.instrumentID,
			Order:        result.Rejected,
			Reason:       result.RejectReason,
		})
	case result.Accepted != nil:
		w.publish(OrderbookResult{
			Kind:         ResultAccepted,
			InstrumentID: w.instrumentID,
			SequenceID:   result.Accepted.SequenceID,
			Order:        result.Accepted,
			Trades:       result.Trades,
			DepthDeltas:  result.DepthDeltas,
			BestBid:      result.BestBidAfter,
			BestAsk:      result.BestAskAfter,
		})
	}
	if result.Halted {
		w.publish(OrderbookResult{
			Kind:         ResultHalted,
			InstrumentID: w.instrumentID,
			Reason:       result.HaltReason,
		})
	}
}

// publish sends to the result channel, blocking if the consumer is behind.
// A slow consumer slows command intake rather than dropping events.
func (w *InstrumentWorker) publish(r OrderbookResult) {
	w.resultCh <- r
}

// sweepExpired cancels every resting order whose expiration has elapsed,
// emitting results as if via explicit cancels.
func (w *InstrumentWorker) sweepExpired(logger zerologLogger) {
	now := w.clock.Now()
	expired := make([]uuid.UUID, 0)
	for id, order := range w.engine.Book.Orders() {
		if !order.ExpirationDate.IsZero() && order.ExpirationDate.Before(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		order, deltas, bestBid, bestAsk, err := w.engine.Cancel(id)
		if err != nil {
			continue
		}
		order.Status = matching.Expired
		logger.Debug().Str("order", id.String()).Msg("order expired")
		w.publish(OrderbookResult{
			Kind:         ResultCancelled,
			InstrumentID: w.instrumentID,
			SequenceID:   order.SequenceID,
			Order:        order,
			DepthDeltas:  deltas,
			BestBid:      bestBid,
			BestAsk:      bestAsk,
		})
	}
}

type zerologLogger = zerolog.Logger
