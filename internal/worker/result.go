package worker

import (
	"github.com/google/uuid"

	"vantage/internal/matching"
)

// ResultKind tags which variant of OrderbookResult is populated.
type ResultKind int

const (
	ResultAccepted ResultKind = iota
	ResultCancelled
	ResultRejected
	ResultSnapshot
	ResultHalted
	ResultResumed
)

// OrderbookResult is the single event type published on a worker's result
// channel. Exactly one of the variant-specific fields is meaningful,
// selected by Kind.
type OrderbookResult struct {
	Kind ResultKind

	InstrumentID uuid.UUID
	SequenceID   uint64

	Order       *matching.Order
	Trades      []matching.Trade
	DepthDeltas []matching.DepthDelta
	BestBid     *int64
	BestAsk     *int64

	Reason error

	Snapshot *matching.DepthSnapshot
}
