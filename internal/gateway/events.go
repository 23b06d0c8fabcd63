package gateway

import (
	"github.com/bytedance/sonic"

	"vantage/internal/matching"
	"vantage/internal/worker"
)

var eventJSON = sonic.ConfigStd

// wireEvent is the JSON projection of a worker.OrderbookResult sent to
// websocket subscribers. It flattens the optional order/snapshot payloads
// into plain fields rather than mirroring OrderbookResult's Go-side layout.
type wireEvent struct {
	Kind         string                `json:"kind"`
	Instrument   string                `json:"instrument"`
	SequenceID   uint64                `json:"sequence_id"`
	OrderID      string                `json:"order_id,omitempty"`
	Trades       []matching.Trade      `json:"trades,omitempty"`
	DepthDeltas  []matching.DepthDelta `json:"depth_deltas,omitempty"`
	BestBid      *int64                `json:"best_bid,omitempty"`
	BestAsk      *int64                `json:"best_ask,omitempty"`
	Reason       string                `json:"reason,omitempty"`
	Snapshot     *matching.DepthSnapshot `json:"snapshot,omitempty"`
}

var resultKindNames = map[worker.ResultKind]string{
	worker.ResultAccepted:  "accepted",
	worker.ResultCancelled: "cancelled",
	worker.ResultRejected:  "rejected",
	worker.ResultSnapshot:  "snapshot",
	worker.ResultHalted:    "halted",
	worker.ResultResumed:   "resumed",
}

func marshalResult(r worker.OrderbookResult) ([]byte, error) {
	event := wireEvent{
		Kind:        resultKindNames[r.Kind],
		Instrument:  r.InstrumentID.String(),
		SequenceID:  r.SequenceID,
		Trades:      r.Trades,
		DepthDeltas: r.DepthDeltas,
		BestBid:     r.BestBid,
		BestAsk:     r.BestAsk,
		Snapshot:    r.Snapshot,
	}
	if r.Order != nil {
		event.OrderID = r.Order.ID.String()
	}
	if r.Reason != nil {
		event.Reason = r.Reason.Error()
	}
	return eventJSON.Marshal(event)
}
