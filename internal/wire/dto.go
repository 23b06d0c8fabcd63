// Package wire holds the request/response DTOs for the order-entry gateway:
// JSON shapes plus the conversions into and out of matching.Order. Nothing
// in internal/matching or internal/worker imports this package.
package wire

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"vantage/internal/matching"
)

// json is bound to bytedance/sonic's encoding/json-compatible API; every
// DTO marshal/unmarshal helper below goes through it. The TCP gateway itself
// speaks the binary framing in binary.go, not these JSON shapes.
var json = sonic.ConfigStd

// PlaceOrderRequest is the wire shape for submitting a new order.
type PlaceOrderRequest struct {
	Version      uint32              `json:"version"`
	RequestType  string              `json:"request_type"`
	Instrument   uuid.UUID           `json:"instrument"`
	NewOrderID   uuid.UUID           `json:"new_order_id"`
	AccountID    uuid.UUID           `json:"account_id"`
	Side         matching.Side       `json:"side"`
	OrderType    matching.OrderType  `json:"order_type"`
	LimitPrice   *int64              `json:"limit_price,omitempty"`
	BaseAmount   uint64              `json:"base_amount"`
	TriggerPrice *int64              `json:"trigger_price,omitempty"`
	TimeInForce  matching.TimeInForce `json:"time_in_force"`
	ExtID        string              `json:"ext_id,omitempty"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty"`
}

// CancelOrderRequest is the wire shape for cancelling a resting order.
type CancelOrderRequest struct {
	Version     uint32    `json:"version"`
	RequestType string    `json:"request_type"`
	Instrument  uuid.UUID `json:"instrument"`
	OrderID     uuid.UUID `json:"order_id"`
}

// SnapshotRequest asks for a depth projection of one instrument.
type SnapshotRequest struct {
	Instrument uuid.UUID `json:"instrument"`
	Levels     int       `json:"levels,omitempty"`
}

// TradingStatusRequest asks whether an instrument is currently halted.
type TradingStatusRequest struct {
	Instrument uuid.UUID `json:"instrument"`
}

// TradingStatusResponse answers a TradingStatusRequest.
type TradingStatusResponse struct {
	Instrument uuid.UUID `json:"instrument"`
	Halted     bool      `json:"halted"`
}

// ToOrder converts a validated PlaceOrderRequest into the Order shape the
// matching core consumes. Acceptance validation itself happens inside
// MatchingEngine.Process, not here.
func (r PlaceOrderRequest) ToOrder() matching.Order {
	order := matching.Order{
		ID:           r.NewOrderID,
		AccountID:    r.AccountID,
		InstrumentID: r.Instrument,
		ExtID:        r.ExtID,
		Side:         r.Side,
		OrderType:    r.OrderType,
		TimeInForce:  r.TimeInForce,
		LimitPrice:   r.LimitPrice,
		TriggerPrice: r.TriggerPrice,
		BaseAmount:   r.BaseAmount,
	}
	if r.ExpiresAt != nil {
		order.ExpirationDate = *r.ExpiresAt
	}
	return order
}

// MarshalPlaceOrderRequest and friends are thin wrappers kept in one place
// so every caller goes through the same codec configuration.
func MarshalPlaceOrderRequest(r PlaceOrderRequest) ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalPlaceOrderRequest(data []byte) (PlaceOrderRequest, error) {
	var r PlaceOrderRequest
	err := json.Unmarshal(data, &r)
	return r, err
}

func MarshalCancelOrderRequest(r CancelOrderRequest) ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalCancelOrderRequest(data []byte) (CancelOrderRequest, error) {
	var r CancelOrderRequest
	err := json.Unmarshal(data, &r)
	return r, err
}
