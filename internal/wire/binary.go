package wire

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"vantage/internal/matching"
)

// Binary framing for the TCP order-entry gateway: a fixed big-endian header
// per message type followed by any variable-length tail, matching fixed-point
// int64 price and uint64 quantity fields throughout.
var (
	ErrInvalidMessageType = errors.New("wire: invalid message type")
	ErrMessageTooShort    = errors.New("wire: message too short")
)

type MessageType uint16

const (
	MsgNewOrder MessageType = iota
	MsgCancelOrder
	MsgHeartbeat
)

const baseHeaderLen = 2

// newOrderHeaderLen is the full fixed width of a new-order payload after the
// type prefix: the scalar fields, both price presence flags with their
// 8-byte slots, and the three trailing UUIDs.
const newOrderHeaderLen = 2 /*side*/ + 2 /*order type*/ + 2 /*tif*/ + 8 /*base amount*/ + 1 /*has limit*/ + 8 /*limit price*/ + 1 /*has trigger*/ + 8 /*trigger price*/ + 16 /*instrument*/ + 16 /*new order id*/ + 16 /*account id*/

const cancelOrderHeaderLen = 16 /*instrument*/ + 16 /*order id*/

// EncodeNewOrder serializes a PlaceOrderRequest to the binary wire format.
func EncodeNewOrder(r PlaceOrderRequest) []byte {
	buf := make([]byte, baseHeaderLen+newOrderHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(MsgNewOrder))
	off := baseHeaderLen

	binary.BigEndian.PutUint16(buf[off:off+2], uint16(r.Side))
	off += 2
	binary.BigEndian.PutUint16(buf[off:off+2], uint16(r.OrderType))
	off += 2
	binary.BigEndian.PutUint16(buf[off:off+2], uint16(r.TimeInForce))
	off += 2
	binary.BigEndian.PutUint64(buf[off:off+8], r.BaseAmount)
	off += 8

	if r.LimitPrice != nil {
		buf[off] = 1
		off++
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(*r.LimitPrice))
		off += 8
	} else {
		buf[off] = 0
		off++
		off += 8
	}

	if r.TriggerPrice != nil {
		buf[off] = 1
		off++
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(*r.TriggerPrice))
		off += 8
	} else {
		buf[off] = 0
		off++
		off += 8
	}

	copy(buf[off:off+16], r.Instrument[:])
	off += 16
	copy(buf[off:off+16], r.NewOrderID[:])
	off += 16
	copy(buf[off:off+16], r.AccountID[:])

	return buf
}

// DecodeNewOrder parses a binary-framed new-order message. msg excludes the
// 2-byte type prefix already consumed by the caller's dispatch.
func DecodeNewOrder(msg []byte) (PlaceOrderRequest, error) {
	if len(msg) < newOrderHeaderLen {
		return PlaceOrderRequest{}, ErrMessageTooShort
	}
	var r PlaceOrderRequest
	off := 0

	r.Side = matching.Side(binary.BigEndian.Uint16(msg[off : off+2]))
	off += 2
	r.OrderType = matching.OrderType(binary.BigEndian.Uint16(msg[off : off+2]))
	off += 2
	r.TimeInForce = matching.TimeInForce(binary.BigEndian.Uint16(msg[off : off+2]))
	off += 2
	r.BaseAmount = binary.BigEndian.Uint64(msg[off : off+8])
	off += 8

	hasLimit := msg[off] == 1
	off++
	limitBits := binary.BigEndian.Uint64(msg[off : off+8])
	off += 8
	if hasLimit {
		price := int64(limitBits)
		r.LimitPrice = &price
	}

	hasTrigger := msg[off] == 1
	off++
	triggerBits := binary.BigEndian.Uint64(msg[off : off+8])
	off += 8
	if hasTrigger {
		price := int64(triggerBits)
		r.TriggerPrice = &price
	}

	instrument, err := uuid.FromBytes(msg[off : off+16])
	if err != nil {
		return PlaceOrderRequest{}, err
	}
	r.Instrument = instrument
	off += 16

	newOrderID, err := uuid.FromBytes(msg[off : off+16])
	if err != nil {
		return PlaceOrderRequest{}, err
	}
	r.NewOrderID = newOrderID
	off += 16

	accountID, err := uuid.FromBytes(msg[off : off+16])
	if err != nil {
		return PlaceOrderRequest{}, err
	}
	r.AccountID = accountID

	return r, nil
}

// EncodeCancelOrder serializes a CancelOrderRequest to the binary wire format.
func EncodeCancelOrder(r CancelOrderRequest) []byte {
	buf := make([]byte, baseHeaderLen+cancelOrderHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(MsgCancelOrder))
	off := baseHeaderLen
	copy(buf[off:off+16], r.Instrument[:])
	off += 16
	copy(buf[off:off+16], r.OrderID[:])
	return buf
}

// DecodeCancelOrder parses a binary-framed cancel message (type prefix
// already stripped).
func DecodeCancelOrder(msg []byte) (CancelOrderRequest, error) {
	if len(msg) < cancelOrderHeaderLen {
		return CancelOrderRequest{}, ErrMessageTooShort
	}
	instrument, err := uuid.FromBytes(msg[0:16])
	if err != nil {
		return CancelOrderRequest{}, err
	}
	orderID, err := uuid.FromBytes(msg[16:32])
	if err != nil {
		return CancelOrderRequest{}, err
	}
	return CancelOrderRequest{Instrument: instrument, OrderID: orderID}, nil
}

// DecodeMessageType reads the 2-byte type prefix and returns the remaining
// payload.
func DecodeMessageType(msg []byte) (MessageType, []byte, error) {
	if len(msg) < baseHeaderLen {
		return 0, nil, ErrMessageTooShort
	}
	return MessageType(binary.BigEndian.Uint16(msg[0:2])), msg[baseHeaderLen:], nil
}

// ReportKind distinguishes execution reports from error reports on the
// downstream wire.
type ReportKind uint8

const (
	ReportExecution ReportKind = iota
	ReportError
)

// Report is a single execution or rejection notice framed for the wire.
// ReportsForTrade builds the pair a single trade produces, one addressed to
// each counterparty.
type Report struct {
	Kind         ReportKind
	Side         matching.Side
	Timestamp    int64
	BaseAmount   uint64
	Price        int64
	OrderID      uuid.UUID
	CounterpartyOrderID uuid.UUID
	ErrStr       string
}

const reportFixedLen = 1 /*kind*/ + 1 /*side*/ + 8 /*timestamp*/ + 8 /*base amount*/ + 8 /*price*/ + 16 /*order id*/ + 16 /*counterparty id*/ + 4 /*err len*/

// Serialize packs a Report into its wire form, a fixed header followed by
// the variable-length error string.
func (r Report) Serialize() []byte {
	buf := make([]byte, reportFixedLen+len(r.ErrStr))
	buf[0] = byte(r.Kind)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.Timestamp))
	binary.BigEndian.PutUint64(buf[10:18], r.BaseAmount)
	binary.BigEndian.PutUint64(buf[18:26], uint64(r.Price))
	copy(buf[26:42], r.OrderID[:])
	copy(buf[42:58], r.CounterpartyOrderID[:])
	binary.BigEndian.PutUint32(buf[58:62], uint32(len(r.ErrStr)))
	copy(buf[reportFixedLen:], r.ErrStr)
	return buf
}

// DeserializeReport is the inverse of Serialize, used by exchangectl to
// render reports read off the wire.
func DeserializeReport(buf []byte) (Report, error) {
	if len(buf) < reportFixedLen {
		return Report{}, ErrMessageTooShort
	}
	r := Report{
		Kind:      ReportKind(buf[0]),
		Side:      matching.Side(buf[1]),
		Timestamp: int64(binary.BigEndian.Uint64(buf[2:10])),
		BaseAmount: binary.BigEndian.Uint64(buf[10:18]),
		Price:     int64(binary.BigEndian.Uint64(buf[18:26])),
	}
	copy(r.OrderID[:], buf[26:42])
	copy(r.CounterpartyOrderID[:], buf[42:58])
	errLen := binary.BigEndian.Uint32(buf[58:62])
	if uint32(len(buf)) < reportFixedLen+errLen {
		return Report{}, ErrMessageTooShort
	}
	r.ErrStr = string(buf[reportFixedLen : reportFixedLen+errLen])
	return r, nil
}

// ReportsForTrade builds the two per-side reports a single trade produces,
// one for the maker and one for the taker. makerSide is the resting order's
// side; the engine doesn't stamp a trade with it directly since either side
// can be the maker.
func ReportsForTrade(t matching.Trade, makerSide matching.Side) (maker Report, taker Report) {
	now := t.CreatedAt.UnixNano()
	takerSide := makerSide.Opposite()
	maker = Report{
		Kind:                ReportExecution,
		Side:                makerSide,
		Timestamp:           now,
		BaseAmount:          t.BaseAmount,
		Price:               t.Price,
		OrderID:             t.MakerOrderID,
		CounterpartyOrderID: t.TakerOrderID,
	}
	taker = Report{
		Kind:                ReportExecution,
		Side:                takerSide,
		Timestamp:           now,
		BaseAmount:          t.BaseAmount,
		Price:               t.Price,
		OrderID:             t.TakerOrderID,
		CounterpartyOrderID: t.MakerOrderID,
	}
	return maker, taker
}

// EncodeErrorReport frames a rejection as a Report with no trade fields.
func EncodeErrorReport(orderID uuid.UUID, errStr string) []byte {
	r := Report{
		Kind:    ReportError,
		OrderID: orderID,
		ErrStr:  errStr,
	}
	return r.Serialize()
}
