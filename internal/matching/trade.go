package matching

import (
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable record of one match between a maker and a taker.
type Trade struct {
	ID uuid.UUID

	MakerOrderID uuid.UUID
	TakerOrderID uuid.UUID
	MakerAccountID uuid.UUID
	TakerAccountID uuid.UUID

	InstrumentID uuid.UUID
	Price        int64
	BaseAmount   uint64
	QuoteAmount  uint64

	SequenceID uint64
	CreatedAt  time.Time

	MakerStatus OrderStatus
	TakerStatus OrderStatus
}
