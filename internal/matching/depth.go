package matching

import (
	"time"

	"github.com/google/uuid"
)

// DepthLevel is one aggregated row of the depth projection.
type DepthLevel struct {
	Price      int64
	Volume     uint64
	OrderCount int
}

// DepthSnapshot is the derived, point-in-time projection of the book.
type DepthSnapshot struct {
	InstrumentID uuid.UUID
	Timestamp    time.Time
	SequenceID   uint64

	// Bids is sorted descending by price, Asks ascending.
	Bids []DepthLevel
	Asks []DepthLevel
}

// levelKey identifies a single (side, price) cell for a depth delta.
type levelKey struct {
	Side  Side
	Price int64
}

// DepthDelta maps a touched (side, price) cell to its post-mutation volume.
// A volume of 0 means the level was removed entirely.
type DepthDelta struct {
	Side   Side
	Price  int64
	Volume uint64
	Count  int
}
