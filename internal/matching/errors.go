package matching

import "errors"

// Validation errors: the order is rejected outright, no book mutation.
var (
	ErrWrongInstrument  = errors.New("order instrument does not match book instrument")
	ErrNoLimitPrice     = errors.New("order has no limit price")
	ErrInvalidQuantity  = errors.New("order quantity must be positive")
	ErrInvalidPrice     = errors.New("order limit price must be positive")
	ErrExpired          = errors.New("order expiration date is in the past")
	ErrDuplicateOrderID = errors.New("order id already exists on the book")
	ErrMarketMustBeIOCorFOK = errors.New("market orders must use IOC or FOK time in force")
	ErrMissingTriggerPrice  = errors.New("stop order is missing a trigger price")
)

// Runtime policy errors: returned to the caller, partial state is either
// absent (FOK) or the taker is left Cancelled (IOC/Market).
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrTradingHalted       = errors.New("trading halted for this instrument")
	ErrFokNotFullyFillable = errors.New("fill-or-kill order could not be fully filled")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for market order")
	ErrQueueFull           = errors.New("command queue full")
)

// Internal invariant violations: should be impossible by construction. If
// detected, the owning instrument halts rather than propagating further.
var (
	ErrArithmeticOverflow   = errors.New("price times quantity overflows quote amount")
	ErrDepthMismatch        = errors.New("depth aggregate does not match price level contents")
	ErrMissingIndexEntry    = errors.New("order index missing entry for resting order")
)
