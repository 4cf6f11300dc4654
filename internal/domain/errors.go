package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrUnknownSystem   = errors.New("unknown_system")
	ErrUnknownResource = errors.New("unknown_resource")
	ErrNoStation       = errors.New("no_station")
	ErrOrderNotFound   = errors.New("order_not_found")

	// ErrInsufficientFunds is raised by the ledger when any party's
	// post-transfer balance would go negative. The entire transfer is
	// rejected with no balance change.
	ErrInsufficientFunds = errors.New("insufficient_funds")

	// ErrContention means a market or account lock could not be acquired
	// within the bounded wait. The operation had no effect and the caller
	// may retry; it is deliberately distinct from ErrInsufficientFunds.
	ErrContention = errors.New("contention")

	// ErrCorruptOrder flags a resting order found with non-positive
	// quantity. That is a logic fault, not caller error: abort loudly
	// rather than silently repair.
	ErrCorruptOrder = errors.New("corrupt_order")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Retryable reports whether err is a transient contention failure the
// caller may safely retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrContention)
}
