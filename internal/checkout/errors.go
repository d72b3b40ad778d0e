package checkout

import (
	"errors"
	"fmt"
	"time"
)

// ErrVerificationFailed covers bot-defense failures. The message stays generic
// on purpose; nothing about the verifier leaks to the client.
var ErrVerificationFailed = errors.New("verification failed")

// CartError is a client-input failure: malformed shape, bad identifier syntax,
// empty cart. Safe to echo to the shopper.
type CartError struct{ Reason string }

func (e *CartError) Error() string { return e.Reason }

// FieldErrors accumulates per-field shipping/contact validation failures so the
// shopper sees them all at once.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return fmt.Sprintf("invalid input in %d field(s)", len(e))
}

// StockError reports an advisory stock shortfall at validation time. It is
// deliberately detailed: the shopper can act on it.
type StockError struct {
	ProductID         string `json:"productId"`
	VariantID         string `json:"variantId"`
	ProductName       string `json:"productName"`
	VariantSize       string `json:"variantSize,omitempty"`
	AvailableStock    int    `json:"availableStock"`
	RequestedQuantity int    `json:"requestedQuantity"`
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s %s: requested %d, available %d",
		e.ProductName, e.VariantSize, e.RequestedQuantity, e.AvailableStock)
}

// ThrottleError carries the rate-limit metadata surfaced as response headers.
type ThrottleError struct {
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string { return "too many requests" }

// GatewayError wraps a payment-session creation failure. The pending order has
// already been persisted at this point; it is left in place (see CreateCheckout).
type GatewayError struct{ Err error }

func (e *GatewayError) Error() string { return "payment session creation failed: " + e.Err.Error() }
func (e *GatewayError) Unwrap() error { return e.Err }
