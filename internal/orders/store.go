package orders

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("order not found")

type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)

	// EventSeen reports whether the payment event id has already been recorded
	// against any order. This is the event-level idempotency gate for
	// at-least-once webhook delivery.
	EventSeen(ctx context.Context, eventID string) (bool, error)

	// MarkPaid transitions the order to paid and records the event id plus a
	// processed timestamp, only if the order is still pending and the event id
	// is unused. It reports whether the transition applied; a false return with
	// nil error means a duplicate delivery lost the race and the gate is
	// already closed.
	MarkPaid(ctx context.Context, orderID, eventID string, processedAt time.Time) (bool, error)
}
