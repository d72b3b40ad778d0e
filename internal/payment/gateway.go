package payment

import "context"

// SessionLine is one priced line item passed to the hosted checkout. Unit
// amounts are server-resolved cents; client prices never reach this type.
type SessionLine struct {
	Name            string
	UnitAmountCents int
	Quantity        int
}

type SessionParams struct {
	// OrderID is embedded as session metadata and is the correlation key the
	// webhook reconciler uses to find the order again.
	OrderID       string
	CustomerEmail string
	Currency      string
	Lines         []SessionLine
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID  string
	URL string
}

// Gateway creates hosted payment sessions. The provider's checkout UI and card
// handling are entirely external; completion arrives later via webhook.
type Gateway interface {
	CreateSession(ctx context.Context, p SessionParams) (*Session, error)
}
