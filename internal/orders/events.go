package orders

import (
	"encoding/json"
	"time"
)

const (
	EventCheckoutCreated  = "CheckoutCreated"
	EventOrderPaid        = "OrderPaid"
	EventStockDiscrepancy = "StockDiscrepancy"
)

// Envelope wraps every event published to kafka.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type CheckoutCreatedPayload struct {
	OrderID       string     `json:"order_id"`
	Items         []LineItem `json:"items"`
	SubtotalCents int        `json:"subtotal_cents"`
	ShippingCents int        `json:"shipping_cents"`
	TotalCents    int        `json:"total_cents"`
	Currency      string     `json:"currency"`
}

type OrderPaidPayload struct {
	OrderID       string `json:"order_id"`
	StripeEventID string `json:"stripe_event_id"`
	TotalCents    int    `json:"total_cents"`
	Currency      string `json:"currency"`
}

// StockDiscrepancyPayload records a paid order whose conditional stock
// decrement did not apply; stockwatch persists these for manual reconciliation.
type StockDiscrepancyPayload struct {
	OrderID      string `json:"order_id"`
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id"`
	ProductTitle string `json:"product_title"`
	VariantSize  string `json:"variant_size,omitempty"`
	Requested    int    `json:"requested"`
	Available    int    `json:"available"`
}
