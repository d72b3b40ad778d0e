package orders

import "time"

// ShippingInfo holds the sanitized contact and delivery fields captured at
// checkout.
type ShippingInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	StreetAddress string `json:"streetAddress"`
	AddressLine2  string `json:"addressLine2,omitempty"`
	City          string `json:"city"`
	Province      string `json:"province"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
	Phone         string `json:"phone,omitempty"`
}

// LineItem is a frozen snapshot of one cart group at order creation. Price,
// size, brand and title are copied from the catalog and never recomputed, so
// later catalog edits cannot alter a placed order.
type LineItem struct {
	ProductID    string `json:"productId"`
	VariantID    string `json:"variantId,omitempty"` // empty for legacy flat-priced products
	Quantity     int    `json:"quantity"`
	PriceCents   int    `json:"priceCents"`
	Size         string `json:"size,omitempty"`
	BrandName    string `json:"brandName,omitempty"`
	ProductTitle string `json:"productTitle"`
}

type Order struct {
	ID        string
	LineItems []LineItem
	ShippingInfo

	SubtotalCents int
	ShippingCents int
	TotalCents    int
	Currency      string

	// Paid flips exactly once, driven by the webhook reconciler. When true,
	// StripeEventID holds the event that flipped it and ProcessedAt the moment
	// the gate closed.
	Paid          bool
	StripeEventID string
	ProcessedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
