package checkout

import "github.com/shopspring/decimal"

// PricingConfig holds the shipping constants. All arithmetic is in integer
// cents; decimal surfaces only at formatting boundaries.
type PricingConfig struct {
	FreeShippingCents int
	FlatShippingCents int
}

type Totals struct {
	LineTotalCents []int
	SubtotalCents  int
	ShippingCents  int
	TotalCents     int
}

// Price computes line totals, subtotal, shipping and total for a validated
// cart. Shipping is the flat rate below the free-shipping threshold and zero
// at or above it.
func (c PricingConfig) Price(cart *ValidatedCart) Totals {
	t := Totals{LineTotalCents: make([]int, len(cart.Items))}
	for i, it := range cart.Items {
		line := it.PriceCents * it.Quantity
		t.LineTotalCents[i] = line
		t.SubtotalCents += line
	}
	if t.SubtotalCents < c.FreeShippingCents {
		t.ShippingCents = c.FlatShippingCents
	}
	t.TotalCents = t.SubtotalCents + t.ShippingCents
	return t
}

// FormatCents renders an integer-cents amount as a decimal currency string.
func FormatCents(cents int) string {
	return decimal.New(int64(cents), -2).StringFixed(2)
}
