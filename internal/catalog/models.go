package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Brand struct {
	ID       string
	Name     string
	ParentID string
}

// Variant is a purchasable size/price/stock unit of a Product. Its price is the
// only value ever trusted for charging.
type Variant struct {
	ID         string
	ProductID  string
	Size       string
	SKU        string
	PriceCents int
	Stock      int
}

// Price renders the variant price in decimal currency units.
func (v Variant) Price() decimal.Decimal {
	return decimal.New(int64(v.PriceCents), -2)
}

type Product struct {
	ID          string
	Title       string
	Description string
	BrandID     string
	BrandName   string
	// PriceCents is the legacy flat price for products created before variants
	// existed. Zero when the product is variant-priced.
	PriceCents int
	Featured   bool
	Variants   []Variant
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FlatPrice renders the legacy flat price in decimal currency units.
func (p *Product) FlatPrice() decimal.Decimal {
	return decimal.New(int64(p.PriceCents), -2)
}

// FindVariant returns the variant with the given id, or nil.
func (p *Product) FindVariant(variantID string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}
