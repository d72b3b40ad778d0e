package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/scentlab/storefront/internal/catalog"
)

// CartLine is one untrusted unit from the client cart. Quantity is implied by
// repetition. Two wire shapes coexist: the legacy bare product id (a JSON
// string) and the structured form carrying a variant. Both normalize into this
// one type at the trust boundary.
type CartLine struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Size      string `json:"size,omitempty"`
	// Price is advisory only. It is parsed so malformed payloads fail fast, and
	// then discarded; the server price always comes from the catalog.
	Price json.Number `json:"price,omitempty"`
}

func (l *CartLine) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*l = CartLine{ProductID: id}
		return nil
	}
	type alias CartLine
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = CartLine(a)
	return nil
}

// ValidatedItem is one server-trusted cart group: resolved price, size, brand
// and title all come from the catalog, never from the client.
type ValidatedItem struct {
	ProductID    string
	VariantID    string // empty for legacy flat-priced products
	Quantity     int
	PriceCents   int
	Size         string
	BrandName    string
	ProductTitle string
}

type ValidatedCart struct {
	Items []ValidatedItem
}

// Validate turns the untrusted cart lines into a ValidatedCart against the
// catalog, or fails with a client-error kind. Lines are grouped by
// (productId, variantId) in first-seen order; the stock check here is advisory,
// the authoritative enforcement is the conditional decrement at payment time.
func Validate(ctx context.Context, lines []CartLine, store catalog.Store) (*ValidatedCart, error) {
	if len(lines) == 0 {
		return nil, &CartError{Reason: "cart is empty"}
	}

	type group struct {
		productID, variantID string
		qty                  int
	}
	var groups []*group
	byKey := map[string]*group{}
	seenProducts := map[string]bool{}
	var productIDs []string

	for _, l := range lines {
		if uuid.Validate(l.ProductID) != nil {
			return nil, &CartError{Reason: "invalid product id"}
		}
		if l.VariantID != "" && uuid.Validate(l.VariantID) != nil {
			return nil, &CartError{Reason: "invalid variant id"}
		}
		key := l.ProductID + "/" + l.VariantID
		if g, ok := byKey[key]; ok {
			g.qty++
			continue
		}
		g := &group{productID: l.ProductID, variantID: l.VariantID, qty: 1}
		byKey[key] = g
		groups = append(groups, g)
		if !seenProducts[l.ProductID] {
			seenProducts[l.ProductID] = true
			productIDs = append(productIDs, l.ProductID)
		}
	}

	products, err := store.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	cart := &ValidatedCart{Items: make([]ValidatedItem, 0, len(groups))}
	for _, g := range groups {
		p, ok := byID[g.productID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, g.productID)
		}

		if g.variantID == "" {
			// Legacy flat-priced products carry no variants and no stock
			// tracking. A bare line against a variant-priced product is a
			// malformed cart, not a legacy purchase.
			if len(p.Variants) > 0 {
				return nil, &CartError{Reason: "variant selection required for " + p.Title}
			}
			if p.PriceCents <= 0 {
				return nil, fmt.Errorf("%w: %s has no purchasable price", catalog.ErrVariantNotFound, g.productID)
			}
			cart.Items = append(cart.Items, ValidatedItem{
				ProductID:    p.ID,
				Quantity:     g.qty,
				PriceCents:   p.PriceCents,
				BrandName:    p.BrandName,
				ProductTitle: p.Title,
			})
			continue
		}

		v := p.FindVariant(g.variantID)
		if v == nil {
			return nil, fmt.Errorf("%w: %s in product %s", catalog.ErrVariantNotFound, g.variantID, g.productID)
		}
		if v.Stock < g.qty {
			return nil, &StockError{
				ProductID:         p.ID,
				VariantID:         v.ID,
				ProductName:       p.Title,
				VariantSize:       v.Size,
				AvailableStock:    v.Stock,
				RequestedQuantity: g.qty,
			}
		}
		cart.Items = append(cart.Items, ValidatedItem{
			ProductID:    p.ID,
			VariantID:    v.ID,
			Quantity:     g.qty,
			PriceCents:   v.PriceCents,
			Size:         v.Size,
			BrandName:    p.BrandName,
			ProductTitle: p.Title,
		})
	}
	return cart, nil
}
