package catalog

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Store is the source of truth for prices and stock.
type Store interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProducts(ctx context.Context, ids []string) ([]Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// DecrementStock subtracts qty from the variant's stock only if the current
	// stock covers it, as a single atomic read-modify-write. It reports whether
	// the decrement applied and the stock remaining afterwards (or the current
	// stock when it did not apply).
	DecrementStock(ctx context.Context, productID, variantID string, qty int) (applied bool, remaining int, err error)
}
