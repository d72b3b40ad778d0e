package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore implements Store with in-process storage. It backs the "memory"
// backend for local development and the unit tests.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*Product
	order    []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]*Product)}
}

// Put inserts or replaces a product. The stored copy is deep, so the caller's
// slice cannot alias live stock.
func (s *MemoryStore) Put(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	cp := p
	cp.Variants = append([]Variant(nil), p.Variants...)
	s.products[p.ID] = &cp
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	cp.Variants = append([]Variant(nil), p.Variants...)
	return &cp, nil
}

func (s *MemoryStore) GetProducts(ctx context.Context, ids []string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			cp.Variants = append([]Variant(nil), p.Variants...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		p := s.products[id]
		cp := *p
		cp.Variants = append([]Variant(nil), p.Variants...)
		out = append(out, cp)
	}
	return out, nil
}

func (s *MemoryStore) DecrementStock(ctx context.Context, productID, variantID string, qty int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return false, 0, ErrProductNotFound
	}
	v := p.FindVariant(variantID)
	if v == nil {
		return false, 0, ErrVariantNotFound
	}
	if v.Stock < qty {
		return false, v.Stock, nil
	}
	v.Stock -= qty
	return true, v.Stock, nil
}

// Seed loads a small demo catalog for the memory backend.
func (s *MemoryStore) Seed() {
	now := time.Now().UTC()
	brand := Brand{ID: uuid.NewString(), Name: "Maison Verte"}
	cedar := Product{
		ID:        uuid.NewString(),
		Title:     "Cedar & Vetiver",
		BrandID:   brand.ID,
		BrandName: brand.Name,
		Featured:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cedar.Variants = []Variant{
		{ID: uuid.NewString(), ProductID: cedar.ID, Size: "2 ml", SKU: "CV-2", PriceCents: cents("14.99"), Stock: 25},
		{ID: uuid.NewString(), ProductID: cedar.ID, Size: "5 ml", SKU: "CV-5", PriceCents: cents("29.99"), Stock: 12},
		{ID: uuid.NewString(), ProductID: cedar.ID, Size: "10 ml", SKU: "CV-10", PriceCents: cents("54.99"), Stock: 4},
	}
	s.Put(cedar)

	// Legacy flat-priced product, no variants and no stock tracking.
	amber := Product{
		ID:         uuid.NewString(),
		Title:      "Amber Noir",
		BrandID:    brand.ID,
		BrandName:  brand.Name,
		PriceCents: cents("39.99"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.Put(amber)
}

func cents(price string) int {
	return int(decimal.RequireFromString(price).Mul(decimal.New(100, 0)).IntPart())
}
