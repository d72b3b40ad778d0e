package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	ps, err := r.queryProducts(ctx, `WHERE p.id = $1::uuid`, id)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, ErrProductNotFound
	}
	return &ps[0], nil
}

func (r *Repo) GetProducts(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryProducts(ctx, `WHERE p.id = ANY($1::uuid[])`, ids)
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	return r.queryProducts(ctx, ``)
}

func (r *Repo) queryProducts(ctx context.Context, where string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.title, p.description, COALESCE(p.brand_id::text, ''),
		       COALESCE(b.name, ''), COALESCE(p.price_cents, 0), p.featured,
		       p.created_at, p.updated_at
		FROM products p
		LEFT JOIN brands b ON b.id = p.brand_id
		`+where+`
		ORDER BY p.title`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	idx := map[string]int{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.BrandID,
			&p.BrandName, &p.PriceCents, &p.Featured, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		idx[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	productIDs := make([]string, 0, len(out))
	for _, p := range out {
		productIDs = append(productIDs, p.ID)
	}
	vrows, err := r.DB.Query(ctx, `
		SELECT id, product_id, size, COALESCE(sku, ''), price_cents, stock
		FROM variants
		WHERE product_id = ANY($1::uuid[])
		ORDER BY price_cents`, productIDs)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var v Variant
		if err := vrows.Scan(&v.ID, &v.ProductID, &v.Size, &v.SKU, &v.PriceCents, &v.Stock); err != nil {
			return nil, err
		}
		if i, ok := idx[v.ProductID]; ok {
			out[i].Variants = append(out[i].Variants, v)
		}
	}
	return out, vrows.Err()
}

// DecrementStock issues the conditional update directly so two concurrent
// webhook deliveries racing on the same variant cannot drive stock negative.
func (r *Repo) DecrementStock(ctx context.Context, productID, variantID string, qty int) (bool, int, error) {
	var remaining int
	err := r.DB.QueryRow(ctx, `
		UPDATE variants SET stock = stock - $3
		WHERE product_id = $1::uuid AND id = $2::uuid AND stock >= $3
		RETURNING stock`, productID, variantID, qty).Scan(&remaining)
	if err == nil {
		return true, remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, err
	}

	// Not applied: either the variant is missing or stock was short.
	err = r.DB.QueryRow(ctx, `
		SELECT stock FROM variants WHERE product_id = $1::uuid AND id = $2::uuid`,
		productID, variantID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, ErrVariantNotFound
	}
	if err != nil {
		return false, 0, err
	}
	return false, remaining, nil
}
