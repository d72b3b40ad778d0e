package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, name, email, street_address, address_line2, city,
		                   province, postal_code, country, phone, paid, currency,
		                   subtotal_cents, shipping_cents, total_cents)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,false,$11,$12,$13,$14)`,
		o.ID, o.Name, o.Email, o.StreetAddress, o.AddressLine2, o.City,
		o.Province, o.PostalCode, o.Country, o.Phone, o.Currency,
		o.SubtotalCents, o.ShippingCents, o.TotalCents)
	if err != nil {
		return err
	}

	for i, li := range o.LineItems {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_line_items(order_id, position, product_id, variant_id,
			                             qty, price_cents, size, brand_name, product_title)
			VALUES ($1,$2,$3,NULLIF($4,'')::uuid,$5,$6,$7,$8,$9)`,
			o.ID, i, li.ProductID, li.VariantID, li.Quantity, li.PriceCents,
			li.Size, li.BrandName, li.ProductTitle)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, email, street_address, address_line2, city, province,
		       postal_code, country, phone, paid, COALESCE(stripe_event_id, ''),
		       processed_at, currency, subtotal_cents, shipping_cents, total_cents,
		       created_at, updated_at
		FROM orders WHERE id = $1::uuid`, id).Scan(
		&o.ID, &o.Name, &o.Email, &o.StreetAddress, &o.AddressLine2, &o.City,
		&o.Province, &o.PostalCode, &o.Country, &o.Phone, &o.Paid, &o.StripeEventID,
		&o.ProcessedAt, &o.Currency, &o.SubtotalCents, &o.ShippingCents,
		&o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, COALESCE(variant_id::text, ''), qty, price_cents,
		       size, brand_name, product_title
		FROM order_line_items WHERE order_id = $1::uuid ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ProductID, &li.VariantID, &li.Quantity,
			&li.PriceCents, &li.Size, &li.BrandName, &li.ProductTitle); err != nil {
			return nil, err
		}
		o.LineItems = append(o.LineItems, li)
	}
	return &o, rows.Err()
}

func (r *Repo) EventSeen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE stripe_event_id = $1)`, eventID).Scan(&seen)
	return seen, err
}

func (r *Repo) MarkPaid(ctx context.Context, orderID, eventID string, processedAt time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET paid = true, stripe_event_id = $2, processed_at = $3, updated_at = now()
		WHERE id = $1::uuid AND paid = false`, orderID, eventID, processedAt)
	if err != nil {
		// The unique index on stripe_event_id closes the race where two
		// deliveries of the same event target the gate concurrently.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
