package stockwatch

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scentlab/storefront/internal/orders"
)

// Recorder persists discrepancies for manual reconciliation.
type Recorder interface {
	RecordDiscrepancy(ctx context.Context, eventID string, occurredAt time.Time, d orders.StockDiscrepancyPayload) error
}

type Repo struct{ DB *pgxpool.Pool }

var _ Recorder = (*Repo)(nil)

// RecordDiscrepancy is idempotent on the envelope event id, so redelivered
// kafka messages cannot duplicate rows.
func (r *Repo) RecordDiscrepancy(ctx context.Context, eventID string, occurredAt time.Time, d orders.StockDiscrepancyPayload) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO stock_discrepancies(event_id, order_id, product_id, variant_id,
		                                product_title, variant_size, requested, available, occurred_at)
		VALUES ($1, $2::uuid, $3::uuid, $4::uuid, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, d.OrderID, d.ProductID, d.VariantID, d.ProductTitle, d.VariantSize,
		d.Requested, d.Available, occurredAt)
	return err
}
