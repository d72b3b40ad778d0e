package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/scentlab/storefront/internal/catalog"
	kafkax "github.com/scentlab/storefront/internal/kafka"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/payment"
	"github.com/scentlab/storefront/internal/redisx"
)

// EventCheckoutCompleted is the provider event type that settles an order.
const EventCheckoutCompleted = "checkout.session.completed"

// Outcome is the HTTP contract of one webhook delivery.
type Outcome struct {
	Status  int
	Message string
}

// Reconciler applies a payment-completed notification to the order and the
// catalog: at-least-once delivery in, at-most-once stock decrement and paid
// flag out. Redis and the kafka producer are accelerators and may be nil; the
// order store's event-id record is the authoritative idempotency gate.
type Reconciler struct {
	Catalog catalog.Store
	Orders  orders.Store
	Redis   *redis.Client
	// PaidProducer and DiscrepancyProducer publish OrderPaid and
	// StockDiscrepancy events.
	PaidProducer        *kafkax.Producer
	DiscrepancyProducer *kafkax.Producer

	Secret      string
	Tolerance   time.Duration
	ServiceName string
}

type sessionEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandleEvent verifies and reconciles one raw webhook delivery. body must be
// the untouched request bytes; the signature covers them, not a reparse.
func (r *Reconciler) HandleEvent(ctx context.Context, body []byte, sigHeader string) Outcome {
	// Authenticity first: nothing is parsed from an unverified payload.
	if err := payment.VerifySignature(body, sigHeader, r.Secret, r.Tolerance, time.Now()); err != nil {
		log.Printf("webhook: signature rejected: %v", err)
		return Outcome{http.StatusBadRequest, "signature verification failed"}
	}

	var ev sessionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return Outcome{http.StatusBadRequest, "malformed event payload"}
	}
	if ev.Type != EventCheckoutCompleted {
		// Acknowledge event types we intentionally do not act on.
		return Outcome{http.StatusOK, "event ignored"}
	}
	if ev.ID == "" {
		return Outcome{http.StatusBadRequest, "missing event id"}
	}

	// Freshness: a replayed capture of a signed payload goes stale.
	if time.Since(time.Unix(ev.Created, 0)) > r.Tolerance {
		log.Printf("webhook: stale event %s rejected", ev.ID)
		return Outcome{http.StatusBadRequest, "stale event"}
	}

	orderID := ev.Data.Object.Metadata["orderId"]
	if orderID == "" {
		log.Printf("webhook: event %s has no orderId metadata", ev.ID)
		return Outcome{http.StatusBadRequest, "missing orderId metadata"}
	}
	if uuid.Validate(orderID) != nil {
		return Outcome{http.StatusBadRequest, "invalid orderId metadata"}
	}

	// Event-level idempotency gate. Redis claims the event id first so a
	// concurrent duplicate of the same delivery short-circuits before touching
	// stock; the durable record lives on the order row.
	claimed := true
	dedupKey := fmt.Sprintf(redisx.KeyWebhookDedup, ev.ID)
	if r.Redis != nil {
		ok, err := r.Redis.SetNX(ctx, dedupKey, orderID, redisx.TTLDedup).Result()
		if err != nil {
			log.Printf("webhook: redis dedup unavailable: %v", err)
		} else {
			claimed = ok
		}
	}
	seen, err := r.Orders.EventSeen(ctx, ev.ID)
	if err != nil {
		r.releaseClaim(ctx, dedupKey, claimed)
		log.Printf("webhook: event lookup failed: %v", err)
		return Outcome{http.StatusInternalServerError, "processing error"}
	}
	if seen || !claimed {
		return Outcome{http.StatusOK, "event already processed"}
	}

	// Order-level gate, defense in depth alongside the event gate.
	order, err := r.Orders.Get(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		r.releaseClaim(ctx, dedupKey, claimed)
		log.Printf("webhook: order %s not found for event %s", orderID, ev.ID)
		return Outcome{http.StatusNotFound, "order not found"}
	}
	if err != nil {
		r.releaseClaim(ctx, dedupKey, claimed)
		log.Printf("webhook: order load failed: %v", err)
		return Outcome{http.StatusInternalServerError, "processing error"}
	}
	if order.Paid {
		return Outcome{http.StatusOK, "order already processed"}
	}

	// Payment is captured; the order completes regardless of per-item
	// outcomes. Discrepancies are recorded, never fatal.
	r.decrementStock(ctx, order)

	applied, err := r.Orders.MarkPaid(ctx, order.ID, ev.ID, time.Now().UTC())
	if err != nil {
		// Surface a retryable failure; the idempotency gates make the retry safe.
		r.releaseClaim(ctx, dedupKey, claimed)
		log.Printf("webhook: mark paid failed for order %s: %v", order.ID, err)
		return Outcome{http.StatusInternalServerError, "processing error"}
	}
	if !applied {
		return Outcome{http.StatusOK, "order already processed"}
	}

	log.Printf("webhook: order %s marked paid by event %s", order.ID, ev.ID)
	r.cacheStatus(ctx, order.ID)
	r.publishPaid(order, ev.ID)
	return Outcome{http.StatusOK, "stock updated and order marked paid"}
}

// decrementStock walks the frozen snapshot in order. One bad line never aborts
// the rest.
func (r *Reconciler) decrementStock(ctx context.Context, order *orders.Order) {
	for _, li := range order.LineItems {
		if li.VariantID == "" {
			// Legacy flat-priced products carry no tracked stock.
			continue
		}
		applied, remaining, err := r.Catalog.DecrementStock(ctx, li.ProductID, li.VariantID, li.Quantity)
		if err != nil {
			log.Printf("webhook: decrement failed for order %s product %s variant %s: %v",
				order.ID, li.ProductID, li.VariantID, err)
			continue
		}
		if !applied {
			log.Printf("webhook: stock discrepancy on order %s: %s %s requested %d available %d",
				order.ID, li.ProductTitle, li.Size, li.Quantity, remaining)
			r.publishDiscrepancy(order.ID, li, remaining)
			continue
		}
		log.Printf("webhook: stock updated for %s (%s): sold %d, remaining %d",
			li.ProductTitle, li.Size, li.Quantity, remaining)
	}
}

func (r *Reconciler) releaseClaim(ctx context.Context, dedupKey string, claimed bool) {
	// A failed delivery must stay retryable; drop the fast-path claim.
	if r.Redis != nil && claimed {
		_ = r.Redis.Del(ctx, dedupKey).Err()
	}
}

func (r *Reconciler) cacheStatus(ctx context.Context, orderID string) {
	if r.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = r.Redis.Set(ctx, key, `{"paid":true}`, redisx.TTLStatusCache).Err()
}

func (r *Reconciler) publishPaid(order *orders.Order, eventID string) {
	if r.PaidProducer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPaid,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.ServiceName,
		CorrelationID: order.ID,
		Payload: kafkax.MustMarshal(orders.OrderPaidPayload{
			OrderID:       order.ID,
			StripeEventID: eventID,
			TotalCents:    order.TotalCents,
			Currency:      order.Currency,
		}),
	}
	r.PaidProducer.Publish(orders.PartitionKey(order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPaid)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (r *Reconciler) publishDiscrepancy(orderID string, li orders.LineItem, available int) {
	if r.DiscrepancyProducer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockDiscrepancy,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.ServiceName,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.StockDiscrepancyPayload{
			OrderID:      orderID,
			ProductID:    li.ProductID,
			VariantID:    li.VariantID,
			ProductTitle: li.ProductTitle,
			VariantSize:  li.Size,
			Requested:    li.Quantity,
			Available:    available,
		}),
	}
	r.DiscrepancyProducer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockDiscrepancy)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
