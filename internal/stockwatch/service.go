package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/scentlab/storefront/internal/kafka"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/redisx"
)

// Service consumes the order event stream and records stock discrepancies so
// someone can reconcile oversold variants by hand.
type Service struct {
	Repo        Recorder
	Redis       *redis.Client
	ServiceName string
}

// HandleEvent is the kafka consumer handler.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	switch env.EventType {
	case orders.EventStockDiscrepancy:
		return s.handleDiscrepancy(ctx, env)
	case orders.EventOrderPaid:
		p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Printf("stockwatch: order %s paid (%d %s)", p.OrderID, p.TotalCents, p.Currency)
		return nil
	default:
		return nil
	}
}

func (s *Service) handleDiscrepancy(ctx context.Context, env orders.Envelope) error {
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyStockwatchDedup, env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.StockDiscrepancyPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := s.Repo.RecordDiscrepancy(ctx, env.EventID, env.OccurredAt, p); err != nil {
		return err
	}
	log.Printf("stockwatch: discrepancy recorded for order %s: %s %s requested %d available %d",
		p.OrderID, p.ProductTitle, p.VariantSize, p.Requested, p.Available)
	return nil
}
