package checkout

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/scentlab/storefront/internal/catalog"
	kafkax "github.com/scentlab/storefront/internal/kafka"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/payment"
	"github.com/scentlab/storefront/internal/ratelimit"
	"github.com/scentlab/storefront/internal/recaptcha"
)

// Service turns an untrusted client cart into a pending order plus a hosted
// payment session. Collaborators left nil are skipped (throttling, bot
// defense, event publishing), which keeps the memory backend self-contained.
type Service struct {
	Catalog catalog.Store
	Orders  orders.Store
	Gateway payment.Gateway

	Captcha  recaptcha.Verifier
	Limiter  ratelimit.Limiter
	Producer *kafkax.Producer

	Pricing     PricingConfig
	Currency    string
	PublicURL   string
	ServiceName string
}

// CheckoutRequest carries the parsed client payload plus request context.
type CheckoutRequest struct {
	Shipping       orders.ShippingInfo
	Lines          []CartLine
	RecaptchaToken string
	ClientIP       string
	TraceID        string
}

// CreateCheckout runs the checkout sequence, each step short-circuiting on
// failure:
// rate limit, bot defense, sanitize, validate, price, persist pending order,
// create payment session. A gateway failure after the order insert leaves an
// orphaned pending order on purpose; it simply never gets paid.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if s.Limiter != nil {
		res, err := s.Limiter.Allow(ctx, req.ClientIP)
		if err != nil {
			// Limiter backend down: fail open, the limiter is an abuse guard,
			// not a correctness gate.
			log.Printf("checkout: rate limiter unavailable: %v", err)
		} else if !res.Allowed {
			return "", &ThrottleError{
				Limit:      res.Limit,
				Remaining:  res.Remaining,
				Reset:      res.Reset,
				RetryAfter: time.Until(res.Reset),
			}
		}
	}

	if s.Captcha != nil {
		res, err := s.Captcha.Verify(ctx, req.RecaptchaToken)
		if err != nil {
			log.Printf("checkout: captcha verification error: %v", err)
			return "", ErrVerificationFailed
		}
		if !res.Success {
			return "", ErrVerificationFailed
		}
	}

	shipping, fieldErrs := SanitizeShippingInfo(req.Shipping)
	if fieldErrs != nil {
		return "", fieldErrs
	}

	cart, err := Validate(ctx, req.Lines, s.Catalog)
	if err != nil {
		return "", err
	}
	totals := s.Pricing.Price(cart)

	order := &orders.Order{
		ID:            uuid.NewString(),
		ShippingInfo:  shipping,
		SubtotalCents: totals.SubtotalCents,
		ShippingCents: totals.ShippingCents,
		TotalCents:    totals.TotalCents,
		Currency:      s.Currency,
	}
	for _, it := range cart.Items {
		order.LineItems = append(order.LineItems, orders.LineItem{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			Quantity:     it.Quantity,
			PriceCents:   it.PriceCents,
			Size:         it.Size,
			BrandName:    it.BrandName,
			ProductTitle: it.ProductTitle,
		})
	}
	if err := s.Orders.Create(ctx, order); err != nil {
		return "", err
	}

	session, err := s.Gateway.CreateSession(ctx, s.sessionParams(order, totals))
	if err != nil {
		log.Printf("checkout: session creation failed, pending order %s orphaned: %v", order.ID, err)
		return "", &GatewayError{Err: err}
	}

	s.publishCheckoutCreated(order, totals, req.TraceID)
	return session.URL, nil
}

func (s *Service) sessionParams(order *orders.Order, totals Totals) payment.SessionParams {
	p := payment.SessionParams{
		OrderID:       order.ID,
		CustomerEmail: order.Email,
		Currency:      s.Currency,
		SuccessURL:    s.PublicURL + "/cart?success=1",
		CancelURL:     s.PublicURL + "/cart?canceled=1",
	}
	for _, li := range order.LineItems {
		name := li.ProductTitle
		if li.BrandName != "" {
			name = li.BrandName + " " + name
		}
		if li.Size != "" {
			name += " (" + li.Size + ")"
		}
		p.Lines = append(p.Lines, payment.SessionLine{
			Name:            name,
			UnitAmountCents: li.PriceCents,
			Quantity:        li.Quantity,
		})
	}
	if totals.ShippingCents > 0 {
		p.Lines = append(p.Lines, payment.SessionLine{
			Name:            "Shipping",
			UnitAmountCents: totals.ShippingCents,
			Quantity:        1,
		})
	}
	return p
}

func (s *Service) publishCheckoutCreated(order *orders.Order, totals Totals, traceID string) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventCheckoutCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: order.ID,
		Payload: kafkax.MustMarshal(orders.CheckoutCreatedPayload{
			OrderID:       order.ID,
			Items:         order.LineItems,
			SubtotalCents: totals.SubtotalCents,
			ShippingCents: totals.ShippingCents,
			TotalCents:    totals.TotalCents,
			Currency:      order.Currency,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventCheckoutCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
