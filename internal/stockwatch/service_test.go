package stockwatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/scentlab/storefront/internal/kafka"
	"github.com/scentlab/storefront/internal/orders"
)

type recordedCall struct {
	eventID string
	payload orders.StockDiscrepancyPayload
}

type fakeRecorder struct {
	calls []recordedCall
	err   error
}

func (r *fakeRecorder) RecordDiscrepancy(ctx context.Context, eventID string, occurredAt time.Time, d orders.StockDiscrepancyPayload) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, recordedCall{eventID: eventID, payload: d})
	return nil
}

func discrepancyMessage(t *testing.T, eventID string) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    orders.EventStockDiscrepancy,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "storefront-api",
		Payload: kafkax.MustMarshal(orders.StockDiscrepancyPayload{
			OrderID:      uuid.NewString(),
			ProductID:    uuid.NewString(),
			VariantID:    uuid.NewString(),
			ProductTitle: "Cedar & Vetiver",
			VariantSize:  "5 ml",
			Requested:    2,
			Available:    1,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleEventRecordsDiscrepancy(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Repo: rec}

	err := svc.HandleEvent(context.Background(), discrepancyMessage(t, "evt_1"))
	require.NoError(t, err)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "evt_1", rec.calls[0].eventID)
	assert.Equal(t, 2, rec.calls[0].payload.Requested)
	assert.Equal(t, 1, rec.calls[0].payload.Available)
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Repo: rec}

	env := orders.Envelope{
		EventID:      "evt_2",
		EventType:    orders.EventCheckoutCreated,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Payload:      kafkax.MustMarshal(orders.CheckoutCreatedPayload{OrderID: uuid.NewString()}),
	}

	err := svc.HandleEvent(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)})
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestHandleEventOrderPaidIsAcknowledged(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Repo: rec}

	env := orders.Envelope{
		EventID:      "evt_3",
		EventType:    orders.EventOrderPaid,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Payload: kafkax.MustMarshal(orders.OrderPaidPayload{
			OrderID: uuid.NewString(), StripeEventID: "evt_stripe", TotalCents: 5998, Currency: "CAD",
		}),
	}

	err := svc.HandleEvent(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)})
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestHandleEventMalformedMessage(t *testing.T) {
	svc := &Service{Repo: &fakeRecorder{}}

	err := svc.HandleEvent(context.Background(), kafkago.Message{Value: []byte("not json")})

	// The consumer must not commit the offset for a message it could not decode.
	assert.Error(t, err)
}

func TestHandleEventSurfacesRepoFailure(t *testing.T) {
	rec := &fakeRecorder{err: assert.AnError}
	svc := &Service{Repo: rec}

	err := svc.HandleEvent(context.Background(), discrepancyMessage(t, "evt_4"))

	assert.ErrorIs(t, err, assert.AnError)
}
