package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/storefront/internal/catalog"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/payment"
	"github.com/scentlab/storefront/internal/ratelimit"
	"github.com/scentlab/storefront/internal/recaptcha"
)

type fakeGateway struct {
	params payment.SessionParams
	err    error
	calls  int
}

func (g *fakeGateway) CreateSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error) {
	g.calls++
	g.params = p
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Session{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}, nil
}

type fakeVerifier struct {
	result recaptcha.Result
	err    error
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (recaptcha.Result, error) {
	return v.result, v.err
}

func newService(t *testing.T) (*Service, *fakeGateway, *catalog.MemoryStore, *orders.MemoryStore, catalog.Product) {
	t.Helper()
	store, cedar, _ := testCatalog(t)
	orderStore := orders.NewMemoryStore()
	gw := &fakeGateway{}
	svc := &Service{
		Catalog:   store,
		Orders:    orderStore,
		Gateway:   gw,
		Pricing:   pricing,
		Currency:  "CAD",
		PublicURL: "https://shop.example.com",
	}
	return svc, gw, store, orderStore, cedar
}

func checkoutReq(cedar catalog.Product) CheckoutRequest {
	return CheckoutRequest{
		Shipping: validShipping(),
		Lines:    []CartLine{{ProductID: cedar.ID, VariantID: cedar.Variants[0].ID}},
		ClientIP: "203.0.113.7",
	}
}

func TestCreateCheckoutHappyPath(t *testing.T) {
	svc, gw, store, orderStore, cedar := newService(t)

	url, err := svc.CreateCheckout(context.Background(), checkoutReq(cedar))
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/cs_test_1", url)

	// Pending order persisted with server-resolved totals.
	require.NotEmpty(t, gw.params.OrderID)
	order, err := orderStore.Get(context.Background(), gw.params.OrderID)
	require.NoError(t, err)
	assert.False(t, order.Paid)
	assert.Equal(t, 1499, order.SubtotalCents)
	assert.Equal(t, 1000, order.ShippingCents)
	assert.Equal(t, 2499, order.TotalCents)
	assert.Equal(t, "CAD", order.Currency)
	assert.Equal(t, "jordan.tremblay@example.com", order.Email)

	// Session lines include the named product plus the shipping line.
	require.Len(t, gw.params.Lines, 2)
	assert.Equal(t, "Maison Verte Cedar & Vetiver (2 ml)", gw.params.Lines[0].Name)
	assert.Equal(t, "Shipping", gw.params.Lines[1].Name)
	assert.Equal(t, 1000, gw.params.Lines[1].UnitAmountCents)
	assert.Equal(t, "https://shop.example.com/cart?success=1", gw.params.SuccessURL)

	// Checkout never touches stock; only the webhook decrements.
	p, err := store.GetProduct(context.Background(), cedar.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, p.Variants[0].Stock)
}

func TestCreateCheckoutNoOrderOnInvalidCart(t *testing.T) {
	svc, gw, _, _, cedar := newService(t)
	req := checkoutReq(cedar)
	req.Lines = nil

	_, err := svc.CreateCheckout(context.Background(), req)

	var ce *CartError
	require.ErrorAs(t, err, &ce)
	assert.Zero(t, gw.calls)
}

func TestCreateCheckoutNoOrderOnInsufficientStock(t *testing.T) {
	svc, gw, _, _, cedar := newService(t)
	req := checkoutReq(cedar)
	req.Lines = make([]CartLine, 30)
	for i := range req.Lines {
		req.Lines[i] = CartLine{ProductID: cedar.ID, VariantID: cedar.Variants[0].ID}
	}

	_, err := svc.CreateCheckout(context.Background(), req)

	var se *StockError
	require.ErrorAs(t, err, &se)
	assert.Zero(t, gw.calls)
}

func TestCreateCheckoutFieldErrorsBeforeCart(t *testing.T) {
	svc, gw, _, _, cedar := newService(t)
	req := checkoutReq(cedar)
	req.Shipping.Email = "nope"

	_, err := svc.CreateCheckout(context.Background(), req)

	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "email")
	assert.Zero(t, gw.calls)
}

func TestCreateCheckoutGatewayFailureLeavesPendingOrder(t *testing.T) {
	svc, gw, _, orderStore, cedar := newService(t)
	gw.err = errors.New("stripe unavailable")

	_, err := svc.CreateCheckout(context.Background(), checkoutReq(cedar))

	var ge *GatewayError
	require.ErrorAs(t, err, &ge)

	// The pending order stays; it simply never gets paid.
	order, err := orderStore.Get(context.Background(), gw.params.OrderID)
	require.NoError(t, err)
	assert.False(t, order.Paid)
}

func TestCreateCheckoutThrottled(t *testing.T) {
	svc, gw, _, _, cedar := newService(t)
	svc.Limiter = ratelimit.NewMemoryLimiter(2, time.Hour)
	req := checkoutReq(cedar)

	for i := 0; i < 2; i++ {
		_, err := svc.CreateCheckout(context.Background(), req)
		require.NoError(t, err)
	}
	_, err := svc.CreateCheckout(context.Background(), req)

	var te *ThrottleError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2, te.Limit)
	assert.Equal(t, 0, te.Remaining)
	assert.Equal(t, 2, gw.calls)
}

func TestCreateCheckoutCaptchaFailsClosed(t *testing.T) {
	svc, gw, _, _, cedar := newService(t)

	svc.Captcha = &fakeVerifier{result: recaptcha.Result{Success: false, Score: 0.1}}
	_, err := svc.CreateCheckout(context.Background(), checkoutReq(cedar))
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// Verifier outage also fails closed.
	svc.Captcha = &fakeVerifier{err: errors.New("siteverify timeout")}
	_, err = svc.CreateCheckout(context.Background(), checkoutReq(cedar))
	assert.ErrorIs(t, err, ErrVerificationFailed)

	assert.Zero(t, gw.calls)
}
