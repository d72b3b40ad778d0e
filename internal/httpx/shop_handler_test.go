package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/storefront/internal/catalog"
	"github.com/scentlab/storefront/internal/checkout"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/payment"
	"github.com/scentlab/storefront/internal/ratelimit"
)

type stubGateway struct{}

func (stubGateway) CreateSession(ctx context.Context, p payment.SessionParams) (*payment.Session, error) {
	return &payment.Session{ID: "cs_stub", URL: "https://pay.example.com/cs_stub"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *catalog.MemoryStore, *orders.MemoryStore, catalog.Product) {
	t.Helper()

	cstore := catalog.NewMemoryStore()
	p := catalog.Product{ID: uuid.NewString(), Title: "Cedar & Vetiver", BrandName: "Maison Verte"}
	p.Variants = []catalog.Variant{
		{ID: uuid.NewString(), ProductID: p.ID, Size: "5 ml", SKU: "CV-5", PriceCents: 2999, Stock: 10},
	}
	cstore.Put(p)

	ostore := orders.NewMemoryStore()

	svc := &checkout.Service{
		Catalog:   cstore,
		Orders:    ostore,
		Gateway:   stubGateway{},
		Pricing:   checkout.PricingConfig{FreeShippingCents: 5000, FlatShippingCents: 1000},
		Currency:  "CAD",
		PublicURL: "https://shop.example.com",
	}

	r := NewRouter()
	sh := &ShopHandler{Checkout: svc, Catalog: cstore, Orders: ostore}
	sh.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, cstore, ostore, p
}

func checkoutBody(p catalog.Product) string {
	return fmt.Sprintf(`{
		"name":"Jordan Tremblay",
		"email":"jordan@example.com",
		"streetAddress":"12 Rue Principale",
		"city":"Gatineau",
		"province":"QC",
		"postalCode":"J8X 2A1",
		"country":"Canada",
		"cartProducts":[{"productId":%q,"variantId":%q}]
	}`, p.ID, p.Variants[0].ID)
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	srv, _, _, p := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/checkout", "application/json", strings.NewReader(checkoutBody(p)))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "https://pay.example.com/cs_stub", out["url"])
}

func TestCreateCheckoutEndpointFieldErrors(t *testing.T) {
	srv, _, _, p := newTestServer(t)
	body := strings.Replace(checkoutBody(p), "jordan@example.com", "not-an-email", 1)

	resp, err := http.Post(srv.URL+"/api/checkout", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "invalid input", out.Error)
	assert.Contains(t, out.Fields, "email")
}

func TestCreateCheckoutEndpointInsufficientStock(t *testing.T) {
	srv, _, _, p := newTestServer(t)
	line := fmt.Sprintf(`{"productId":%q,"variantId":%q}`, p.ID, p.Variants[0].ID)
	lines := strings.Repeat(line+",", 11)
	body := strings.Replace(checkoutBody(p),
		fmt.Sprintf(`[{"productId":%q,"variantId":%q}]`, p.ID, p.Variants[0].ID),
		"["+strings.TrimSuffix(lines, ",")+"]", 1)

	resp, err := http.Post(srv.URL+"/api/checkout", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out struct {
		Error string               `json:"error"`
		Stock *checkout.StockError `json:"stock"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "insufficient stock", out.Error)
	require.NotNil(t, out.Stock)
	assert.Equal(t, 10, out.Stock.AvailableStock)
	assert.Equal(t, 11, out.Stock.RequestedQuantity)
}

func TestCartProductsEndpoint(t *testing.T) {
	srv, _, _, p := newTestServer(t)

	body, _ := json.Marshal(map[string][]string{"ids": {p.ID}})
	resp, err := http.Post(srv.URL+"/api/cart", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Variants []struct {
			Price string `json:"price"`
			Stock int    `json:"stock"`
		} `json:"variants"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, p.ID, out[0].ID)
	require.Len(t, out[0].Variants, 1)
	assert.Equal(t, "29.99", out[0].Variants[0].Price)
	assert.Equal(t, 10, out[0].Variants[0].Stock)
}

func TestCartProductsEndpointRejectsBadInput(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/cart", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/cart", "application/json", strings.NewReader(`{"ids":["nope"]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCartProductsEndpointThrottled(t *testing.T) {
	cstore := catalog.NewMemoryStore()
	r := NewRouter()
	sh := &ShopHandler{Catalog: cstore, CartLimiter: ratelimit.NewMemoryLimiter(1, time.Hour)}
	sh.Register(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/cart", "application/json", strings.NewReader(`{"ids":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/cart", "application/json", strings.NewReader(`{"ids":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestProductEndpoints(t *testing.T) {
	srv, _, _, p := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp, err = http.Get(srv.URL + "/api/products/" + p.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/products/" + uuid.NewString())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/products/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrderEndpoint(t *testing.T) {
	srv, _, ostore, _ := newTestServer(t)

	o := &orders.Order{ID: uuid.NewString(), TotalCents: 2499, Currency: "CAD"}
	require.NoError(t, ostore.Create(context.Background(), o))

	resp, err := http.Get(srv.URL + "/api/orders/" + o.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out["paid"])

	resp, err = http.Get(srv.URL + "/api/orders/" + uuid.NewString())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
