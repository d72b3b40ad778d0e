package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scentlab/storefront/internal/catalog"
	"github.com/scentlab/storefront/internal/checkout"
	"github.com/scentlab/storefront/internal/orders"
	"github.com/scentlab/storefront/internal/ratelimit"
	"github.com/scentlab/storefront/internal/redisx"
)

// ShopHandler serves the storefront endpoints: checkout creation, cart
// product resolution, catalog browse and the order status projection.
type ShopHandler struct {
	Checkout    *checkout.Service
	Catalog     catalog.Store
	Orders      orders.Store
	Redis       *redis.Client
	CartLimiter ratelimit.Limiter
}

func (h *ShopHandler) Register(r *chi.Mux) {
	r.Post("/api/checkout", h.createCheckout)
	r.Post("/api/cart", h.cartProducts)
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{id}", h.getProduct)
	r.Get("/api/orders/{id}", h.getOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func clientIP(r *http.Request) string {
	// middleware.RealIP already folded X-Forwarded-For into RemoteAddr.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type checkoutRequest struct {
	orders.ShippingInfo
	CartProducts   []checkout.CartLine `json:"cartProducts"`
	RecaptchaToken string              `json:"recaptchaToken"`
}

func (h *ShopHandler) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	url, err := h.Checkout.CreateCheckout(ctx, checkout.CheckoutRequest{
		Shipping:       req.ShippingInfo,
		Lines:          req.CartProducts,
		RecaptchaToken: req.RecaptchaToken,
		ClientIP:       clientIP(r),
		TraceID:        r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	var fieldErrs checkout.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid input",
			"fields": fieldErrs,
		})
		return
	}

	var stockErr *checkout.StockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "insufficient stock",
			"stock": stockErr,
		})
		return
	}

	var cartErr *checkout.CartError
	if errors.As(err, &cartErr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": cartErr.Reason})
		return
	}

	if errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, catalog.ErrVariantNotFound) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var throttle *checkout.ThrottleError
	if errors.As(err, &throttle) {
		setRateLimitHeaders(w, ratelimit.Result{
			Limit: throttle.Limit, Remaining: throttle.Remaining, Reset: throttle.Reset,
		})
		w.Header().Set("Retry-After", strconv.Itoa(int(throttle.RetryAfter.Seconds())+1))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	if errors.Is(err, checkout.ErrVerificationFailed) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "verification failed"})
		return
	}

	log.Printf("checkout error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create checkout session"})
}

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
}

func (h *ShopHandler) cartProducts(w http.ResponseWriter, r *http.Request) {
	if h.CartLimiter != nil {
		res, err := h.CartLimiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			log.Printf("cart: rate limiter unavailable: %v", err)
		} else {
			setRateLimitHeaders(w, res)
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(res.Reset).Seconds())+1))
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
		}
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<18)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.IDs == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids must be an array"})
		return
	}
	for _, id := range req.IDs {
		if uuid.Validate(id) != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	ps, err := h.Catalog.GetProducts(ctx, req.IDs)
	if err != nil {
		log.Printf("cart products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch cart products"})
		return
	}
	writeJSON(w, http.StatusOK, toProductJSON(ps))
}

func (h *ShopHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		log.Printf("list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch products"})
		return
	}
	writeJSON(w, http.StatusOK, toProductJSON(ps))
}

func (h *ShopHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if uuid.Validate(id) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	p, err := h.Catalog.GetProduct(ctx, id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	if err != nil {
		log.Printf("get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch product"})
		return
	}
	writeJSON(w, http.StatusOK, toProductJSON([]catalog.Product{*p})[0])
}

func (h *ShopHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if uuid.Validate(id) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Orders.Get(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		log.Printf("get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch order"})
		return
	}

	body := map[string]any{"paid": o.Paid}
	b, _ := json.Marshal(body)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

type variantJSON struct {
	ID    string `json:"id"`
	Size  string `json:"size"`
	SKU   string `json:"sku,omitempty"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

type productJSON struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Brand       string        `json:"brand,omitempty"`
	Price       string        `json:"price,omitempty"` // legacy flat price
	Featured    bool          `json:"featured"`
	Variants    []variantJSON `json:"variants"`
}

func toProductJSON(ps []catalog.Product) []productJSON {
	out := make([]productJSON, 0, len(ps))
	for _, p := range ps {
		pj := productJSON{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Brand:       p.BrandName,
			Featured:    p.Featured,
			Variants:    make([]variantJSON, 0, len(p.Variants)),
		}
		if p.PriceCents > 0 {
			pj.Price = p.FlatPrice().StringFixed(2)
		}
		for _, v := range p.Variants {
			pj.Variants = append(pj.Variants, variantJSON{
				ID:    v.ID,
				Size:  v.Size,
				SKU:   v.SKU,
				Price: v.Price().StringFixed(2),
				Stock: v.Stock,
			})
		}
		out = append(out, pj)
	}
	return out
}
