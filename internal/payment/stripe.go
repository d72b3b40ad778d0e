package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// StripeClient talks to the provider's hosted-checkout REST API. Outbound
// calls are bounded by the HTTP client timeout and guarded by a circuit
// breaker; an open breaker fails the checkout step, it never fakes success.
type StripeClient struct {
	apiURL string
	secret string
	http   *http.Client
	cb     *gobreaker.CircuitBreaker[*Session]
}

var _ Gateway = (*StripeClient)(nil)

func NewStripeClient(apiURL, secretKey string) *StripeClient {
	return &StripeClient{
		apiURL: strings.TrimRight(apiURL, "/"),
		secret: secretKey,
		http:   &http.Client{Timeout: 10 * time.Second},
		cb: gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
			Name:    "stripe-checkout",
			Timeout: 30 * time.Second,
		}),
	}
}

func (c *StripeClient) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer_email", p.CustomerEmail)
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("metadata[orderId]", p.OrderID)
	for i, li := range p.Lines {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Quantity))
		form.Set(prefix+"[price_data][currency]", strings.ToLower(p.Currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.Itoa(li.UnitAmountCents))
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
	}

	return c.cb.Execute(func() (*Session, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.apiURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(c.secret, "")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			_ = json.Unmarshal(body, &apiErr)
			if apiErr.Error.Message != "" {
				return nil, fmt.Errorf("stripe: %s (status %d)", apiErr.Error.Message, resp.StatusCode)
			}
			return nil, fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
		}

		var s Session
		if err := json.Unmarshal(body, &struct {
			ID  *string `json:"id"`
			URL *string `json:"url"`
		}{&s.ID, &s.URL}); err != nil {
			return nil, fmt.Errorf("stripe: decode session: %w", err)
		}
		if s.URL == "" {
			return nil, fmt.Errorf("stripe: session response missing redirect url")
		}
		return &s, nil
	})
}
