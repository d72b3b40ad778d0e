package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Result is the outcome of a token verification. Success already folds in the
// score threshold.
type Result struct {
	Success bool
	Score   float64
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Result, error)
}

// Client verifies reCAPTCHA v3 tokens against the siteverify API. Scores range
// 0.0 (bot) to 1.0 (human); anything below Threshold fails.
type Client struct {
	secret    string
	threshold float64
	verifyURL string
	http      *http.Client
	cb        *gobreaker.CircuitBreaker[Result]
}

var _ Verifier = (*Client)(nil)

func NewClient(secret string, threshold float64) *Client {
	return &Client{
		secret:    secret,
		threshold: threshold,
		verifyURL: defaultVerifyURL,
		http:      &http.Client{Timeout: 5 * time.Second},
		cb: gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
			Name:    "recaptcha",
			Timeout: 30 * time.Second,
		}),
	}
}

func (c *Client) Verify(ctx context.Context, token string) (Result, error) {
	if token == "" {
		return Result{}, nil
	}
	return c.cb.Execute(func() (Result, error) {
		form := url.Values{}
		form.Set("secret", c.secret)
		form.Set("response", token)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL,
			strings.NewReader(form.Encode()))
		if err != nil {
			return Result{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return Result{}, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return Result{}, err
		}

		var out struct {
			Success    bool     `json:"success"`
			Score      float64  `json:"score"`
			ErrorCodes []string `json:"error-codes"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return Result{}, fmt.Errorf("recaptcha: decode response: %w", err)
		}
		if !out.Success {
			return Result{Success: false}, nil
		}
		return Result{Success: out.Score >= c.threshold, Score: out.Score}, nil
	})
}
