package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the provider's webhook signature header.
const SignatureHeader = "Stripe-Signature"

var (
	ErrBadSignature       = errors.New("webhook signature verification failed")
	ErrStaleWebhook       = errors.New("webhook timestamp outside tolerance")
	ErrMalformedSigHeader = errors.New("malformed signature header")
)

// Sign produces a "t=<unix>,v1=<hex>" signature over the payload, the same
// scheme VerifySignature checks. Used by tests and local tooling.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature checks the header's HMAC-SHA256 over "<t>.<payload>" using
// the shared secret, and rejects payloads whose signed timestamp falls outside
// the tolerance window. The payload must be the untouched raw request bytes:
// the signature is computed over raw bytes, never a reserialized structure.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMalformedSigHeader
	}
	var ts int64 = -1
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrMalformedSigHeader
			}
			ts = n
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if ts < 0 || len(candidates) == 0 {
		return ErrMalformedSigHeader
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, c := range candidates {
		if hmac.Equal([]byte(expected), []byte(c)) {
			valid = true
		}
	}
	if !valid {
		return ErrBadSignature
	}

	// Replay mitigation: a captured signed payload goes stale after the window.
	signedAt := time.Unix(ts, 0)
	if now.Sub(signedAt) > tolerance || signedAt.Sub(now) > tolerance {
		return ErrStaleWebhook
	}
	return nil
}
