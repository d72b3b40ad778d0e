package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sigSecret = "whsec_test"

func TestVerifySignatureRoundTrip(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()

	header := Sign(body, sigSecret, now)

	require.NoError(t, VerifySignature(body, header, sigSecret, 5*time.Minute, now))
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	body := []byte(`{"amount":100}`)
	now := time.Now()
	header := Sign(body, sigSecret, now)

	err := VerifySignature([]byte(`{"amount":999}`), header, sigSecret, 5*time.Minute, now)

	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()
	header := Sign(body, "whsec_other", now)

	err := VerifySignature(body, header, sigSecret, 5*time.Minute, now)

	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()

	// Valid signature, but signed outside the tolerance window in either
	// direction.
	old := Sign(body, sigSecret, now.Add(-6*time.Minute))
	assert.ErrorIs(t, VerifySignature(body, old, sigSecret, 5*time.Minute, now), ErrStaleWebhook)

	future := Sign(body, sigSecret, now.Add(6*time.Minute))
	assert.ErrorIs(t, VerifySignature(body, future, sigSecret, 5*time.Minute, now), ErrStaleWebhook)
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	body := []byte(`{}`)

	for _, header := range []string{
		"",
		"v1=deadbeef",
		"t=notanumber,v1=deadbeef",
		"t=1700000000",
	} {
		err := VerifySignature(body, header, sigSecret, 5*time.Minute, time.Now())
		assert.ErrorIs(t, err, ErrMalformedSigHeader, "header %q", header)
	}
}

func TestVerifySignatureAcceptsExtraCandidates(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()

	// Secret rotation sends multiple v1 entries; one valid candidate passes.
	header := Sign(body, sigSecret, now) + ",v1=deadbeef"

	require.NoError(t, VerifySignature(body, header, sigSecret, 5*time.Minute, now))
}
