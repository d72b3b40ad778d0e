package httpx

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scentlab/storefront/internal/payment"
	"github.com/scentlab/storefront/internal/webhook"
)

type WebhookHandler struct {
	Reconciler *webhook.Reconciler
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/api/webhook", h.handleWebhook)
}

func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// The signature is computed over the raw bytes; read them untouched.
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	out := h.Reconciler.HandleEvent(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	w.WriteHeader(out.Status)
	_, _ = w.Write([]byte(out.Message))
}
