package wire

import (
	"coach-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireWebhook mounts processor callbacks; they authenticate by signature, not token.
func wireWebhook(r chi.Router, webhookHandler *adaptor.WebhookHandler) {
	r.Post("/api/webhooks/stripe", webhookHandler.Stripe)
}
