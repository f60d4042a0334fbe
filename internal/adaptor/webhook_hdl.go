package adaptor

import (
	"io"
	"net/http"

	"coach-booking/internal/usecase"
	"coach-booking/pkg/utils"

	"go.uber.org/zap"
)

// maxWebhookBody matches the payload cap Stripe documents for event deliveries.
const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// Stripe handles POST /api/webhooks/stripe. The raw body is needed for the signature check.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	handled, err := h.service.HandleEvent(r.Context(), "stripe", payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		respondError(h.log, w, err, "handle webhook")
		return
	}

	utils.ResponseSuccess(w, "received", map[string]bool{"handled": handled})
}
