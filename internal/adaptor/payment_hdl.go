package adaptor

import (
	"net/http"

	"coach-booking/internal/dto/request"
	"coach-booking/internal/dto/response"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentHandler exposes the admin escrow operations.
type PaymentHandler struct {
	service usecase.EscrowService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.EscrowService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// GetPayment handles GET /api/admin/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		respondError(h.log, w, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentToResponse(payment))
}

// Capture handles POST /api/admin/payments/{id}/capture
func (h *PaymentHandler) Capture(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	payment, err := h.service.CapturePayment(r.Context(), paymentID)
	if err != nil {
		respondError(h.log, w, err, "capture payment")
		return
	}

	utils.ResponseSuccess(w, "Payment captured", response.PaymentToResponse(payment))
}

// Refund handles POST /api/admin/payments/{id}/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req request.RefundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.ProcessRefund(r.Context(), paymentID, req.Amount, req.Reason)
	if err != nil {
		respondError(h.log, w, err, "refund payment")
		return
	}

	utils.ResponseSuccess(w, "Payment refunded", response.PaymentToResponse(payment))
}

// Release handles POST /api/admin/payments/{id}/release
func (h *PaymentHandler) Release(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req request.ReleaseEscrowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payout, err := h.service.ReleaseEscrow(r.Context(), paymentID, req.PayoutAccountID)
	if err != nil {
		respondError(h.log, w, err, "release escrow")
		return
	}

	utils.ResponseSuccess(w, "success", response.PayoutToResponse(payout))
}

// PreviewSplit handles GET /api/payments/split?price=
func (h *PaymentHandler) PreviewSplit(w http.ResponseWriter, r *http.Request) {
	price, err := decimal.NewFromString(r.URL.Query().Get("price"))
	if err != nil || !price.IsPositive() {
		utils.ResponseBadRequest(w, "price must be a positive amount", nil)
		return
	}

	utils.ResponseSuccess(w, "success", response.SplitToResponse(h.service.ComputeSplit(price)))
}
