package adaptor

import (
	"context"
	"net/http"

	"coach-booking/internal/data/entity"
	"coach-booking/internal/dto/request"
	"coach-booking/internal/dto/response"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DisputeHandler struct {
	service usecase.DisputeService
	log     *zap.Logger
}

func NewDisputeHandler(service usecase.DisputeService, log *zap.Logger) *DisputeHandler {
	return &DisputeHandler{
		service: service,
		log:     log.With(zap.String("handler", "dispute")),
	}
}

// OpenDispute handles POST /api/disputes
func (h *DisputeHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req request.OpenDisputeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dispute, err := h.service.OpenDispute(r.Context(), actor, &req)
	if err != nil {
		respondError(h.log, w, err, "open dispute")
		return
	}

	utils.ResponseCreated(w, "Dispute opened", response.DisputeToResponse(dispute))
}

// ListDisputes handles GET /api/bookings/{id}/disputes
func (h *DisputeHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	disputes, err := h.service.ListDisputes(r.Context(), actor, bookingID)
	if err != nil {
		respondError(h.log, w, err, "list disputes")
		return
	}

	utils.ResponseSuccess(w, "success", response.Map(disputes, response.DisputeToResponse))
}

// ==================== ADMIN METHODS ====================

// StartReview handles PUT /api/admin/disputes/{id}/review
func (h *DisputeHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "start dispute review", false, func(ctx context.Context, actor entity.Actor, id uuid.UUID, _ *request.ResolveDisputeRequest) (*entity.Dispute, error) {
		return h.service.StartReview(ctx, actor, id)
	})
}

// Resolve handles PUT /api/admin/disputes/{id}/resolve
func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "resolve dispute", true, h.service.Resolve)
}

// Reject handles PUT /api/admin/disputes/{id}/reject
func (h *DisputeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject dispute", true, h.service.Reject)
}

type disputeDecision func(ctx context.Context, actor entity.Actor, id uuid.UUID, req *request.ResolveDisputeRequest) (*entity.Dispute, error)

func (h *DisputeHandler) decide(w http.ResponseWriter, r *http.Request, operation string, withBody bool, fn disputeDecision) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	disputeID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req request.ResolveDisputeRequest
	if withBody && !decodeBody(w, r, &req) {
		return
	}

	dispute, err := fn(r.Context(), actor, disputeID, &req)
	if err != nil {
		respondError(h.log, w, err, operation)
		return
	}

	utils.ResponseSuccess(w, "success", response.DisputeToResponse(dispute))
}

// RestoreBooking handles PUT /api/admin/bookings/{id}/restore
func (h *DisputeHandler) RestoreBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req request.RestoreBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.service.RestoreBooking(r.Context(), actor, bookingID, &req)
	if err != nil {
		respondError(h.log, w, err, "restore booking")
		return
	}

	utils.ResponseSuccess(w, "Booking restored", response.BookingToResponse(booking))
}
