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

type RescheduleHandler struct {
	service usecase.RescheduleService
	log     *zap.Logger
}

func NewRescheduleHandler(service usecase.RescheduleService, log *zap.Logger) *RescheduleHandler {
	return &RescheduleHandler{
		service: service,
		log:     log.With(zap.String("handler", "reschedule")),
	}
}

// RequestReschedule handles POST /api/bookings/{id}/reschedules
func (h *RescheduleHandler) RequestReschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req request.RescheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	history, err := h.service.RequestReschedule(r.Context(), actor, bookingID, &req)
	if err != nil {
		respondError(h.log, w, err, "request reschedule")
		return
	}

	utils.ResponseCreated(w, "Booking rescheduled", response.RescheduleToResponse(history))
}

// Approve handles PUT /api/reschedules/{id}/approve
func (h *RescheduleHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve reschedule", h.service.Approve)
}

// Reject handles PUT /api/reschedules/{id}/reject
func (h *RescheduleHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject reschedule", h.service.Reject)
}

func (h *RescheduleHandler) decide(w http.ResponseWriter, r *http.Request, operation string, fn func(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.RescheduleHistory, error)) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	rescheduleID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	history, err := fn(r.Context(), actor, rescheduleID)
	if err != nil {
		respondError(h.log, w, err, operation)
		return
	}

	utils.ResponseSuccess(w, "success", response.RescheduleToResponse(history))
}
