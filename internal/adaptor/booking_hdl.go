package adaptor

import (
	"net/http"

	"coach-booking/internal/dto/request"
	"coach-booking/internal/dto/response"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/utils"

	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

func bookingCreated(result *usecase.BookingResult) *response.BookingCreatedResponse {
	resp := &response.BookingCreatedResponse{Booking: response.BookingToResponse(result.Booking)}
	if result.Payment != nil {
		resp.Payment = response.PaymentToResponse(result.Payment.Payment)
		resp.ClientSecret = result.Payment.ClientSecret
	}
	return resp
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req request.CreateBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.CreateBooking(r.Context(), actor, &req)
	if err != nil {
		// The booking stays pending when only the payment intent failed.
		var data any
		if result != nil && result.Booking != nil {
			data = bookingCreated(result)
		}
		respondErrorData(h.log, w, err, "create booking", data)
		return
	}

	utils.ResponseCreated(w, "success", bookingCreated(result))
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetBooking(r.Context(), actor, bookingID)
	if err != nil {
		respondError(h.log, w, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingDetailResponse{
		BookingResponse: response.BookingToResponse(detail.Booking),
		Payment:         response.PaymentToResponse(detail.Payment),
		Reschedules:     response.Map(detail.Reschedules, response.RescheduleToResponse),
		Cancellation:    response.CancellationToResponse(detail.Cancellation),
		Disputes:        response.Map(detail.Disputes, response.DisputeToResponse),
	})
}

// GetUserBookings handles GET /api/user/bookings
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	req := pageRequest(r)

	bookings, total, err := h.service.ListBookings(r.Context(), actor, req)
	if err != nil {
		respondError(h.log, w, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", response.NewPaginatedResponse(
		response.Map(bookings, response.BookingToResponse), req.Page, req.Limit(), total))
}

// CancelBooking handles PUT /api/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req request.CancelBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cancellation, err := h.service.CancelBooking(r.Context(), actor, bookingID, &req)
	if err != nil {
		respondError(h.log, w, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "Booking cancelled", response.CancellationToResponse(cancellation))
}

// MarkDelivered handles PUT /api/bookings/{id}/delivered
func (h *BookingHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.MarkDelivered(r.Context(), actor, bookingID)
	if err != nil {
		respondError(h.log, w, err, "mark delivered")
		return
	}

	utils.ResponseSuccess(w, "Lesson marked as delivered", response.BookingToResponse(booking))
}

// VerifyCompletion handles PUT /api/bookings/{id}/verify
func (h *BookingHandler) VerifyCompletion(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.VerifyCompletion(r.Context(), actor, bookingID)
	if err != nil {
		respondError(h.log, w, err, "verify completion")
		return
	}

	utils.ResponseSuccess(w, "Lesson completed", response.BookingToResponse(booking))
}

// ReportNoShow handles PUT /api/bookings/{id}/no-show
func (h *BookingHandler) ReportNoShow(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	bookingID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req request.NoShowRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cancellation, err := h.service.ReportNoShow(r.Context(), actor, bookingID, &req)
	if err != nil {
		respondError(h.log, w, err, "report no-show")
		return
	}

	utils.ResponseSuccess(w, "No-show recorded", response.CancellationToResponse(cancellation))
}
