package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"coach-booking/internal/apperr"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/dto/request"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Booking     *BookingHandler
	Reschedule  *RescheduleHandler
	Dispute     *DisputeHandler
	Review      *ReviewHandler
	Payment     *PaymentHandler
	Reliability *ReliabilityHandler
	Webhook     *WebhookHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:     NewBookingHandler(service.Booking, log),
		Reschedule:  NewRescheduleHandler(service.Reschedule, log),
		Dispute:     NewDisputeHandler(service.Dispute, log),
		Review:      NewReviewHandler(service.Review, log),
		Payment:     NewPaymentHandler(service.Escrow, log),
		Reliability: NewReliabilityHandler(service.Reliability, log),
		Webhook:     NewWebhookHandler(service.Webhook, log),
	}
}

// actorFrom reads the caller set by the auth middleware, answering 401 when absent.
func actorFrom(w http.ResponseWriter, r *http.Request) (entity.Actor, bool) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return actor, ok
}

// urlID parses the {param} path segment as a UUID, answering 400 when it is not one.
func urlID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	utils.ResponseBadRequest(w, "Invalid request body", nil)
	return false
}

func pageRequest(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	return &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}

// respondError maps a service error to its HTTP status. Internal errors are
// logged with detail and answered with a generic message.
func respondError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	respondErrorData(log, w, err, operation, nil)
}

func respondErrorData(log *zap.Logger, w http.ResponseWriter, err error, operation string, data any) {
	kind := apperr.KindOf(err)
	msg := apperr.Message(err)
	fields := []zap.Field{zap.Error(err), zap.String("operation", operation), zap.String("kind", string(kind))}

	var code int
	switch kind {
	case apperr.KindNotFound:
		code = http.StatusNotFound
	case apperr.KindValidation:
		code = http.StatusBadRequest
	case apperr.KindUnauthorized:
		code = http.StatusForbidden
	case apperr.KindInvalidState, apperr.KindConflict:
		code = http.StatusConflict
	case apperr.KindProcessor:
		code = http.StatusBadGateway
	case apperr.KindSignature:
		code = http.StatusUnauthorized
	default:
		log.Error(operation+" failed", fields...)
		utils.ResponseInternalError(w, msg)
		return
	}

	if code == http.StatusBadGateway {
		log.Error(operation+" failed at payment processor", fields...)
	} else {
		log.Warn(operation+" rejected", fields...)
	}
	utils.ResponseJSON(w, code, false, msg, data, nil)
}
