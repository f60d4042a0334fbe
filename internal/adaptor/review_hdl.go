package adaptor

import (
	"net/http"

	"coach-booking/internal/dto/request"
	"coach-booking/internal/dto/response"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/utils"

	"go.uber.org/zap"
)

type ReviewHandler struct {
	service usecase.ReviewService
	log     *zap.Logger
}

func NewReviewHandler(service usecase.ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		log:     log.With(zap.String("handler", "review")),
	}
}

// CreateReview handles POST /api/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req request.CreateReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	review, err := h.service.CreateReview(r.Context(), actor, &req)
	if err != nil {
		respondError(h.log, w, err, "create review")
		return
	}

	utils.ResponseCreated(w, "Review created", response.ReviewToResponse(review))
}

// GetCoachReviews handles GET /api/coaches/{id}/reviews (public)
func (h *ReviewHandler) GetCoachReviews(w http.ResponseWriter, r *http.Request) {
	coachID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	req := pageRequest(r)

	reviews, total, err := h.service.GetCoachReviews(r.Context(), coachID, req)
	if err != nil {
		respondError(h.log, w, err, "get coach reviews")
		return
	}

	utils.ResponseSuccess(w, "success", response.NewPaginatedResponse(
		response.Map(reviews, response.ReviewToResponse), req.Page, req.Limit(), total))
}
