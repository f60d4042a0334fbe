package adaptor

import (
	"net/http"

	"coach-booking/internal/dto/response"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/utils"

	"go.uber.org/zap"
)

type ReliabilityHandler struct {
	service usecase.ReliabilityService
	log     *zap.Logger
}

func NewReliabilityHandler(service usecase.ReliabilityService, log *zap.Logger) *ReliabilityHandler {
	return &ReliabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "reliability")),
	}
}

// GetReliability handles GET /api/users/{id}/reliability
func (h *ReliabilityHandler) GetReliability(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	rel, err := h.service.GetReliability(r.Context(), userID)
	if err != nil {
		respondError(h.log, w, err, "get reliability")
		return
	}

	utils.ResponseSuccess(w, "success", response.ReliabilityToResponse(rel))
}
