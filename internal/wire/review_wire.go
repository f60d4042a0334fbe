package wire

import (
	"coach-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireReview(r chi.Router, reviewHandler *adaptor.ReviewHandler, g guards) {
	// GET /api/coaches/{id}/reviews is public
	r.With(g.limit).Get("/api/coaches/{id}/reviews", reviewHandler.GetCoachReviews)

	r.Group(func(r chi.Router) {
		r.Use(g.auth, g.limit)
		r.Post("/api/reviews", reviewHandler.CreateReview)
	})
}
