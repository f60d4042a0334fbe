package wire

import (
	"coach-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireDispute(r chi.Router, disputeHandler *adaptor.DisputeHandler, g guards) {
	r.Group(func(r chi.Router) {
		r.Use(g.auth, g.limit)

		r.Post("/api/disputes", disputeHandler.OpenDispute)
		r.Get("/api/bookings/{id}/disputes", disputeHandler.ListDisputes)
	})

	// ==================== ADMIN ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(g.auth, g.admin)

		r.Put("/api/admin/disputes/{id}/review", disputeHandler.StartReview)
		r.Put("/api/admin/disputes/{id}/resolve", disputeHandler.Resolve)
		r.Put("/api/admin/disputes/{id}/reject", disputeHandler.Reject)
		r.Put("/api/admin/bookings/{id}/restore", disputeHandler.RestoreBooking)
	})
}
