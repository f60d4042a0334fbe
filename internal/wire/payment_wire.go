package wire

import (
	"coach-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, reliabilityHandler *adaptor.ReliabilityHandler, g guards) {
	r.Group(func(r chi.Router) {
		r.Use(g.auth, g.limit)

		r.Get("/api/payments/split", paymentHandler.PreviewSplit)
		r.Get("/api/users/{id}/reliability", reliabilityHandler.GetReliability)
	})

	// ==================== ADMIN ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(g.auth, g.admin)

		r.Get("/api/admin/payments/{id}", paymentHandler.GetPayment)
		r.Post("/api/admin/payments/{id}/capture", paymentHandler.Capture)
		r.Post("/api/admin/payments/{id}/refund", paymentHandler.Refund)
		r.Post("/api/admin/payments/{id}/release", paymentHandler.Release)
	})
}
