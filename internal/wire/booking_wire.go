package wire

import (
	"coach-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, rescheduleHandler *adaptor.RescheduleHandler, g guards) {
	r.Group(func(r chi.Router) {
		r.Use(g.auth, g.limit)

		r.Post("/api/bookings", bookingHandler.CreateBooking)
		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)

		r.Put("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)
		r.Put("/api/bookings/{id}/delivered", bookingHandler.MarkDelivered)
		r.Put("/api/bookings/{id}/verify", bookingHandler.VerifyCompletion)
		r.Put("/api/bookings/{id}/no-show", bookingHandler.ReportNoShow)

		r.Post("/api/bookings/{id}/reschedules", rescheduleHandler.RequestReschedule)
		r.Put("/api/reschedules/{id}/approve", rescheduleHandler.Approve)
		r.Put("/api/reschedules/{id}/reject", rescheduleHandler.Reject)
	})
}
