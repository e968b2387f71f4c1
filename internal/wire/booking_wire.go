package wire

import (
	"hospital-booking/internal/adaptor"
	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, log *zap.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ActorContext(log))

		// Patients
		r.With(middleware.RequireRole(log, entity.RoleUser)).Post("/api/bookings", bookingHandler.CreateBooking)
		r.With(middleware.RequireRole(log, entity.RoleUser)).Get("/api/user/bookings", bookingHandler.GetUserBookings)

		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)
		r.Get("/api/bookings/reference/{reference}", bookingHandler.GetBookingByReference)
		r.With(middleware.RequireRole(log, entity.RoleUser, entity.RoleHospitalAuthority, entity.RoleAdmin)).
			Post("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)

		// Hospital staff
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(log, entity.RoleHospitalAuthority, entity.RoleAdmin))

			r.Post("/api/bookings/{id}/approve", bookingHandler.ApproveBooking)
			r.Post("/api/bookings/{id}/decline", bookingHandler.DeclineBooking)
			r.Post("/api/bookings/{id}/complete", bookingHandler.CompleteBooking)
			r.Get("/api/hospitals/{id}/bookings", bookingHandler.GetHospitalBookings)
		})
	})
}
