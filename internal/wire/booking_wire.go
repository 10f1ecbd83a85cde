package wire

import (
	"booking-payments/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	// GET /booking/{id}/status - read-only payment projection
	r.Get("/booking/{id}/status", bookingHandler.GetStatus)
}
