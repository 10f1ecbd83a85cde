package adaptor

import (
	"net/http"

	"booking-payments/internal/usecase"
	"booking-payments/pkg/utils"

	"github.com/go-chi/chi/v5"
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

// GetStatus handles GET /booking/{id}/status
func (h *BookingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return
	}

	status, err := h.service.GetStatus(r.Context(), bookingID)
	if err != nil {
		handleServiceError(h.log, w, err, "get booking status")
		return
	}

	utils.ResponseJSON(w, http.StatusOK, status)
}
