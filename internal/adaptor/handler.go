package adaptor

import (
	"errors"
	"net/http"

	"booking-payments/internal/usecase"
	"booking-payments/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Payment *PaymentHandler
	Booking *BookingHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Payment: NewPaymentHandler(service.Preference, service.Webhook, service.Reconcile, service.Credential, log),
		Booking: NewBookingHandler(service.Booking, log),
	}
}

// handleServiceError maps usecase error kinds onto HTTP responses.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	var fields usecase.FieldErrors

	switch {
	case errors.As(err, &fields):
		log.Warn(operation+" validation failed", zap.Any("errors", map[string]string(fields)))
		utils.ResponseBadRequest(w, "Validation failed", map[string]string(fields))

	case errors.Is(err, usecase.ErrValidation), errors.Is(err, usecase.ErrCredentialsMissing):
		log.Warn("Invalid input for "+operation, zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidState):
		log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrSignature):
		log.Warn(operation+" failed - signature rejected", zap.Error(err))
		utils.ResponseUnauthorized(w, "Invalid webhook signature")

	case errors.Is(err, usecase.ErrGateway):
		log.Error(operation+" failed - payment gateway", zap.Error(err))
		utils.ResponseInternalError(w, "Payment gateway error")

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
