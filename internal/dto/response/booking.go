package response

import (
	"encoding/json"
	"time"

	"booking-payments/internal/data/entity"
)

type PaymentRecordSummary struct {
	ID           string               `json:"id"`
	PreferenceID string               `json:"preference_id"`
	Status       entity.PaymentStatus `json:"status"`
	Amount       string               `json:"amount"`
	Currency     string               `json:"currency"`
	ExpiresAt    time.Time            `json:"expires_at"`
}

// BookingStatusResponse is the read-only payment projection of a booking.
type BookingStatusResponse struct {
	Success       bool                  `json:"success"`
	ID            string                `json:"id"`
	Status        entity.BookingStatus  `json:"status"`
	PaymentStatus *string               `json:"payment_status,omitempty"`
	PaymentData   json.RawMessage       `json:"payment_data,omitempty"`
	Date          string                `json:"date"`
	Time          string                `json:"time"`
	Payment       *PaymentRecordSummary `json:"payment,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func BookingToStatusResponse(booking *entity.Booking, payment *entity.Payment) *BookingStatusResponse {
	resp := &BookingStatusResponse{
		Success:       true,
		ID:            booking.ID.String(),
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		PaymentData:   booking.PaymentData,
		Date:          booking.Date.Format("2006-01-02"),
		Time:          booking.Time,
		UpdatedAt:     booking.UpdatedAt,
	}

	if payment != nil {
		resp.Payment = &PaymentRecordSummary{
			ID:           payment.ID.String(),
			PreferenceID: payment.PreferenceID,
			Status:       payment.Status,
			Amount:       payment.Amount.StringFixed(2),
			Currency:     payment.Currency,
			ExpiresAt:    payment.ExpiresAt,
		}
	}

	return resp
}
