package response

import (
	"time"

	"booking-payments/internal/data/entity"
)

type PreferenceResponse struct {
	Success      bool   `json:"success"`
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

type WebhookStatus string

const (
	WebhookAlreadyProcessed WebhookStatus = "already_processed"
	WebhookConfirmed        WebhookStatus = "confirmed"
	WebhookConflict         WebhookStatus = "conflict"
	WebhookExpired          WebhookStatus = "expired"
	WebhookNotFound         WebhookStatus = "booking_not_found"
	WebhookUpdated          WebhookStatus = "payment_status_updated"
	WebhookIgnored          WebhookStatus = "ignored"
	WebhookAlreadySettled   WebhookStatus = "booking_already_settled"
)

type WebhookResponse struct {
	Success       bool          `json:"success"`
	Status        WebhookStatus `json:"status"`
	Message       string        `json:"message,omitempty"`
	PaymentID     string        `json:"payment_id,omitempty"`
	BookingID     string        `json:"booking_id,omitempty"`
	GatewayStatus string        `json:"gateway_status,omitempty"`
}

type ReconcileResponse struct {
	Reconciled int `json:"reconciled"`
	Expired    int `json:"expired"`
	Total      int `json:"total"`
}

type VerifyResponse struct {
	Success       bool                 `json:"success"`
	PreferenceID  string               `json:"preference_id"`
	BookingID     string               `json:"booking_id"`
	Status        entity.PaymentStatus `json:"status"`
	BookingStatus entity.BookingStatus `json:"booking_status,omitempty"`
	PaymentStatus *string              `json:"payment_status,omitempty"`
	ExpiresAt     time.Time            `json:"expires_at"`
}

type CredentialsStatusResponse struct {
	OwnerID    string `json:"owner_id"`
	Configured bool   `json:"configured"`
}
