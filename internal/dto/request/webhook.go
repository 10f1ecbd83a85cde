package request

import "booking-payments/internal/gateway"

// WebhookNotification is the push body sent by the gateway. Only the fields
// used for routing are decoded, the raw body is kept separately.
type WebhookNotification struct {
	ID           gateway.ID `json:"id"`
	Type         string     `json:"type"`
	Topic        string     `json:"topic"`
	Action       string     `json:"action"`
	PreferenceID string     `json:"preference_id"`
	Data         struct {
		ID gateway.ID `json:"id"`
	} `json:"data"`
}
