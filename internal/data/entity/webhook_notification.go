package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookNotification is the idempotency ledger row for one gateway payment.
type WebhookNotification struct {
	ID           uuid.UUID       `db:"id"`
	PaymentID    string          `db:"payment_id"`
	PreferenceID *string         `db:"preference_id"`
	OwnerID      *uuid.UUID      `db:"owner_id"`
	BookingID    *uuid.UUID      `db:"booking_id"`
	Status       string          `db:"status"`
	Payload      json.RawMessage `db:"payload"`
	ProcessedAt  time.Time       `db:"processed_at"`
}
