package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending_payment"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusConflict  PaymentStatus = "conflict_payment"
)

// IsTerminal reports whether the record can no longer change.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusExpired || s == PaymentStatusConflict
}

// Payment is one checkout attempt for a booking.
type Payment struct {
	BaseNoDelete
	BookingID         uuid.UUID       `db:"booking_id"`
	OwnerID           uuid.UUID       `db:"owner_id"`
	PreferenceID      string          `db:"preference_id"`
	ExternalReference string          `db:"external_reference"`
	Amount            decimal.Decimal `db:"amount"`
	Currency          string          `db:"currency"`
	InitPoint         string          `db:"init_point"`
	Status            PaymentStatus   `db:"status"`
	GatewayPaymentID  *string         `db:"gateway_payment_id"`
	ExpiresAt         time.Time       `db:"expires_at"`
}

// IsExpired reports whether the checkout window closed before now.
func (p *Payment) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
