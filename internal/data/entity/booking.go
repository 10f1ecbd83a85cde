package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending         BookingStatus = "pending"
	BookingStatusPendingPayment  BookingStatus = "pending_payment"
	BookingStatusConfirmed       BookingStatus = "confirmed"
	BookingStatusConflictPayment BookingStatus = "conflict_payment"
	BookingStatusExpired         BookingStatus = "expired"
	BookingStatusCancelled       BookingStatus = "cancelled"
)

// IsPaymentTerminal reports whether the booking has left the payment flow.
func (s BookingStatus) IsPaymentTerminal() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusConflictPayment, BookingStatusExpired, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking is a reserved time slot. Date is stored as YYYY-MM-DD and Time as HH:MM.
type Booking struct {
	BaseNoDelete
	OwnerID       uuid.UUID       `db:"owner_id"`
	UserID        uuid.UUID       `db:"user_id"`
	Date          time.Time       `db:"booking_date"`
	Time          string          `db:"booking_time"`
	Amount        decimal.Decimal `db:"amount"`
	Status        BookingStatus   `db:"status"`
	PaymentStatus *string         `db:"payment_status"`
	PaymentData   json.RawMessage `db:"payment_data"`
}

// SlotKey identifies the time slot a booking occupies for its user.
func (b *Booking) SlotKey() string {
	return fmt.Sprintf("%s:%s:%s", b.UserID, b.Date.Format("2006-01-02"), b.Time)
}
