package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking-payments/internal/data/entity"
	"booking-payments/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)

	// Business queries
	FindConfirmedBySlot(ctx context.Context, userID uuid.UUID, date time.Time, slotTime string, excludeID uuid.UUID) (*entity.Booking, error)
	LockSlot(ctx context.Context, slotKey string) error
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error
	UpdateStatusIf(ctx context.Context, bookingID uuid.UUID, from, to entity.BookingStatus) (bool, error)
	UpdatePaymentOutcome(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus, paymentStatus string, paymentData json.RawMessage) error
	// UpdatePaymentStatus mirrors a gateway status onto a booking that is
	// still in the payment flow. It reports false for settled bookings.
	UpdatePaymentStatus(ctx context.Context, bookingID uuid.UUID, paymentStatus string) (bool, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, owner_id, user_id, booking_date, booking_time, amount, status, payment_status, payment_data, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	var paymentData []byte
	err := row.Scan(
		&booking.ID,
		&booking.OwnerID,
		&booking.UserID,
		&booking.Date,
		&booking.Time,
		&booking.Amount,
		&booking.Status,
		&booking.PaymentStatus,
		&paymentData,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	booking.PaymentData = paymentData
	return &booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *bookingRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Booking, error) {
	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindConfirmedBySlot(ctx context.Context, userID uuid.UUID, date time.Time, slotTime string, excludeID uuid.UUID) (*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND booking_date = $2 AND booking_time = $3
		  AND status = 'confirmed' AND id <> $4
		LIMIT 1
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, userID, date, slotTime, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find confirmed booking by slot",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("date", date.Format("2006-01-02")),
			zap.String("time", slotTime),
		)
		return nil, fmt.Errorf("find confirmed booking for slot: %w", err)
	}

	return booking, nil
}

// LockSlot takes a transaction scoped advisory lock so two different bookings
// for the same slot cannot pass the conflict check at the same time.
func (r *bookingRepository) LockSlot(ctx context.Context, slotKey string) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slotKey); err != nil {
		r.log.Error("Failed to lock slot", zap.Error(err), zap.String("slot", slotKey))
		return fmt.Errorf("lock slot %s: %w", slotKey, err)
	}
	return nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, bookingID, status)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update booking %s status to %s: %w", bookingID.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}

	return nil
}

func (r *bookingRepository) UpdateStatusIf(ctx context.Context, bookingID uuid.UUID, from, to entity.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, bookingID, from, to)
	if err != nil {
		r.log.Error("Failed to transition booking status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("transition booking %s to %s: %w", bookingID.String(), string(to), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) UpdatePaymentOutcome(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus, paymentStatus string, paymentData json.RawMessage) error {
	query := `
		UPDATE bookings
		SET status = $2, payment_status = $3, payment_data = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, bookingID, status, paymentStatus, []byte(paymentData))
	if err != nil {
		r.log.Error("Failed to update booking payment outcome",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update booking %s payment outcome: %w", bookingID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}

	return nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, bookingID uuid.UUID, paymentStatus string) (bool, error) {
	query := `
		UPDATE bookings SET payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('confirmed', 'conflict_payment', 'expired', 'cancelled')
	`

	result, err := r.db.Exec(ctx, query, bookingID, paymentStatus)
	if err != nil {
		r.log.Error("Failed to update booking payment status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("payment_status", paymentStatus),
		)
		return false, fmt.Errorf("update booking %s payment status: %w", bookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
