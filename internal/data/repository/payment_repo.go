package repository

import (
	"context"
	"errors"
	"fmt"

	"booking-payments/internal/data/entity"
	"booking-payments/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	FindByPreferenceID(ctx context.Context, preferenceID string) (*entity.Payment, error)

	// Business queries
	FindPending(ctx context.Context) ([]*entity.Payment, error)
	// TransitionStatus moves a pending_payment record to a terminal status.
	// It reports false when the record was no longer pending.
	TransitionStatus(ctx context.Context, paymentID uuid.UUID, status entity.PaymentStatus, gatewayPaymentID *string) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, owner_id, preference_id, external_reference, amount, currency, init_point, status, gateway_payment_id, expires_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.OwnerID,
		&payment.PreferenceID,
		&payment.ExternalReference,
		&payment.Amount,
		&payment.Currency,
		&payment.InitPoint,
		&payment.Status,
		&payment.GatewayPaymentID,
		&payment.ExpiresAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.OwnerID,
		payment.PreferenceID,
		payment.ExternalReference,
		payment.Amount,
		payment.Currency,
		payment.InitPoint,
		payment.Status,
		payment.GatewayPaymentID,
		payment.ExpiresAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
			zap.String("preference_id", payment.PreferenceID),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payment by booking ID %s: %w", bookingID.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByPreferenceID(ctx context.Context, preferenceID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE preference_id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, preferenceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by preference ID",
			zap.Error(err),
			zap.String("preference_id", preferenceID),
		)
		return nil, fmt.Errorf("find payment by preference ID %s: %w", preferenceID, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindPending(ctx context.Context) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending_payment'
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to find pending payments", zap.Error(err))
		return nil, fmt.Errorf("find pending payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending payments: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) TransitionStatus(ctx context.Context, paymentID uuid.UUID, status entity.PaymentStatus, gatewayPaymentID *string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, gateway_payment_id = COALESCE($3, gateway_payment_id), updated_at = NOW()
		WHERE id = $1 AND status = 'pending_payment'
	`

	result, err := r.db.Exec(ctx, query, paymentID, status, gatewayPaymentID)
	if err != nil {
		r.log.Error("Failed to transition payment status",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("transition payment %s to %s: %w", paymentID.String(), string(status), err)
	}

	return result.RowsAffected() == 1, nil
}
