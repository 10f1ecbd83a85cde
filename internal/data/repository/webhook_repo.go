package repository

import (
	"context"
	"errors"
	"fmt"

	"booking-payments/internal/data/entity"
	"booking-payments/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// WebhookRepository is the idempotency ledger keyed by gateway payment id.
type WebhookRepository interface {
	FindByPaymentID(ctx context.Context, paymentID string) (*entity.WebhookNotification, error)
	// Insert records the notification unless a row for the payment id
	// already exists. It reports whether this call created the row.
	Insert(ctx context.Context, notification *entity.WebhookNotification) (bool, error)
	Delete(ctx context.Context, paymentID string) error
}

type webhookRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewWebhookRepository(db database.PgxIface, log *zap.Logger) WebhookRepository {
	return &webhookRepository{
		db:  db,
		log: log.With(zap.String("repository", "webhook")),
	}
}

func (r *webhookRepository) FindByPaymentID(ctx context.Context, paymentID string) (*entity.WebhookNotification, error) {
	query := `
		SELECT id, payment_id, preference_id, owner_id, booking_id, status, payload, processed_at
		FROM webhook_notifications
		WHERE payment_id = $1
	`

	var n entity.WebhookNotification
	var payload []byte
	err := r.db.QueryRow(ctx, query, paymentID).Scan(
		&n.ID,
		&n.PaymentID,
		&n.PreferenceID,
		&n.OwnerID,
		&n.BookingID,
		&n.Status,
		&payload,
		&n.ProcessedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find webhook notification",
			zap.Error(err),
			zap.String("payment_id", paymentID),
		)
		return nil, fmt.Errorf("find webhook notification %s: %w", paymentID, err)
	}

	n.Payload = payload
	return &n, nil
}

func (r *webhookRepository) Insert(ctx context.Context, n *entity.WebhookNotification) (bool, error) {
	query := `
		INSERT INTO webhook_notifications (id, payment_id, preference_id, owner_id, booking_id, status, payload, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		n.ID,
		n.PaymentID,
		n.PreferenceID,
		n.OwnerID,
		n.BookingID,
		n.Status,
		[]byte(n.Payload),
		n.ProcessedAt,
	)

	if err != nil {
		r.log.Error("Failed to insert webhook notification",
			zap.Error(err),
			zap.String("payment_id", n.PaymentID),
		)
		return false, fmt.Errorf("insert webhook notification %s: %w", n.PaymentID, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *webhookRepository) Delete(ctx context.Context, paymentID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM webhook_notifications WHERE payment_id = $1`, paymentID); err != nil {
		r.log.Error("Failed to delete webhook notification",
			zap.Error(err),
			zap.String("payment_id", paymentID),
		)
		return fmt.Errorf("delete webhook notification %s: %w", paymentID, err)
	}
	return nil
}
