package repository

import (
	"context"

	"booking-payments/pkg/database"
	"booking-payments/pkg/secure"

	"go.uber.org/zap"
)

// Transactor runs fn in one database transaction. Repository calls made
// with the ctx handed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository struct {
	Tx         Transactor
	Booking    BookingRepository
	Payment    PaymentRepository
	Webhook    WebhookRepository
	Credential CredentialRepository
}

func NewRepository(db database.PgxIface, sealer *secure.Sealer, log *zap.Logger) *Repository {
	return &Repository{
		Tx:         pgTransactor{db: db},
		Booking:    NewBookingRepository(db, log),
		Payment:    NewPaymentRepository(db, log),
		Webhook:    NewWebhookRepository(db, log),
		Credential: NewCredentialRepository(db, sealer, log),
	}
}

type pgTransactor struct {
	db database.PgxIface
}

func (t pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithinTx(ctx, t.db, fn)
}
