package usecase

import (
	"time"

	"booking-payments/internal/data/repository"
	"booking-payments/internal/gateway"
	"booking-payments/pkg/lock"
	"booking-payments/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Preference   PreferenceService
	Confirmation ConfirmationService
	Webhook      WebhookService
	Reconcile    ReconcileService
	Booking      BookingService
	Credential   CredentialService
}

func NewService(repo *repository.Repository, gw gateway.API, locker lock.Locker, config *utils.Config, log *zap.Logger) *Service {
	return newService(repo, gw, locker, config, time.Now, log)
}

func newService(repo *repository.Repository, gw gateway.API, locker lock.Locker, config *utils.Config, now func() time.Time, log *zap.Logger) *Service {
	confirmation := NewConfirmationService(repo, locker, log)

	return &Service{
		Preference:   NewPreferenceService(repo, gw, config, now, log),
		Confirmation: confirmation,
		Webhook:      NewWebhookService(repo, gw, confirmation, config, now, log),
		Reconcile:    NewReconcileService(repo, gw, confirmation, locker, now, log),
		Booking:      NewBookingService(repo, log),
		Credential:   NewCredentialService(repo.Credential, log),
	}
}
