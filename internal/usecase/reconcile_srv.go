package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"booking-payments/internal/data/entity"
	"booking-payments/internal/data/repository"
	"booking-payments/internal/dto/response"
	"booking-payments/internal/gateway"
	"booking-payments/pkg/lock"

	"go.uber.org/zap"
)

// errSkipped marks a record left alone for this run.
var errSkipped = errors.New("skipped")

type ReconcileService interface {
	// RunScheduled is the timer entry point. It returns false when a
	// previous scheduled run is still in progress.
	RunScheduled(ctx context.Context) (*response.ReconcileResponse, bool, error)
	RunManual(ctx context.Context) (*response.ReconcileResponse, error)
	VerifyPreference(ctx context.Context, preferenceID string) (*response.VerifyResponse, error)
}

type reconcileService struct {
	repo         *repository.Repository
	gw           gateway.API
	confirmation ConfirmationService
	locker       lock.Locker
	now          func() time.Time
	running      atomic.Bool
	log          *zap.Logger
}

func NewReconcileService(repo *repository.Repository, gw gateway.API, confirmation ConfirmationService, locker lock.Locker, now func() time.Time, log *zap.Logger) ReconcileService {
	return &reconcileService{
		repo:         repo,
		gw:           gw,
		confirmation: confirmation,
		locker:       locker,
		now:          now,
		log:          log.With(zap.String("service", "reconcile")),
	}
}

func (s *reconcileService) RunScheduled(ctx context.Context) (*response.ReconcileResponse, bool, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("Previous reconciliation still running, skipping tick")
		return nil, false, nil
	}
	defer s.running.Store(false)

	result, err := s.run(ctx)
	return result, true, err
}

func (s *reconcileService) RunManual(ctx context.Context) (*response.ReconcileResponse, error) {
	return s.run(ctx)
}

func (s *reconcileService) run(ctx context.Context) (*response.ReconcileResponse, error) {
	started := time.Now()

	pending, err := s.repo.Payment.FindPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending payments: %w", ErrPersistence, err)
	}

	result := &response.ReconcileResponse{Total: len(pending)}
	for _, record := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		reconciled, expired, err := s.reconcileOne(ctx, record)
		switch {
		case errors.Is(err, errSkipped):
		case err != nil:
			s.log.Error("Failed to reconcile payment record",
				zap.Error(err),
				zap.String("payment_record_id", record.ID.String()),
				zap.String("booking_id", record.BookingID.String()),
			)
		}
		if reconciled {
			result.Reconciled++
		}
		if expired {
			result.Expired++
		}
	}

	s.log.Info("Reconciliation finished",
		zap.Int("total", result.Total),
		zap.Int("reconciled", result.Reconciled),
		zap.Int("expired", result.Expired),
		zap.Duration("took", time.Since(started)),
	)

	return result, nil
}

func (s *reconcileService) reconcileOne(ctx context.Context, record *entity.Payment) (reconciled, expired bool, err error) {
	approved, err := s.findApproved(ctx, record)
	if err != nil {
		return false, false, err
	}

	if approved != nil {
		outcome, err := s.confirmation.Confirm(ctx, record.BookingID, approved)
		if err != nil {
			return false, false, err
		}
		return outcome == OutcomeConfirmed, false, nil
	}

	if !record.IsExpired(s.now()) {
		return false, false, nil
	}

	expired, err = s.expire(ctx, record)
	return false, expired, err
}

// findApproved searches the gateway once for an approved payment of the record.
func (s *reconcileService) findApproved(ctx context.Context, record *entity.Payment) (*gateway.Payment, error) {
	creds, err := s.repo.Credential.Get(ctx, record.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load credentials: %w", ErrPersistence, err)
	}
	if creds == nil {
		s.log.Warn("No gateway credentials for owner, payment record left pending",
			zap.String("owner_id", record.OwnerID.String()),
			zap.String("payment_record_id", record.ID.String()),
		)
		return nil, fmt.Errorf("%w: %w: owner %s", errSkipped, ErrCredentialsMissing, record.OwnerID)
	}

	payments, err := s.gw.SearchPayments(ctx, creds.AccessToken, record.ExternalReference)
	if err != nil {
		return nil, fmt.Errorf("%w: search payments for %s: %w", ErrGateway, record.ExternalReference, err)
	}
	return gateway.FirstApproved(payments), nil
}

// expire moves the record and its booking to expired. It reports whether
// this call performed the transition.
func (s *reconcileService) expire(ctx context.Context, record *entity.Payment) (bool, error) {
	release, err := s.locker.Acquire(ctx, bookingLockKey(record.BookingID))
	if err != nil {
		return false, fmt.Errorf("%w: lock booking %s: %w", ErrPersistence, record.BookingID, err)
	}
	defer release()

	var moved bool
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		moved, err = s.repo.Payment.TransitionStatus(ctx, record.ID, entity.PaymentStatusExpired, nil)
		if err != nil || !moved {
			return err
		}
		_, err = s.repo.Booking.UpdateStatusIf(ctx, record.BookingID, entity.BookingStatusPendingPayment, entity.BookingStatusExpired)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: expire payment record %s: %w", ErrPersistence, record.ID, err)
	}

	if moved {
		s.log.Info("Payment record expired",
			zap.String("payment_record_id", record.ID.String()),
			zap.String("booking_id", record.BookingID.String()),
			zap.Time("expires_at", record.ExpiresAt),
		)
	}
	return moved, nil
}

func (s *reconcileService) VerifyPreference(ctx context.Context, preferenceID string) (*response.VerifyResponse, error) {
	preferenceID = strings.TrimSpace(preferenceID)
	if preferenceID == "" {
		return nil, fmt.Errorf("%w: preference_id is required", ErrValidation)
	}

	record, err := s.repo.Payment.FindByPreferenceID(ctx, preferenceID)
	if err != nil {
		return nil, fmt.Errorf("%w: load payment record: %w", ErrPersistence, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: preference %s", ErrNotFound, preferenceID)
	}

	if record.Status == entity.PaymentStatusPending {
		approved, err := s.findApproved(ctx, record)
		switch {
		case err != nil:
			s.log.Warn("Verify could not reach the gateway, answering with stored status",
				zap.Error(err),
				zap.String("preference_id", preferenceID),
			)
		case approved != nil:
			if _, err := s.confirmation.Confirm(ctx, record.BookingID, approved); err != nil {
				s.log.Error("Verify failed to confirm booking", zap.Error(err), zap.String("preference_id", preferenceID))
			}
			if record, err = s.repo.Payment.FindByID(ctx, record.ID); err != nil {
				return nil, fmt.Errorf("%w: reload payment record: %w", ErrPersistence, err)
			}
		}
	}
	if record == nil {
		return nil, fmt.Errorf("%w: preference %s", ErrNotFound, preferenceID)
	}

	resp := &response.VerifyResponse{
		Success:      true,
		PreferenceID: record.PreferenceID,
		BookingID:    record.BookingID.String(),
		Status:       record.Status,
		ExpiresAt:    record.ExpiresAt,
	}

	booking, err := s.repo.Booking.FindByID(ctx, record.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: load booking: %w", ErrPersistence, err)
	}
	if booking != nil {
		resp.BookingStatus = booking.Status
		resp.PaymentStatus = booking.PaymentStatus
	}

	return resp, nil
}
