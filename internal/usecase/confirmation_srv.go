package usecase

import (
	"context"
	"fmt"

	"booking-payments/internal/data/entity"
	"booking-payments/internal/data/repository"
	"booking-payments/internal/gateway"
	"booking-payments/pkg/lock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the terminal result of confirming an approved payment.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeConflict  Outcome = "conflict"
	// OutcomeExpired means the record had already expired; nothing changed
	// and the payment has to be refunded by hand.
	OutcomeExpired  Outcome = "expired"
	OutcomeNotFound Outcome = "not_found"
)

// MirrorResult reports what MirrorStatus did with a non-approved status.
type MirrorResult string

const (
	MirrorUpdated  MirrorResult = "updated"
	MirrorSettled  MirrorResult = "settled"
	MirrorNotFound MirrorResult = "not_found"
)

// ConfirmationService is the only writer of payment state on bookings.
// Webhook, poller and verify paths all go through it.
type ConfirmationService interface {
	Confirm(ctx context.Context, bookingID uuid.UUID, payment *gateway.Payment) (Outcome, error)
	// MirrorStatus copies a non-approved gateway status onto a booking that
	// is still awaiting payment. Settled bookings are left untouched.
	MirrorStatus(ctx context.Context, bookingID uuid.UUID, payment *gateway.Payment) (MirrorResult, error)
}

type confirmationService struct {
	repo   *repository.Repository
	locker lock.Locker
	log    *zap.Logger
}

func NewConfirmationService(repo *repository.Repository, locker lock.Locker, log *zap.Logger) ConfirmationService {
	return &confirmationService{
		repo:   repo,
		locker: locker,
		log:    log.With(zap.String("service", "confirmation")),
	}
}

func bookingLockKey(bookingID uuid.UUID) string {
	return "booking:" + bookingID.String()
}

func (s *confirmationService) Confirm(ctx context.Context, bookingID uuid.UUID, payment *gateway.Payment) (Outcome, error) {
	if payment == nil || payment.Status != gateway.StatusApproved {
		return "", fmt.Errorf("%w: payment for booking %s is not approved", ErrValidation, bookingID)
	}

	release, err := s.locker.Acquire(ctx, bookingLockKey(bookingID))
	if err != nil {
		return "", fmt.Errorf("lock booking %s: %w: %w", bookingID, ErrPersistence, err)
	}
	defer release()

	var outcome Outcome
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = s.confirmLocked(ctx, bookingID, payment)
		return err
	})
	if err != nil {
		s.log.Error("Failed to confirm booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("gateway_payment_id", payment.ID.String()),
		)
		return "", fmt.Errorf("confirm booking %s: %w: %w", bookingID, ErrPersistence, err)
	}

	return outcome, nil
}

func (s *confirmationService) MirrorStatus(ctx context.Context, bookingID uuid.UUID, payment *gateway.Payment) (MirrorResult, error) {
	if payment == nil || payment.Status == gateway.StatusApproved {
		return "", fmt.Errorf("%w: approved payments for booking %s go through Confirm", ErrValidation, bookingID)
	}

	release, err := s.locker.Acquire(ctx, bookingLockKey(bookingID))
	if err != nil {
		return "", fmt.Errorf("lock booking %s: %w: %w", bookingID, ErrPersistence, err)
	}
	defer release()

	var result MirrorResult
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.repo.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			result = MirrorNotFound
			return nil
		}

		record, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
		if err != nil {
			return err
		}
		if _, done := terminalOutcome(booking, record); done || booking.Status.IsPaymentTerminal() {
			result = MirrorSettled
			return nil
		}

		updated, err := s.repo.Booking.UpdatePaymentStatus(ctx, bookingID, payment.StatusText())
		if err != nil {
			return err
		}
		result = MirrorSettled
		if updated {
			result = MirrorUpdated
		}
		return nil
	})
	if err != nil {
		s.log.Error("Failed to mirror payment status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("gateway_payment_id", payment.ID.String()),
		)
		return "", fmt.Errorf("mirror payment status for booking %s: %w: %w", bookingID, ErrPersistence, err)
	}

	if result == MirrorSettled {
		s.log.Info("Booking already settled, status not mirrored",
			zap.String("booking_id", bookingID.String()),
			zap.String("gateway_payment_id", payment.ID.String()),
			zap.String("gateway_status", payment.StatusText()),
		)
	}
	return result, nil
}

func (s *confirmationService) confirmLocked(ctx context.Context, bookingID uuid.UUID, payment *gateway.Payment) (Outcome, error) {
	booking, err := s.repo.Booking.FindByIDForUpdate(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if booking == nil {
		s.log.Warn("Approved payment for unknown booking",
			zap.String("booking_id", bookingID.String()),
			zap.String("gateway_payment_id", payment.ID.String()),
		)
		return OutcomeNotFound, nil
	}

	record, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return "", err
	}

	if existing, done := terminalOutcome(booking, record); done {
		if existing == OutcomeExpired {
			s.log.Warn("Approved payment arrived after expiry, refund required",
				zap.String("booking_id", bookingID.String()),
				zap.String("gateway_payment_id", payment.ID.String()),
			)
		} else {
			s.log.Info("Booking already settled, skipping",
				zap.String("booking_id", bookingID.String()),
				zap.String("outcome", string(existing)),
			)
		}
		return existing, nil
	}

	if err := s.repo.Booking.LockSlot(ctx, booking.SlotKey()); err != nil {
		return "", err
	}

	outcome := OutcomeConfirmed
	bookingStatus := entity.BookingStatusConfirmed
	recordStatus := entity.PaymentStatusConfirmed

	switch {
	case booking.Status == entity.BookingStatusCancelled:
		// paid after cancellation, keep it cancelled and flag the record
		outcome = OutcomeConflict
		bookingStatus = entity.BookingStatusCancelled
		recordStatus = entity.PaymentStatusConflict
	default:
		other, err := s.repo.Booking.FindConfirmedBySlot(ctx, booking.UserID, booking.Date, booking.Time, booking.ID)
		if err != nil {
			return "", err
		}
		if other != nil {
			s.log.Warn("Slot already confirmed by another booking",
				zap.String("booking_id", booking.ID.String()),
				zap.String("confirmed_booking_id", other.ID.String()),
				zap.String("slot", booking.SlotKey()),
			)
			outcome = OutcomeConflict
			bookingStatus = entity.BookingStatusConflictPayment
			recordStatus = entity.PaymentStatusConflict
		}
	}

	if record != nil {
		gatewayPaymentID := payment.ID.String()
		moved, err := s.repo.Payment.TransitionStatus(ctx, record.ID, recordStatus, &gatewayPaymentID)
		if err != nil {
			return "", err
		}
		if !moved {
			current, err := s.repo.Payment.FindByID(ctx, record.ID)
			if err != nil {
				return "", err
			}
			if current == nil {
				return "", fmt.Errorf("payment record %s disappeared during confirmation", record.ID)
			}
			existing, done := terminalOutcome(booking, current)
			if !done {
				return "", fmt.Errorf("payment record %s did not transition from %s", record.ID, current.Status)
			}
			return existing, nil
		}
	}

	if err := s.repo.Booking.UpdatePaymentOutcome(ctx, booking.ID, bookingStatus, string(payment.Status), payment.Raw); err != nil {
		return "", err
	}

	s.log.Info("Payment outcome committed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("gateway_payment_id", payment.ID.String()),
		zap.String("outcome", string(outcome)),
	)

	return outcome, nil
}

// terminalOutcome reports the outcome already reached by a booking, if any.
// The payment record wins over the booking status when both exist.
func terminalOutcome(booking *entity.Booking, record *entity.Payment) (Outcome, bool) {
	if record != nil {
		switch record.Status {
		case entity.PaymentStatusConfirmed:
			return OutcomeConfirmed, true
		case entity.PaymentStatusConflict:
			return OutcomeConflict, true
		case entity.PaymentStatusExpired:
			return OutcomeExpired, true
		}
	}

	switch booking.Status {
	case entity.BookingStatusConfirmed:
		return OutcomeConfirmed, true
	case entity.BookingStatusConflictPayment:
		return OutcomeConflict, true
	case entity.BookingStatusExpired:
		return OutcomeExpired, true
	}
	return "", false
}
