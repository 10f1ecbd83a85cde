package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"booking-payments/internal/data/entity"
	"booking-payments/internal/data/repository"
	"booking-payments/internal/dto/response"
	"booking-payments/internal/gateway"
	"booking-payments/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookInput is a gateway push already pulled apart by the transport.
type WebhookInput struct {
	PaymentID    string
	PreferenceID string
	// OwnerID comes from the notification URL query.
	OwnerID   string
	Topic     string
	Signature string
	RawBody   []byte
}

type WebhookService interface {
	HandleWebhook(ctx context.Context, in *WebhookInput) (*response.WebhookResponse, error)
}

type webhookService struct {
	repo         *repository.Repository
	gw           gateway.API
	confirmation ConfirmationService
	config       *utils.Config
	now          func() time.Time
	log          *zap.Logger
}

func NewWebhookService(repo *repository.Repository, gw gateway.API, confirmation ConfirmationService, config *utils.Config, now func() time.Time, log *zap.Logger) WebhookService {
	return &webhookService{
		repo:         repo,
		gw:           gw,
		confirmation: confirmation,
		config:       config,
		now:          now,
		log:          log.With(zap.String("service", "webhook")),
	}
}

// isPaymentTopic accepts "payment" and its "payment.created"/"payment.updated" forms.
func isPaymentTopic(topic string) bool {
	return topic == "" || topic == "payment" || strings.HasPrefix(topic, "payment.")
}

func (s *webhookService) HandleWebhook(ctx context.Context, in *WebhookInput) (*response.WebhookResponse, error) {
	if !isPaymentTopic(in.Topic) {
		s.log.Debug("Ignoring non-payment notification", zap.String("topic", in.Topic))
		return &response.WebhookResponse{Success: true, Status: response.WebhookIgnored, Message: "topic " + in.Topic + " ignored"}, nil
	}

	paymentID := strings.TrimSpace(in.PaymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id missing from notification", ErrValidation)
	}
	log := s.log.With(zap.String("payment_id", paymentID))

	seen, err := s.repo.Webhook.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger lookup: %w", ErrPersistence, err)
	}
	if seen != nil {
		log.Info("Notification already processed")
		return alreadyProcessed(paymentID), nil
	}

	record, ownerID, err := s.resolveOwner(ctx, in)
	if err != nil {
		return nil, err
	}

	creds, err := s.repo.Credential.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load credentials: %w", ErrPersistence, err)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: owner %s", ErrCredentialsMissing, ownerID)
	}

	payment, err := s.gw.GetPayment(ctx, creds.AccessToken, paymentID)
	if err != nil {
		log.Error("Failed to fetch payment from gateway", zap.Error(err))
		return nil, fmt.Errorf("%w: fetch payment %s: %w", ErrGateway, paymentID, err)
	}

	if !gateway.VerifySignature(in.RawBody, in.Signature, creds.WebhookSecret) {
		log.Warn("Webhook signature mismatch",
			zap.String("owner_id", ownerID.String()),
			zap.Bool("has_secret", creds.WebhookSecret != ""),
			zap.Bool("enforced", s.config.Webhook.EnforceSignature),
		)
		if s.config.Webhook.EnforceSignature {
			return nil, fmt.Errorf("%w: payment %s", ErrSignature, paymentID)
		}
	}

	bookingID, ok := s.resolveBooking(payment, record)
	if ok && record == nil {
		if record, err = s.repo.Payment.FindByBookingID(ctx, bookingID); err != nil {
			return nil, fmt.Errorf("%w: load payment record: %w", ErrPersistence, err)
		}
	}

	entry := &entity.WebhookNotification{
		ID:          uuid.New(),
		PaymentID:   paymentID,
		OwnerID:     &ownerID,
		Status:      payment.StatusText(),
		Payload:     ledgerPayload(in.RawBody, payment.Raw),
		ProcessedAt: s.now(),
	}
	if record != nil {
		entry.PreferenceID = &record.PreferenceID
	} else if in.PreferenceID != "" {
		entry.PreferenceID = &in.PreferenceID
	}
	if ok {
		entry.BookingID = &bookingID
	}

	inserted, err := s.repo.Webhook.Insert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger insert: %w", ErrPersistence, err)
	}
	if !inserted {
		log.Info("Concurrent delivery already claimed this notification")
		return alreadyProcessed(paymentID), nil
	}

	result, err := s.process(ctx, bookingID, ok, payment)
	if err != nil {
		// nothing committed, let the gateway redeliver
		if delErr := s.repo.Webhook.Delete(ctx, paymentID); delErr != nil {
			log.Error("Failed to release ledger reservation", zap.Error(delErr))
		}
		return nil, err
	}

	result.PaymentID = paymentID
	result.GatewayStatus = payment.StatusText()
	if ok {
		result.BookingID = bookingID.String()
	}
	return result, nil
}

func (s *webhookService) process(ctx context.Context, bookingID uuid.UUID, known bool, payment *gateway.Payment) (*response.WebhookResponse, error) {
	if !known {
		s.log.Warn("Notification does not reference a booking",
			zap.String("payment_id", payment.ID.String()),
			zap.String("external_reference", payment.ExternalReference),
		)
		return &response.WebhookResponse{Success: true, Status: response.WebhookNotFound, Message: "Booking not found"}, nil
	}

	switch payment.Status {
	case gateway.StatusApproved:
		outcome, err := s.confirmation.Confirm(ctx, bookingID, payment)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case OutcomeConfirmed:
			return &response.WebhookResponse{Success: true, Status: response.WebhookConfirmed, Message: "Booking confirmed"}, nil
		case OutcomeConflict:
			return &response.WebhookResponse{Success: true, Status: response.WebhookConflict, Message: "Time slot already taken, payment flagged for refund"}, nil
		case OutcomeExpired:
			return &response.WebhookResponse{Success: true, Status: response.WebhookExpired, Message: "Payment arrived after expiry, refund required"}, nil
		default:
			return &response.WebhookResponse{Success: true, Status: response.WebhookNotFound, Message: "Booking not found"}, nil
		}
	default:
		mirrored, err := s.confirmation.MirrorStatus(ctx, bookingID, payment)
		if err != nil {
			return nil, err
		}
		switch mirrored {
		case MirrorNotFound:
			return &response.WebhookResponse{Success: true, Status: response.WebhookNotFound, Message: "Booking not found"}, nil
		case MirrorSettled:
			return &response.WebhookResponse{Success: true, Status: response.WebhookAlreadySettled, Message: "Booking already settled, status not mirrored"}, nil
		}
		s.log.Info("Mirrored non-terminal payment status",
			zap.String("booking_id", bookingID.String()),
			zap.String("gateway_status", payment.StatusText()),
		)
		return &response.WebhookResponse{Success: true, Status: response.WebhookUpdated, Message: "Payment status updated"}, nil
	}
}

// resolveOwner finds the tenant through the payment record of the
// notification's preference, then falls back to the owner_id query value.
func (s *webhookService) resolveOwner(ctx context.Context, in *WebhookInput) (*entity.Payment, uuid.UUID, error) {
	if in.PreferenceID != "" {
		record, err := s.repo.Payment.FindByPreferenceID(ctx, in.PreferenceID)
		if err != nil {
			return nil, uuid.Nil, fmt.Errorf("%w: load payment record: %w", ErrPersistence, err)
		}
		if record != nil {
			return record, record.OwnerID, nil
		}
	}

	if in.OwnerID != "" {
		ownerID, err := uuid.Parse(in.OwnerID)
		if err != nil {
			return nil, uuid.Nil, fmt.Errorf("%w: owner_id %q is not a valid UUID", ErrValidation, in.OwnerID)
		}
		return nil, ownerID, nil
	}

	return nil, uuid.Nil, fmt.Errorf("%w: cannot resolve owner for payment %s, no payment record for preference %q and no owner_id",
		ErrValidation, in.PaymentID, in.PreferenceID)
}

func (s *webhookService) resolveBooking(payment *gateway.Payment, record *entity.Payment) (uuid.UUID, bool) {
	if id, err := uuid.Parse(payment.ExternalReference); err == nil {
		return id, true
	}
	if record != nil {
		return record.BookingID, true
	}
	return uuid.Nil, false
}

func alreadyProcessed(paymentID string) *response.WebhookResponse {
	return &response.WebhookResponse{
		Success:   true,
		Status:    response.WebhookAlreadyProcessed,
		Message:   "Notification already processed",
		PaymentID: paymentID,
	}
}

// ledgerPayload prefers the pushed body and falls back to the fetched payment.
func ledgerPayload(body, fetched json.RawMessage) json.RawMessage {
	if len(body) > 0 && json.Valid(body) {
		return body
	}
	if len(fetched) > 0 && json.Valid(fetched) {
		return fetched
	}
	return json.RawMessage(`{}`)
}
