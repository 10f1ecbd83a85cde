package usecase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"booking-payments/internal/data/entity"
	"booking-payments/internal/data/repository"
	"booking-payments/internal/dto/request"
	"booking-payments/internal/dto/response"
	"booking-payments/internal/gateway"
	"booking-payments/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PreferenceService interface {
	CreatePreference(ctx context.Context, req *request.CreatePreferenceRequest) (*response.PreferenceResponse, error)
}

type preferenceService struct {
	repo   *repository.Repository
	gw     gateway.API
	config *utils.Config
	now    func() time.Time
	log    *zap.Logger
}

func NewPreferenceService(repo *repository.Repository, gw gateway.API, config *utils.Config, now func() time.Time, log *zap.Logger) PreferenceService {
	return &preferenceService{
		repo:   repo,
		gw:     gw,
		config: config,
		now:    now,
		log:    log.With(zap.String("service", "preference")),
	}
}

func (s *preferenceService) CreatePreference(ctx context.Context, req *request.CreatePreferenceRequest) (*response.PreferenceResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create preference validation failed", zap.Any("errors", errs))
		return nil, FieldErrors(errs)
	}

	if len(req.Items) > 0 {
		if total := itemsTotal(req.Items); !total.Equal(req.Amount) {
			return nil, FieldErrors{"Items": fmt.Sprintf("Items total %s does not match amount %s", total.StringFixed(2), req.Amount.StringFixed(2))}
		}
	}

	ownerID := uuid.MustParse(req.OwnerID)
	bookingID := uuid.MustParse(req.BookingID)

	creds, err := s.repo.Credential.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load credentials: %w", ErrPersistence, err)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: owner %s", ErrCredentialsMissing, ownerID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: load booking: %w", ErrPersistence, err)
	}
	if booking == nil || booking.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	if booking.Status.IsPaymentTerminal() {
		return nil, fmt.Errorf("%w: booking %s is %s", ErrInvalidState, bookingID, booking.Status)
	}

	existing, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: load payment record: %w", ErrPersistence, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: booking %s already has payment record %s (%s)",
			ErrInvalidState, bookingID, existing.ID, existing.Status)
	}

	now := s.now()
	expiresAt := now.Add(s.config.Reconcile.PaymentTTL)

	prefReq := &gateway.PreferenceRequest{
		Items:             s.buildItems(booking, req),
		ExternalReference: bookingID.String(),
		NotificationURL:   notificationURL(s.config.Gateway.NotificationURL, ownerID),
		Expires:           true,
		ExpirationDateTo:  &expiresAt,
	}
	if returnURL := utils.FirstNonEmpty(req.ReturnURL, s.config.Gateway.DefaultReturnURL); returnURL != "" {
		prefReq.BackURLs = &gateway.BackURLs{Success: returnURL, Pending: returnURL, Failure: returnURL}
		prefReq.AutoReturn = "approved"
	}

	pref, err := s.gw.CreatePreference(ctx, creds.AccessToken, prefReq)
	if err != nil {
		s.log.Error("Failed to create gateway preference",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("%w: create preference: %w", ErrGateway, err)
	}

	record := &entity.Payment{
		BaseNoDelete:      entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:         bookingID,
		OwnerID:           ownerID,
		PreferenceID:      pref.ID,
		ExternalReference: bookingID.String(),
		Amount:            req.Amount,
		Currency:          s.config.Gateway.Currency,
		InitPoint:         pref.InitPoint,
		Status:            entity.PaymentStatusPending,
		ExpiresAt:         expiresAt,
	}

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Payment.Create(ctx, record); err != nil {
			return err
		}
		return s.repo.Booking.UpdateStatus(ctx, bookingID, entity.BookingStatusPendingPayment)
	})
	if err != nil {
		s.log.Error("Payment record not written, preference orphaned",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("preference_id", pref.ID),
		)
		return nil, fmt.Errorf("%w: create payment record: %w", ErrPersistence, err)
	}

	s.log.Info("Preference created",
		zap.String("booking_id", bookingID.String()),
		zap.String("preference_id", pref.ID),
		zap.Time("expires_at", expiresAt),
	)

	return &response.PreferenceResponse{
		Success:      true,
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
	}, nil
}

func (s *preferenceService) buildItems(booking *entity.Booking, req *request.CreatePreferenceRequest) []gateway.PreferenceItem {
	currency := s.config.Gateway.Currency
	if len(req.Items) == 0 {
		return []gateway.PreferenceItem{{
			ID:         booking.ID.String(),
			Title:      fmt.Sprintf("Booking %s %s", booking.Date.Format("2006-01-02"), booking.Time),
			Quantity:   1,
			UnitPrice:  req.Amount,
			CurrencyID: currency,
		}}
	}

	items := make([]gateway.PreferenceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, gateway.PreferenceItem{
			ID:         it.ID,
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			CurrencyID: currency,
		})
	}
	return items
}

// notificationURL appends owner_id so the webhook can resolve the tenant
// even before the payment record is visible.
func notificationURL(base string, ownerID uuid.UUID) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("owner_id", ownerID.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// itemsTotal is the sum of quantity * unit price.
func itemsTotal(items []request.PreferenceItemRequest) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
