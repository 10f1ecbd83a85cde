package usecase

import (
	"context"
	"fmt"

	"booking-payments/internal/data/repository"
	"booking-payments/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	GetStatus(ctx context.Context, bookingID string) (*response.BookingStatusResponse, error)
}

type bookingService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewBookingService(repo *repository.Repository, log *zap.Logger) BookingService {
	return &bookingService{
		repo: repo,
		log:  log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) GetStatus(ctx context.Context, bookingID string) (*response.BookingStatusResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID format %s", ErrValidation, bookingID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load booking: %w", ErrPersistence, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	payment, err := s.repo.Payment.FindByBookingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load payment record: %w", ErrPersistence, err)
	}

	return response.BookingToStatusResponse(booking, payment), nil
}
