package usecase

import (
	"context"
	"fmt"

	"booking-payments/internal/data/entity"
	"booking-payments/internal/data/repository"
	"booking-payments/internal/dto/request"
	"booking-payments/internal/dto/response"
	"booking-payments/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CredentialService onboards tenants onto the gateway.
type CredentialService interface {
	Save(ctx context.Context, ownerID string, req *request.SaveCredentialsRequest) error
	Status(ctx context.Context, ownerID string) (*response.CredentialsStatusResponse, error)
}

type credentialService struct {
	repo repository.CredentialRepository
	log  *zap.Logger
}

func NewCredentialService(repo repository.CredentialRepository, log *zap.Logger) CredentialService {
	return &credentialService{
		repo: repo,
		log:  log.With(zap.String("service", "credential")),
	}
}

func (s *credentialService) Save(ctx context.Context, ownerID string, req *request.SaveCredentialsRequest) error {
	id, err := uuid.Parse(ownerID)
	if err != nil {
		return fmt.Errorf("%w: invalid owner ID format %s", ErrValidation, ownerID)
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return FieldErrors(errs)
	}

	creds := &entity.GatewayCredentials{
		OwnerID:       id,
		AccessToken:   req.AccessToken,
		WebhookSecret: req.WebhookSecret,
	}
	if err := s.repo.Save(ctx, creds); err != nil {
		return fmt.Errorf("%w: save credentials: %w", ErrPersistence, err)
	}

	s.log.Info("Gateway credentials saved",
		zap.String("owner_id", id.String()),
		zap.Bool("webhook_secret", req.WebhookSecret != ""),
	)
	return nil
}

func (s *credentialService) Status(ctx context.Context, ownerID string) (*response.CredentialsStatusResponse, error) {
	id, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid owner ID format %s", ErrValidation, ownerID)
	}

	ok, err := s.repo.Has(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: check credentials: %w", ErrPersistence, err)
	}

	return &response.CredentialsStatusResponse{OwnerID: id.String(), Configured: ok}, nil
}
