package repository

import (
	"context"
	"errors"
	"fmt"

	"booking-payments/internal/data/entity"
	"booking-payments/pkg/database"
	"booking-payments/pkg/secure"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CredentialRepository stores per-owner gateway secrets sealed at rest.
type CredentialRepository interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*entity.GatewayCredentials, error)
	Has(ctx context.Context, ownerID uuid.UUID) (bool, error)
	Save(ctx context.Context, creds *entity.GatewayCredentials) error
}

type credentialRepository struct {
	db     database.PgxIface
	sealer *secure.Sealer
	log    *zap.Logger
}

func NewCredentialRepository(db database.PgxIface, sealer *secure.Sealer, log *zap.Logger) CredentialRepository {
	return &credentialRepository{
		db:     db,
		sealer: sealer,
		log:    log.With(zap.String("repository", "credential")),
	}
}

func (r *credentialRepository) Get(ctx context.Context, ownerID uuid.UUID) (*entity.GatewayCredentials, error) {
	query := `SELECT access_token, webhook_secret FROM gateway_credentials WHERE owner_id = $1`

	var sealedToken, sealedSecret []byte
	err := r.db.QueryRow(ctx, query, ownerID).Scan(&sealedToken, &sealedSecret)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find credentials",
			zap.Error(err),
			zap.String("owner_id", ownerID.String()),
		)
		return nil, fmt.Errorf("find credentials for owner %s: %w", ownerID.String(), err)
	}

	aad := []byte(ownerID.String())
	token, err := r.sealer.Open(sealedToken, aad)
	if err != nil {
		r.log.Error("Failed to open access token", zap.Error(err), zap.String("owner_id", ownerID.String()))
		return nil, fmt.Errorf("open access token for owner %s: %w", ownerID.String(), err)
	}

	creds := &entity.GatewayCredentials{OwnerID: ownerID, AccessToken: string(token)}
	if len(sealedSecret) > 0 {
		secret, err := r.sealer.Open(sealedSecret, aad)
		if err != nil {
			r.log.Error("Failed to open webhook secret", zap.Error(err), zap.String("owner_id", ownerID.String()))
			return nil, fmt.Errorf("open webhook secret for owner %s: %w", ownerID.String(), err)
		}
		creds.WebhookSecret = string(secret)
	}

	return creds, nil
}

func (r *credentialRepository) Has(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gateway_credentials WHERE owner_id = $1)`, ownerID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check credentials",
			zap.Error(err),
			zap.String("owner_id", ownerID.String()),
		)
		return false, fmt.Errorf("check credentials for owner %s: %w", ownerID.String(), err)
	}
	return exists, nil
}

func (r *credentialRepository) Save(ctx context.Context, creds *entity.GatewayCredentials) error {
	aad := []byte(creds.OwnerID.String())

	sealedToken, err := r.sealer.Seal([]byte(creds.AccessToken), aad)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}

	var sealedSecret []byte
	if creds.WebhookSecret != "" {
		if sealedSecret, err = r.sealer.Seal([]byte(creds.WebhookSecret), aad); err != nil {
			return fmt.Errorf("seal webhook secret: %w", err)
		}
	}

	query := `
		INSERT INTO gateway_credentials (owner_id, access_token, webhook_secret, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (owner_id) DO UPDATE
		SET access_token = EXCLUDED.access_token, webhook_secret = EXCLUDED.webhook_secret, updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, creds.OwnerID, sealedToken, sealedSecret); err != nil {
		r.log.Error("Failed to save credentials",
			zap.Error(err),
			zap.String("owner_id", creds.OwnerID.String()),
		)
		return fmt.Errorf("save credentials for owner %s: %w", creds.OwnerID.String(), err)
	}

	r.log.Info("Credentials saved", zap.String("owner_id", creds.OwnerID.String()))
	return nil
}
