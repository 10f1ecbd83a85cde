package entity

import (
	"github.com/google/uuid"
)

// GatewayCredentials are the decrypted per-tenant gateway secrets.
type GatewayCredentials struct {
	OwnerID       uuid.UUID
	AccessToken   string
	WebhookSecret string
}
