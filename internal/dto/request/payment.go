package request

import "github.com/shopspring/decimal"

type PreferenceItemRequest struct {
	ID        string          `json:"id,omitempty"`
	Title     string          `json:"title" validate:"required,max=256"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required,gt=0"`
}

type CreatePreferenceRequest struct {
	OwnerID   string                  `json:"owner_id" validate:"required,uuid"`
	BookingID string                  `json:"booking_id" validate:"required,uuid"`
	Amount    decimal.Decimal         `json:"amount" validate:"required,gt=0"`
	Items     []PreferenceItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	ReturnURL string                  `json:"return_url,omitempty" validate:"omitempty,url"`
}

type SaveCredentialsRequest struct {
	AccessToken   string `json:"access_token" validate:"required,min=8"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}
