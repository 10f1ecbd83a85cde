package usecase

import (
	"errors"

	"booking-payments/pkg/utils"
)

// Error kinds returned by the services. Callers match them with errors.Is,
// the wrapped message carries the detail.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrCredentialsMissing = errors.New("gateway credentials missing")
	ErrGateway            = errors.New("payment gateway error")
	ErrPersistence        = errors.New("persistence error")
	ErrInvalidState       = errors.New("invalid state")
	ErrSignature          = errors.New("invalid webhook signature")
)

// FieldErrors carries per-field validation messages and matches ErrValidation.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return ErrValidation.Error() + ": " + utils.FormatValidationErrors(e)
}

func (e FieldErrors) Unwrap() error { return ErrValidation }
