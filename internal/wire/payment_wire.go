package wire

import (
	"booking-payments/internal/adaptor"
	"booking-payments/pkg/middleware"
	"booking-payments/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/payments", func(r chi.Router) {
		// called by the storefront
		r.Post("/preferences", paymentHandler.CreatePreference)
		r.Get("/verify", paymentHandler.Verify)

		// called by the gateway
		r.Post("/webhook", paymentHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Admin(config.Security.AdminTokenHash, log))

			r.Post("/reconcile", paymentHandler.Reconcile)
			r.Put("/credentials/{owner_id}", paymentHandler.SaveCredentials)
			r.Get("/credentials/{owner_id}", paymentHandler.CredentialsStatus)
		})
	})
}
