package wire

import (
	"context"
	"net/http"
	"time"

	"booking-payments/internal/adaptor"
	"booking-payments/internal/data/repository"
	"booking-payments/internal/gateway"
	"booking-payments/internal/usecase"
	"booking-payments/pkg/lock"
	"booking-payments/pkg/middleware"
	"booking-payments/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Pinger reports database health for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the wired dependencies
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and the router.
func Wiring(repo *repository.Repository, gw gateway.API, locker lock.Locker, db Pinger, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, gw, locker, config, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router:  setupRouter(handler, db, config, logger),
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	db Pinger,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSAllowedOrigins))

	wirePayment(r, handler.Payment, config, logger)
	wireBooking(r, handler.Booking)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				logger.Warn("Health check: database unreachable", zap.Error(err))
				utils.ResponseJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		utils.ResponseJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
