package middleware

import (
	"net/http"

	"booking-payments/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const AdminTokenHeader = "X-Admin-Token"

// Admin checks the X-Admin-Token header against a bcrypt hash. An empty
// hash disables every admin route.
func Admin(tokenHash string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				logger.Warn("Admin route called but no admin token is configured", zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Admin access disabled")
				return
			}

			token := r.Header.Get(AdminTokenHeader)
			if token == "" {
				utils.ResponseUnauthorized(w, "Missing admin token")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logger.Warn("Admin check: invalid token",
					zap.String("path", r.URL.Path),
					zap.String("ip", r.RemoteAddr),
				)
				utils.ResponseUnauthorized(w, "Invalid admin token")
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.SetAdminContext(r.Context())))
		})
	}
}
