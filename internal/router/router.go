package router

import (
	"context"
	"net/http"
	"time"

	"voucher-api/internal/handler"
	"voucher-api/internal/middleware"

	"github.com/rs/zerolog"
)

// Pinger reports storage connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates a new HTTP router with all routes and middleware configured.
// pinger may be nil when no external storage is configured.
func New(
	voucherHandler *handler.VoucherHandler,
	adminHandler *handler.AdminHandler,
	pinger Pinger,
	adminToken string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := pinger.Ping(ctx); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy", "db": "down"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	mux.HandleFunc("/api/vouchers/active", voucherHandler.Active)
	mux.HandleFunc("/api/vouchers/validate", voucherHandler.Validate)
	mux.HandleFunc("/api/vouchers/claim", voucherHandler.Claim)
	mux.HandleFunc("/api/admin/vouchers", adminHandler.Create)

	// Apply middleware in order: Recovery -> CorrelationID -> Logging -> CORS -> AdminTokenAuth
	var h http.Handler = mux
	h = middleware.AdminTokenAuth(adminToken, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CorrelationID(h)
	h = middleware.Recovery(logger)(h)

	return h
}
