package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
)

// ReplayedHeader marks a response served from the idempotency cache.
const ReplayedHeader = "Idempotent-Replayed"

// CORS applies the browser origin policy. Clients may send the idempotency
// and request id headers and read back the replay and request id headers.
func CORS(cfg config.HTTPConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, ReplayedHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           int(cfg.CORSMaxAge.Seconds()),
	})
}
