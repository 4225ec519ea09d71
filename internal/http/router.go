package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventgate/booking-core/internal/idempotency"
	"github.com/eventgate/booking-core/internal/observability"
	"github.com/eventgate/booking-core/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))

	// The gateway webhook carries no Idempotency-Key; only user-initiated
	// checkout enforces one.
	r.With(IdempotencyKeyRequired).Post("/v1/bookings", h.CreateBooking)
	r.Get("/v1/bookings/{id}", h.GetBooking)
	r.Post("/v1/payments/callback", h.PaymentCallback)
	r.Put("/v1/admin/fees", h.UpdateFeeSettings)
	r.Get("/v1/admin/settlements/{id}", h.ListSettlementAudit)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
