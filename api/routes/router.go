package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/toolyard-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/toolyard-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/toolyard-backend/api/controllers/payments"
	reportcontrollers "github.com/angelmondragon/toolyard-backend/api/controllers/reports"
	webhookcontrollers "github.com/angelmondragon/toolyard-backend/api/controllers/webhooks"
	"github.com/angelmondragon/toolyard-backend/api/middleware"
	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/internal/discounts"
	"github.com/angelmondragon/toolyard-backend/internal/orders"
	"github.com/angelmondragon/toolyard-backend/internal/reports"
	stripewebhook "github.com/angelmondragon/toolyard-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/toolyard-backend/pkg/auth"
	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/db"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/redis"
	"github.com/angelmondragon/toolyard-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	checkoutSvc customerorders.Service,
	paymentsSvc paymentcontrollers.StatusUpdater,
	discountsSvc discounts.Service,
	reportsSvc reports.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.EventGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP),
	)

	respondPolicy := middleware.NewRateLimitPolicy("respond", cfg.RateLimit.Window, cfg.RateLimit.RespondLimit)
	paymentsPolicy := middleware.NewRateLimitPolicy("payments", cfg.RateLimit.Window, cfg.RateLimit.PaymentsLimit)
	requireAuth := middleware.Auth(auth.NewTokens(cfg.JWT), logg)
	perm := func(perms ...authz.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(authz.Can, logg, perms...)
	}

	deps := map[string]controllers.Pinger{"database": dbP}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Method(http.MethodPost, "/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/admin-orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.AdminCreate(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(ordersSvc, logg))
			r.Put("/{orderId}/cancel", ordercontrollers.AdminCancel(ordersSvc, logg))
			r.Delete("/{orderId}", ordercontrollers.AdminDelete(ordersSvc, logg))
		})

		r.With(
			perm(authz.PermPaymentsUpdateStatus),
			middleware.RateLimit(paymentsPolicy, redisClient, logg),
		).Put("/payments/{paymentId}/status", paymentcontrollers.AdminUpdateStatus(paymentsSvc, logg))

		r.Route("/discounts", func(r chi.Router) {
			r.Post("/", controllers.DiscountCreate(discountsSvc, logg))
			r.Get("/", controllers.DiscountList(discountsSvc, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(respondPolicy, redisClient, logg))
			r.Put("/admin-orders/{orderId}/respond", ordercontrollers.SupplierRespond(ordersSvc, logg))
			r.Put("/admin-orders/{orderId}/confirm", ordercontrollers.SupplierConfirm(ordersSvc, logg))
		})
		r.Get("/supplier/admin-orders", ordercontrollers.SupplierList(ordersSvc, logg))

		if cfg.FeatureFlags.ManualPaymentStatus {
			r.With(
				perm(authz.PermPaymentsManualStatus),
				middleware.RateLimit(paymentsPolicy, redisClient, logg),
			).Post("/payments/stripe/update-status", paymentcontrollers.StripeUpdateStatus(paymentsSvc, logg))
		}

		r.Post("/checkout", controllers.Checkout(checkoutSvc, logg))

		r.Route("/reports", func(r chi.Router) {
			r.Use(perm(authz.PermReportsRead))
			r.Get("/weekly", reportcontrollers.Weekly(reportsSvc, logg))
			r.Get("/monthly", reportcontrollers.Monthly(reportsSvc, logg))
			r.Get("/realtime", reportcontrollers.Realtime(reportsSvc, logg))
		})
	})

	return r
}
