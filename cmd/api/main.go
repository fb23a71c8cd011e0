package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/toolyard-backend/api/routes"
	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/internal/discounts"
	"github.com/angelmondragon/toolyard-backend/internal/notifications"
	"github.com/angelmondragon/toolyard-backend/internal/orders"
	"github.com/angelmondragon/toolyard-backend/internal/payments"
	"github.com/angelmondragon/toolyard-backend/internal/pricing"
	"github.com/angelmondragon/toolyard-backend/internal/reconciliation"
	"github.com/angelmondragon/toolyard-backend/internal/reports"
	stripewebhook "github.com/angelmondragon/toolyard-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/toolyard-backend/pkg/bootstrap"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/idempotency"
	pkgstripe "github.com/angelmondragon/toolyard-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	rt := bootstrap.Start("api")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	boot := context.Background()

	reportLoc, err := time.LoadLocation(cfg.Reports.Location)
	rt.Must(boot, "reports location", err)

	dbClient := rt.Database(boot)
	redisClient := rt.Redis(boot)

	var (
		stripeClient *pkgstripe.Client
		intents      pkgstripe.PaymentIntentCreator
	)
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = pkgstripe.NewClient(boot, cfg.Stripe, logg)
		rt.Must(boot, "stripe", err)
		intents = stripeClient
	} else {
		logg.Warn(boot, "stripe api key not set, card payments disabled")
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	customerOrderRepo := customerorders.NewRepository(gormDB)
	paymentRepo := payments.NewRepository(gormDB)

	reconciler, err := reconciliation.NewReconciler(
		customerOrderRepo,
		paymentRepo,
		dbClient,
		outboxService,
		logg,
		metrics.NewReconciliationMetrics(prometheus.DefaultRegisterer),
		cfg.Cron.PaymentSyncPage,
	)
	rt.Must(boot, "reconciler", err)

	paymentService, err := payments.NewService(paymentRepo, dbClient, outboxService, reconciler, logg, cfg.FeatureFlags.StrictPaymentTransitions)
	rt.Must(boot, "payment service", err)

	discountRepo := discounts.NewRepository(gormDB)
	discountService, err := discounts.NewService(discountRepo, authz.Can)
	rt.Must(boot, "discount service", err)
	engine, err := pricing.NewEngine(discountRepo)
	rt.Must(boot, "pricing engine", err)

	dedupe, err := idempotency.NewGuard(redisClient, cfg.Eventing.NotificationDedupeTTL)
	rt.Must(boot, "notification dedupe", err)
	notificationService, err := notifications.NewService(dbClient, outboxService, dedupe, logg)
	rt.Must(boot, "notification service", err)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:            orders.NewRepository(gormDB),
		TxRunner:        dbClient,
		Pricer:          engine,
		Payments:        paymentService,
		Outbox:          outboxService,
		Notifier:        notificationService,
		Intents:         intents,
		Check:           authz.Can,
		Logger:          logg,
		DefaultCurrency: cfg.Stripe.Currency,
	})
	rt.Must(boot, "order service", err)

	checkoutService, err := customerorders.NewService(customerOrderRepo, dbClient, paymentService, intents, authz.Can, cfg.Stripe.Currency)
	rt.Must(boot, "checkout service", err)

	reportService, err := reports.NewService(reports.NewRepository(gormDB), paymentRepo, authz.Can, logg, reportLoc)
	rt.Must(boot, "report service", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentService,
		Logger:   logg,
	})
	rt.Must(boot, "stripe webhook service", err)
	webhookGuard, err := stripewebhook.NewEventGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, cfg.Stripe.Environment())
	rt.Must(boot, "stripe webhook guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := rt.SignalContext()
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"addr": addr, "instance": id})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			orderService,
			checkoutService,
			paymentService,
			discountService,
			reportService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Must(ctx, "http server", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
