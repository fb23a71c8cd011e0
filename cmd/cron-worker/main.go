package main

import (
	"context"
	"errors"
	"flag"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/toolyard-backend/internal/cron"
	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/internal/payments"
	"github.com/angelmondragon/toolyard-backend/internal/reconciliation"
	"github.com/angelmondragon/toolyard-backend/pkg/bootstrap"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	rt := bootstrap.Start("cron-worker")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	boot := context.Background()

	dbClient := rt.Database(boot)
	redisClient := rt.Redis(boot)

	lock, err := cron.NewRedisLock(redisClient, cron.LockKey(cfg.Cron.LockKey, cfg.App.Env), cfg.Cron.LockTTL)
	rt.Must(boot, "cron lock", err)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	reconciler, err := reconciliation.NewReconciler(
		customerorders.NewRepository(dbClient.DB()),
		payments.NewRepository(dbClient.DB()),
		dbClient,
		outbox.NewService(outboxRepo, logg),
		logg,
		metrics.NewReconciliationMetrics(prometheus.DefaultRegisterer),
		cfg.Cron.PaymentSyncPage,
	)
	rt.Must(boot, "reconciler", err)

	syncJob, err := cron.NewPaymentOrderSyncJob(cron.PaymentOrderSyncJobParams{
		Logger:     logg,
		Reconciler: reconciler,
	})
	rt.Must(boot, "payment-order-sync job", err)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	rt.Must(boot, "outbox retention job", err)

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Jobs:       []cron.Job{syncJob, retentionJob},
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	rt.Must(boot, "cron scheduler", err)

	ctx, stop := rt.SignalContext()
	defer stop()
	if *once {
		rt.Must(ctx, "cron cycle", scheduler.RunOnce(ctx))
		return
	}
	logg.Info(ctx, "starting cron worker")

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "cron loop", err)
	}
	logg.Info(ctx, "cron worker stopped")
}
