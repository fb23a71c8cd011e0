package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/toolyard-backend/internal/analytics"
	"github.com/angelmondragon/toolyard-backend/pkg/bigquery"
	"github.com/angelmondragon/toolyard-backend/pkg/bootstrap"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/toolyard-backend/pkg/pubsub"
)

func main() {
	rt := bootstrap.Start("analytics-worker")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	boot := context.Background()

	redisClient := rt.Redis(boot)

	pubsubClient, err := pubsub.NewClient(boot, cfg.GCP, pubsub.AnalyticsRequirements(cfg.PubSub), logg)
	rt.Must(boot, "pubsub", err)
	rt.OnClose("pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(boot, cfg.GCP, cfg.BigQuery, logg)
	rt.Must(boot, "bigquery", err)
	rt.OnClose("bigquery", bqClient.Close)

	dedupe, err := idempotency.NewGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	rt.Must(boot, "event dedupe", err)

	sink, err := analytics.NewSink(bqClient, analytics.SinkConfig{Table: cfg.BigQuery.SalesEventTable})
	rt.Must(boot, "sales sink", err)

	consumer, err := analytics.NewConsumer(analytics.ConsumerParams{
		Receiver: pubsubClient.Subscriber(cfg.PubSub.AnalyticsSubscription),
		Rows:     sink,
		Dedupe:   dedupe,
		Logger:   logg,
		Metrics:  metrics.NewAnalyticsMetrics(prometheus.DefaultRegisterer),
	})
	rt.Must(boot, "analytics consumer", err)

	ctx, stop := rt.SignalContext()
	defer stop()
	logg.Info(ctx, "analytics worker ready")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "analytics receive loop", err)
	}
	logg.Info(ctx, "analytics worker stopped")
}
