package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/toolyard-backend/internal/outboxrelay"
	"github.com/angelmondragon/toolyard-backend/pkg/bootstrap"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/pubsub"
)

func main() {
	rt := bootstrap.Start("outbox-publisher")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	boot := context.Background()

	dbClient := rt.Database(boot)

	pubsubClient, err := pubsub.NewClient(boot, cfg.GCP, pubsub.PublisherRequirements(cfg.PubSub), logg)
	rt.Must(boot, "pubsub", err)
	rt.OnClose("pubsub", pubsubClient.Close)

	routes, err := outboxrelay.NewRoutes(cfg.PubSub)
	rt.Must(boot, "outbox routes", err)

	publishers := outboxrelay.NewTopicPublishers(pubsubClient)
	rt.OnClose("topic publishers", func() error {
		publishers.Stop()
		return nil
	})

	relay, err := outboxrelay.New(outboxrelay.Params{
		Logger:     logg,
		DB:         dbClient,
		Broker:     pubsubClient,
		Rows:       outbox.NewRepository(dbClient.DB()),
		DeadLetter: outbox.NewDLQRepository(),
		Routes:     routes,
		Publishers: publishers,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Config:     cfg.Outbox,
	})
	rt.Must(boot, "outbox relay", err)

	ctx, stop := rt.SignalContext()
	defer stop()
	logg.Info(ctx, "starting outbox publisher")

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "outbox relay loop", err)
	}
	logg.Info(ctx, "outbox publisher stopped")
}
