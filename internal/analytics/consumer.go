package analytics

import (
	"context"
	"errors"

	"cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/idempotency"
)

const consumerName = "analytics"

type Receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type RowWriter interface {
	Write(ctx context.Context, rows ...SalesEventRow) error
}

// Dedupe remembers which event ids this consumer has recorded.
type Dedupe interface {
	Claim(ctx context.Context, key idempotency.Key) (bool, error)
	Release(ctx context.Context, key idempotency.Key) error
}

type ConsumerParams struct {
	Receiver Receiver
	Rows     RowWriter
	Dedupe   Dedupe
	Logger   *logger.Logger
	Metrics  *metrics.AnalyticsMetrics
}

// Consumer acks recorded, duplicate and undecodable messages and nacks the
// rest so Pub/Sub redelivers them.
type Consumer struct {
	recv    Receiver
	rows    RowWriter
	dedupe  Dedupe
	logg    *logger.Logger
	metrics *metrics.AnalyticsMetrics
}

func NewConsumer(p ConsumerParams) (*Consumer, error) {
	switch {
	case p.Receiver == nil:
		return nil, errors.New("analytics consumer: receiver is required")
	case p.Rows == nil:
		return nil, errors.New("analytics consumer: row writer is required")
	case p.Dedupe == nil:
		return nil, errors.New("analytics consumer: dedupe store is required")
	case p.Logger == nil:
		return nil, errors.New("analytics consumer: logger is required")
	}
	return &Consumer{recv: p.Receiver, rows: p.Rows, dedupe: p.Dedupe, logg: p.Logger, metrics: p.Metrics}, nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.recv.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg.ID, msg.Data, msg.Attributes) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether the message should be acked.
func (c *Consumer) handle(ctx context.Context, messageID string, data []byte, attrs map[string]string) bool {
	ctx = c.logg.WithField(ctx, "message_id", messageID)

	ev, err := Decode(data, attrs)
	if err != nil {
		c.drop(ctx, attrs["event_type"], err)
		return true
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id":     ev.ID.String(),
		"event_type":   string(ev.Type),
		"aggregate_id": ev.AggregateID.String(),
	})

	row, err := Project(ev)
	if err != nil {
		c.drop(ctx, string(ev.Type), err)
		return true
	}

	key, err := idempotency.Event(consumerName, ev.ID)
	if err != nil {
		c.drop(ctx, string(ev.Type), err)
		return true
	}
	first, err := c.dedupe.Claim(ctx, key)
	if err != nil {
		c.logg.Error(ctx, "analytics.dedupe_failed", err)
		c.metrics.Count(string(ev.Type), metrics.VerdictRetried)
		return false
	}
	if !first {
		c.logg.Debug(ctx, "analytics.duplicate")
		c.metrics.Count(string(ev.Type), metrics.VerdictDuplicate)
		return true
	}

	if err := c.rows.Write(ctx, row); err != nil {
		c.logg.Error(ctx, "analytics.write_failed", err)
		if relErr := c.dedupe.Release(context.WithoutCancel(ctx), key); relErr != nil {
			c.logg.Error(ctx, "analytics.dedupe_release_failed", relErr)
		}
		c.metrics.Count(string(ev.Type), metrics.VerdictRetried)
		return false
	}
	c.logg.Info(ctx, "analytics.recorded")
	c.metrics.Count(string(ev.Type), metrics.VerdictRecorded)
	return true
}

func (c *Consumer) drop(ctx context.Context, eventType string, err error) {
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "analytics.dropped")
	c.metrics.Count(eventType, metrics.VerdictDropped)
}
