// Package outboxrelay drains committed outbox rows onto Pub/Sub topics.
// Delivery is at-least-once; consumers dedupe on the envelope event id.
package outboxrelay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
	backlogEvery          = 30 * time.Second
)

// Outcome is what happened to one outbox row in a drain pass.
type Outcome string

const (
	OutcomePublished    Outcome = "published"
	OutcomeRetry        Outcome = "retry"
	OutcomeDeadLettered Outcome = "dead_lettered"
)

type txDB interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
}

type rowStore interface {
	CountPending(ctx context.Context, maxAttempts int) (int64, error)
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (Resolved, error)
}

// Publisher sends one message and waits for the server ack.
type Publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

// PublisherSource hands out the publisher for a topic, or nil when the topic
// is not configured.
type PublisherSource interface {
	Publisher(topic string) Publisher
}

// Params wires a Relay. Metrics may be nil.
type Params struct {
	Logger     *logger.Logger
	DB         txDB
	Broker     pinger
	Rows       rowStore
	DeadLetter deadLetterStore
	Routes     resolver
	Publishers PublisherSource
	Metrics    *metrics.OutboxMetrics
	Config     config.OutboxConfig
}

// Stats summarizes one drain pass.
type Stats struct {
	Published    int
	Retried      int
	DeadLettered int
}

// Total is the number of rows handled.
func (s Stats) Total() int {
	return s.Published + s.Retried + s.DeadLettered
}

// Relay polls the outbox and publishes rows to their registered topics.
type Relay struct {
	logg        *logger.Logger
	db          txDB
	broker      pinger
	rows        rowStore
	dlq         deadLetterStore
	routes      resolver
	publishers  PublisherSource
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
	backlogAt   time.Time
}

// New validates params and applies config defaults.
func New(params Params) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("pubsub client is required")
	case params.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case params.DeadLetter == nil:
		return nil, errors.New("dlq repository is required")
	case params.Routes == nil:
		return nil, errors.New("event routes are required")
	case params.Publishers == nil:
		return nil, errors.New("publisher source is required")
	}

	r := &Relay{
		logg:        params.Logger,
		db:          params.DB,
		broker:      params.Broker,
		rows:        params.Rows,
		dlq:         params.DeadLetter,
		routes:      params.Routes,
		publishers:  params.Publishers,
		metrics:     params.Metrics,
		batchSize:   params.Config.BatchSize,
		maxAttempts: params.Config.MaxAttempts,
		poll:        time.Duration(params.Config.PollIntervalMS) * time.Millisecond,
		now:         time.Now,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.poll <= 0 {
		r.poll = defaultPollInterval
	}
	return r, nil
}

// Run drains until ctx is canceled. Empty passes sleep for the poll interval;
// failing passes back off exponentially up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.broker.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	backoff := r.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats, err := r.Drain(ctx)
		r.refreshBacklog(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox drain failed", err)
			backoff = min(backoff*2, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = r.poll

		if stats.Total() > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(r.poll)); err != nil {
			return err
		}
	}
}

func (r *Relay) refreshBacklog(ctx context.Context) {
	if r.metrics == nil || r.now().Sub(r.backlogAt) < backlogEvery {
		return
	}
	r.backlogAt = r.now()
	n, err := r.rows.CountPending(ctx, r.maxAttempts)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox backlog count failed")
		return
	}
	r.metrics.SetBacklog(n)
}

// Drain handles one batch inside a single transaction so the row locks taken
// by the fetch are held until every row is settled.
func (r *Relay) Drain(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.rows.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		for _, row := range rows {
			d := r.deliver(ctx, row)
			if err := r.settle(ctx, tx, row, d); err != nil {
				return err
			}
			switch d.outcome {
			case OutcomePublished:
				stats.Published++
			case OutcomeRetry:
				stats.Retried++
			case OutcomeDeadLettered:
				stats.DeadLettered++
			}
			r.metrics.IncDelivery(d.topic, string(d.outcome))
		}
		return nil
	})
	return stats, err
}

type delivery struct {
	outcome  Outcome
	topic    string
	eventID  string
	reason   enums.OutboxDLQErrorReason
	cause    error
	serverID string
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) delivery {
	resolved, err := r.routes.Resolve(row)
	if err != nil {
		return delivery{outcome: OutcomeDeadLettered, reason: enums.OutboxDLQReasonNonRetryable, cause: err}
	}
	d := delivery{topic: resolved.Topic, eventID: resolved.Envelope.EventID}

	pub := r.publishers.Publisher(d.topic)
	if pub == nil {
		d.outcome = OutcomeDeadLettered
		d.reason = enums.OutboxDLQReasonNonRetryable
		d.cause = fmt.Errorf("publisher not configured for topic %s", d.topic)
		return d
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	d.serverID, err = pub.Publish(publishCtx, buildMessage(row, resolved))
	if err == nil {
		d.outcome = OutcomePublished
		return d
	}

	d.cause = err
	switch {
	case isPermanent(err):
		d.outcome = OutcomeDeadLettered
		d.reason = enums.OutboxDLQReasonNonRetryable
	case row.AttemptCount+1 >= r.maxAttempts:
		d.outcome = OutcomeDeadLettered
		d.reason = enums.OutboxDLQReasonMaxAttempts
		d.cause = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		d.outcome = OutcomeRetry
	}
	return d
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, d delivery) error {
	logCtx := r.logg.WithFields(ctx, rowFields(row, d))

	switch d.outcome {
	case OutcomePublished:
		if err := r.rows.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.logg.Info(logCtx, "outbox event published")
	case OutcomeRetry:
		r.logg.Warn(r.logg.WithField(logCtx, "error", d.cause.Error()), "outbox publish failed, will retry")
		if err := r.rows.MarkFailedTx(tx, row.ID, d.cause); err != nil {
			return fmt.Errorf("mark failure %s: %w", row.ID, err)
		}
	case OutcomeDeadLettered:
		r.logg.Warn(r.logg.WithField(logCtx, "error", d.cause.Error()), "outbox event dead-lettered")
		if err := r.dlq.InsertTx(tx, row.DeadLetter(d.reason, d.cause, r.now())); err != nil {
			return fmt.Errorf("insert dlq %s: %w", row.ID, err)
		}
		if err := r.rows.MarkTerminalTx(tx, row.ID, d.cause, r.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", row.ID, err)
		}
	}
	return nil
}

func buildMessage(row models.OutboxEvent, resolved Resolved) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func rowFields(row models.OutboxEvent, d delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
		"outcome":        d.outcome,
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.eventID != "" {
		fields["event_id"] = d.eventID
	}
	if d.serverID != "" {
		fields["message_id"] = d.serverID
	}
	if d.reason != "" {
		fields["error_reason"] = d.reason
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func withJitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}
