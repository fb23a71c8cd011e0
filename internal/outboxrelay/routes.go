package outboxrelay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
)

// ErrPermanent marks a row that will never publish no matter how often it is retried.
var ErrPermanent = errors.New("permanent outbox failure")

// Permanent tags err with ErrPermanent.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// isPermanent reports whether a publish error should skip the retry budget.
// Pub/Sub rejects oversized or malformed messages with InvalidArgument.
func isPermanent(err error) bool {
	if errors.Is(err, ErrPermanent) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.InvalidArgument
	}
	return false
}

// Route binds an event type to its aggregate and topic.
type Route struct {
	Aggregate enums.OutboxAggregateType
	Topic     string
	check     func(json.RawMessage) error
}

func route[T any](agg enums.OutboxAggregateType, topic string) Route {
	return Route{
		Aggregate: agg,
		Topic:     topic,
		check: func(data json.RawMessage) error {
			var v T
			return json.Unmarshal(data, &v)
		},
	}
}

// Resolved is a validated outbox row ready to publish.
type Resolved struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
}

// Routes maps every publishable event type to its topic.
type Routes struct {
	byType map[enums.OutboxEventType]Route
}

// NewRoutes builds the route table. Sales signals go to the analytics topic,
// order lifecycle events to the orders topic and alerts to the notification
// topic.
func NewRoutes(cfg config.PubSubConfig) (*Routes, error) {
	for name, topic := range map[string]string{
		"orders":       cfg.OrdersTopic,
		"notification": cfg.NotificationTopic,
		"analytics":    cfg.AnalyticsTopic,
	} {
		if topic == "" {
			return nil, fmt.Errorf("%s topic is required", name)
		}
	}

	return &Routes{byType: map[enums.OutboxEventType]Route{
		enums.EventOrderCreated:           route[payloads.ProcurementOrderCreatedEvent](enums.AggregateProcurementOrder, cfg.OrdersTopic),
		enums.EventOrderCanceled:          route[payloads.ProcurementOrderCanceledEvent](enums.AggregateProcurementOrder, cfg.OrdersTopic),
		enums.EventOrderSupplierResponded: route[payloads.OrderSupplierRespondedEvent](enums.AggregateProcurementOrder, cfg.OrdersTopic),
		enums.EventOrderConfirmed:         route[payloads.OrderConfirmedEvent](enums.AggregateCustomerOrder, cfg.OrdersTopic),
		enums.EventPaymentStatusChanged:   route[payloads.PaymentStatusChangedEvent](enums.AggregatePayment, cfg.OrdersTopic),
		enums.EventSaleConfirmed:          route[payloads.SaleConfirmedEvent](enums.AggregateCustomerOrder, cfg.AnalyticsTopic),
		enums.EventOrderSupplierConfirmed: route[payloads.OrderSupplierConfirmedEvent](enums.AggregateProcurementOrder, cfg.AnalyticsTopic),
		enums.EventNotificationRequested:  route[payloads.NotificationRequestedEvent](enums.AggregateNotification, cfg.NotificationTopic),
	}}, nil
}

// Lookup returns the route for an event type.
func (r *Routes) Lookup(t enums.OutboxEventType) (Route, bool) {
	rt, ok := r.byType[t]
	return rt, ok
}

// Resolve checks the row against its route and decodes the envelope. Every
// failure is permanent.
func (r *Routes) Resolve(row models.OutboxEvent) (Resolved, error) {
	rt, ok := r.byType[row.EventType]
	switch {
	case !ok:
		return Resolved{}, Permanent(fmt.Errorf("unsupported event type %s", row.EventType))
	case rt.Aggregate != row.AggregateType:
		return Resolved{}, Permanent(fmt.Errorf("aggregate mismatch: expected %s got %s", rt.Aggregate, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return Resolved{}, Permanent(errors.New("missing aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return Resolved{}, Permanent(fmt.Errorf("%s: %w", row.EventType, err))
	}
	if err := rt.check(env.Data); err != nil {
		return Resolved{}, Permanent(fmt.Errorf("decode %s payload: %w", row.EventType, err))
	}
	return Resolved{Topic: rt.Topic, Envelope: env}, nil
}
