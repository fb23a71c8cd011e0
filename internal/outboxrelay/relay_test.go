package outboxrelay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
)

type stubDB struct {
	txCalls int
}

func (s *stubDB) Ping(context.Context) error { return nil }

func (s *stubDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	s.txCalls++
	return fn(nil)
}

type stubBroker struct{}

func (stubBroker) Ping(context.Context) error { return nil }

type stubRows struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (s *stubRows) CountPending(context.Context, int) (int64, error) {
	return int64(len(s.rows) - len(s.published)), nil
}

func (s *stubRows) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *stubRows) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubRows) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubRows) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	s.terminal = append(s.terminal, id)
	return nil
}

type stubDLQ struct {
	entries []models.OutboxDLQ
}

func (s *stubDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	s.entries = append(s.entries, entry)
	return nil
}

type stubPublisher struct {
	err  error
	msgs []*gcppubsub.Message
}

func (s *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	s.msgs = append(s.msgs, msg)
	if s.err != nil {
		return "", s.err
	}
	return "srv-1", nil
}

type stubSource map[string]*stubPublisher

func (s stubSource) Publisher(topic string) Publisher {
	pub, ok := s[topic]
	if !ok {
		return nil
	}
	return pub
}

type relayFixture struct {
	relay  *Relay
	rows   *stubRows
	dlq    *stubDLQ
	orders *stubPublisher
	reg    *prometheus.Registry
}

func newFixture(t *testing.T, rows []models.OutboxEvent, publishErr error, maxAttempts int) relayFixture {
	t.Helper()
	routes, err := NewRoutes(config.PubSubConfig{
		OrdersTopic:       "orders",
		NotificationTopic: "notifications",
		AnalyticsTopic:    "analytics",
	})
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	f := relayFixture{
		rows:   &stubRows{rows: rows},
		dlq:    &stubDLQ{},
		orders: &stubPublisher{err: publishErr},
		reg:    prometheus.NewRegistry(),
	}
	f.relay, err = New(Params{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         &stubDB{},
		Broker:     stubBroker{},
		Rows:       f.rows,
		DeadLetter: f.dlq,
		Routes:     routes,
		Publishers: stubSource{"orders": f.orders},
		Metrics:    metrics.NewOutboxMetrics(f.reg),
		Config:     config.OutboxConfig{BatchSize: 10, MaxAttempts: maxAttempts},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func orderCreatedRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(payloads.ProcurementOrderCreatedEvent{
		OrderID:       uuid.New(),
		SupplierIDs:   []uuid.UUID{uuid.New()},
		PaymentMethod: enums.PaymentMethodSlip,
		TotalCost:     decimal.NewFromInt(1200),
		DiscountTotal: decimal.Zero,
		Currency:      "lkr",
	})
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-" + uuid.NewString(),
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateProcurementOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC),
		AttemptCount:  attempts,
	}
}

func TestDrainPublishesRows(t *testing.T) {
	row := orderCreatedRow(t, 0)
	f := newFixture(t, []models.OutboxEvent{row}, nil, 5)

	stats, err := f.relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Published != 1 || stats.Total() != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(f.rows.published) != 1 || f.rows.published[0] != row.ID {
		t.Fatalf("row not marked published: %v", f.rows.published)
	}
	if len(f.orders.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(f.orders.msgs))
	}
	attrs := f.orders.msgs[0].Attributes
	if attrs["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attr %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != row.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attr %q", attrs["aggregate_id"])
	}
	if attrs["event_id"] == "" {
		t.Fatal("expected event_id attribute")
	}
	if got := deliveries(t, f.reg, "orders", "published"); got != 1 {
		t.Fatalf("expected published counter 1, got %v", got)
	}
}

func TestDrainRetriesTransientFailure(t *testing.T) {
	row := orderCreatedRow(t, 1)
	f := newFixture(t, []models.OutboxEvent{row}, errors.New("deadline exceeded"), 5)

	stats, err := f.relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Retried != 1 {
		t.Fatalf("expected retry, got %+v", stats)
	}
	if len(f.rows.failed) != 1 || len(f.dlq.entries) != 0 {
		t.Fatalf("expected failure mark only, failed=%v dlq=%v", f.rows.failed, f.dlq.entries)
	}
}

func TestDrainDeadLettersAtMaxAttempts(t *testing.T) {
	row := orderCreatedRow(t, 4)
	f := newFixture(t, []models.OutboxEvent{row}, errors.New("unavailable"), 5)

	stats, err := f.relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.DeadLettered != 1 {
		t.Fatalf("expected dead letter, got %+v", stats)
	}
	if len(f.dlq.entries) != 1 {
		t.Fatalf("expected dlq entry, got %d", len(f.dlq.entries))
	}
	entry := f.dlq.entries[0]
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected reason %s", entry.ErrorReason)
	}
	if entry.AttemptCount != 5 || entry.EventID != row.ID {
		t.Fatalf("unexpected dlq entry %+v", entry)
	}
	if len(f.rows.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %v", f.rows.terminal)
	}
}

func TestDrainDeadLettersUndecodableRow(t *testing.T) {
	row := orderCreatedRow(t, 0)
	row.Payload = json.RawMessage(`{"version":1,"eventId":"evt-x","data":null}`)
	f := newFixture(t, []models.OutboxEvent{row}, nil, 5)

	stats, err := f.relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.DeadLettered != 1 {
		t.Fatalf("expected dead letter, got %+v", stats)
	}
	if f.dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected reason %s", f.dlq.entries[0].ErrorReason)
	}
	if len(f.orders.msgs) != 0 {
		t.Fatal("undecodable row must not be published")
	}
}

func TestDrainDeadLettersNonRetryablePublishError(t *testing.T) {
	row := orderCreatedRow(t, 0)
	f := newFixture(t, []models.OutboxEvent{row}, status.Error(codes.InvalidArgument, "message too large"), 5)

	stats, err := f.relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.DeadLettered != 1 || f.dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dead letter, got %+v", stats)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Params{}); err == nil {
		t.Fatal("expected error for empty params")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	f := newFixture(t, nil, nil, 0)
	if f.relay.maxAttempts != defaultMaxAttempts {
		t.Fatalf("expected default max attempts, got %d", f.relay.maxAttempts)
	}
	if f.relay.poll != defaultPollInterval {
		t.Fatalf("expected default poll interval, got %v", f.relay.poll)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil, nil, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.relay.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRefreshBacklogThrottles(t *testing.T) {
	f := newFixture(t, []models.OutboxEvent{orderCreatedRow(t, 0), orderCreatedRow(t, 0)}, nil, 5)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.relay.now = func() time.Time { return now }

	f.relay.refreshBacklog(context.Background())
	if got := backlog(t, f.reg); got != 2 {
		t.Fatalf("backlog = %v, want 2", got)
	}

	f.rows.published = append(f.rows.published, uuid.New())
	now = now.Add(backlogEvery / 2)
	f.relay.refreshBacklog(context.Background())
	if got := backlog(t, f.reg); got != 2 {
		t.Fatalf("backlog refreshed too early: %v", got)
	}

	now = now.Add(backlogEvery)
	f.relay.refreshBacklog(context.Background())
	if got := backlog(t, f.reg); got != 1 {
		t.Fatalf("backlog = %v, want 1", got)
	}
}

func backlog(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "outbox_pending_rows" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func deliveries(t *testing.T, reg *prometheus.Registry, topic, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "outbox_deliveries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m, "topic", topic) && hasLabel(m, "outcome", outcome) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
