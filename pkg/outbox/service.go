package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

const defaultEventVersion = 1

// Service writes domain events into outbox_events inside the caller's
// transaction, so an event exists if and only if its state change committed.
type Service struct {
	repo  *Repository
	logg  *logger.Logger
	clock func() time.Time
	newID func() uuid.UUID
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, clock: time.Now, newID: uuid.New}
}

// Encode builds the outbox row for event without touching the database.
func (s *Service) Encode(event DomainEvent) (models.OutboxEvent, PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("outbox: encode %s data: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    s.newID().String(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = defaultEventVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = s.clock()
	}
	env.OccurredAt = env.OccurredAt.UTC()

	payload, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("outbox: encode envelope: %w", err)
	}
	return models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, env, nil
}

// Emit appends event to the outbox within tx.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errNoTx
	}
	row, env, err := s.Encode(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return fmt.Errorf("outbox: insert %s: %w", event.EventType, err)
	}
	s.logQueued(ctx, event, env, "outbox event queued")
	return nil
}

// EmitIfNotExists appends event unless one with the same type already exists
// for the aggregate. Races lose quietly against the partial unique index.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errNoTx
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil {
		return fmt.Errorf("outbox: lookup %s: %w", event.EventType, err)
	}
	if exists {
		return nil
	}
	row, env, err := s.Encode(event)
	if err != nil {
		return err
	}
	inserted, err := s.repo.InsertOnce(tx, row)
	if err != nil {
		return fmt.Errorf("outbox: insert %s: %w", event.EventType, err)
	}
	if inserted {
		s.logQueued(ctx, event, env, "outbox event queued once")
	}
	return nil
}

func (s *Service) logQueued(ctx context.Context, event DomainEvent, env PayloadEnvelope, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		logger.FieldEventID: env.EventID,
		"event_type":        event.EventType,
		"aggregate_type":    event.AggregateType,
		"aggregate_id":      event.AggregateID.String(),
	}), msg)
}
