// Package analytics consumes sale events from Pub/Sub and streams them into
// the BigQuery sales table.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
)

var (
	// ErrMalformed marks messages that can never be decoded.
	ErrMalformed = errors.New("malformed analytics message")
	// ErrUnsupported marks well-formed events the warehouse does not record.
	ErrUnsupported = errors.New("unsupported analytics event")
)

// Event is a decoded outbox message as published by the relay.
type Event struct {
	ID            uuid.UUID
	Type          enums.AnalyticsEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	OccurredAt    time.Time
	Data          json.RawMessage
}

// Decode reads the outbox payload envelope from data and the routing fields
// from the message attributes. The envelope's event id and occurred_at win
// over the attributes; created_at is the fallback timestamp.
func Decode(data []byte, attrs map[string]string) (Event, error) {
	attr := func(k string) string { return strings.TrimSpace(attrs[k]) }

	env, err := outbox.DecodeEnvelope(data)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	typ, err := enums.ParseAnalyticsEventType(attr("event_type"))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	aggType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	aggID, err := uuid.Parse(attr("aggregate_id"))
	if err != nil {
		return Event{}, fmt.Errorf("%w: aggregate_id: %v", ErrMalformed, err)
	}

	rawID := strings.TrimSpace(env.EventID)
	if rawID == "" {
		rawID = attr("event_id")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event_id %q", ErrMalformed, rawID)
	}

	occurred := env.OccurredAt
	if occurred.IsZero() {
		occurred, _ = time.Parse(time.RFC3339Nano, attr("created_at"))
	}

	return Event{
		ID:            id,
		Type:          typ,
		AggregateType: aggType,
		AggregateID:   aggID,
		OccurredAt:    occurred.UTC(),
		Data:          env.Data,
	}, nil
}
