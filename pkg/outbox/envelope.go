package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// ActorRef names the caller that caused an event. Cron and webhook driven
// events carry none.
type ActorRef struct {
	UserID     uuid.UUID  `json:"userId"`
	SupplierID *uuid.UUID `json:"supplierId,omitempty"`
	Role       string     `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and forwarded
// verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// ErrEmptyData marks an envelope that decoded but carries no payload.
var ErrEmptyData = errors.New("outbox: envelope has no data")

// DecodeEnvelope parses a stored or published envelope and trims its data.
// A missing or null data field yields ErrEmptyData.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("outbox: decode envelope: %w", err)
	}
	env.Data = bytes.TrimSpace(env.Data)
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return env, ErrEmptyData
	}
	return env, nil
}

// DomainEvent is what services hand to Emit. Data is any JSON-encodable
// payload from pkg/outbox/payloads.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}
