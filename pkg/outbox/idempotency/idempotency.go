// Package idempotency claims side effects once per key using Redis SET NX.
//
// Event consumers claim `ty:idempotency:evt:processed:<consumer>:<event_id>`;
// tuple keys land under `ty:idempotency:dedupe:<scope>:<a>:<b>...`.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/redis"
)

var ErrInvalidKey = errors.New("invalid idempotency key")

// Key names one side effect. Build it with Event or Tuple.
type Key struct {
	scope string
	id    string
}

func (k Key) String() string { return k.scope + ":" + k.id }

// Event keys a consumer's handling of one outbox event.
func Event(consumer string, eventID uuid.UUID) (Key, error) {
	switch {
	case strings.TrimSpace(consumer) == "":
		return Key{}, errors.Join(ErrInvalidKey, errors.New("consumer name is required"))
	case eventID == uuid.Nil:
		return Key{}, errors.Join(ErrInvalidKey, errors.New("event id is required"))
	}
	return Key{scope: "evt:processed:" + consumer, id: eventID.String()}, nil
}

// Tuple keys a side effect on an ordered tuple such as order, supplier and action.
func Tuple(scope string, parts ...string) (Key, error) {
	if strings.TrimSpace(scope) == "" {
		return Key{}, errors.Join(ErrInvalidKey, errors.New("scope is required"))
	}
	if len(parts) == 0 {
		return Key{}, errors.Join(ErrInvalidKey, errors.New("tuple parts are required"))
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Key{}, errors.Join(ErrInvalidKey, errors.New("tuple parts must be non-empty"))
		}
	}
	return Key{scope: "dedupe:" + scope, id: strings.Join(parts, ":")}, nil
}

// Guard holds claims for ttl; zero means they never expire.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim reports true when the caller is first to claim k.
func (g *Guard) Claim(ctx context.Context, k Key) (bool, error) {
	if k.scope == "" {
		return false, ErrInvalidKey
	}
	return g.store.SetNX(ctx, g.store.IdempotencyKey(k.scope, k.id), "1", g.ttl)
}

// Release drops a claim so the side effect may run again.
func (g *Guard) Release(ctx context.Context, k Key) error {
	if k.scope == "" {
		return ErrInvalidKey
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(k.scope, k.id))
}
