package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/toolyard-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/toolyard-backend/pkg/redis"
)

const eventScope = "stripe-webhook"

// EventGuard claims Stripe event ids so redeliveries are acknowledged without
// reapplying the status change. Test and live events never share a key.
type EventGuard struct {
	guard *idempotency.Guard
	env   string
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration, env string) (*EventGuard, error) {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return nil, errors.New("stripe environment is required")
	}
	guard, err := idempotency.NewGuard(store, ttl)
	if err != nil {
		return nil, err
	}
	return &EventGuard{guard: guard, env: env}, nil
}

// Claim is false when an earlier delivery already owns the event.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	key, err := idempotency.Tuple(eventScope, g.env, strings.TrimSpace(eventID))
	if err != nil {
		return false, err
	}
	claimed, err := g.guard.Claim(ctx, key)
	if err != nil {
		return false, fmt.Errorf("claim stripe event: %w", err)
	}
	return claimed, nil
}

// Release lets Stripe's next retry run the handler again.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	key, err := idempotency.Tuple(eventScope, g.env, strings.TrimSpace(eventID))
	if err != nil {
		return err
	}
	return g.guard.Release(ctx, key)
}
