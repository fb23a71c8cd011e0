package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/toolyard-backend/api/responses"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// maxEventBytes matches the largest payload Stripe documents for events.
const maxEventBytes = 64 << 10

type EventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// EventClaimer deduplicates redeliveries by event id.
type EventClaimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type SecretSource interface {
	SigningSecret() string
}

type stripeHandler struct {
	events  EventHandler
	secrets SecretSource
	claims  EventClaimer
	logg    *logger.Logger
}

// StripeWebhook verifies the Stripe-Signature header and hands each event to
// events at most once. Failed events release their claim and answer 5xx so
// Stripe redelivers them.
func StripeWebhook(events EventHandler, secrets SecretSource, claims EventClaimer, logg *logger.Logger) http.Handler {
	return &stripeHandler{events: events, secrets: secrets, claims: claims, logg: logg}
}

func (h *stripeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	secret := ""
	if h.secrets != nil {
		secret = h.secrets.SigningSecret()
	}
	if h.events == nil || h.claims == nil || secret == "" {
		responses.WriteError(ctx, h.logg, w, pkgerrors.New(pkgerrors.CodeDependency, "stripe webhooks are not configured"))
		return
	}

	event, err := h.verify(w, r, secret)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}
	if h.logg != nil {
		ctx = h.logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})
	}

	fresh, err := h.claims.Claim(ctx, event.ID)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stripe event"))
		return
	}
	if !fresh {
		h.debug(ctx, "stripe.event_duplicate")
		responses.WriteSuccess(w, nil)
		return
	}

	if err := h.events.HandleEvent(ctx, event); err != nil {
		if relErr := h.claims.Release(context.WithoutCancel(ctx), event.ID); relErr != nil && h.logg != nil {
			h.logg.Error(ctx, "stripe.event_release_failed", relErr)
		}
		responses.WriteError(ctx, h.logg, w, err)
		return
	}
	h.debug(ctx, "stripe.event_applied")
	responses.WriteSuccess(w, nil)
}

func (h *stripeHandler) verify(w http.ResponseWriter, r *http.Request, secret string) (*stripe.Event, error) {
	header := r.Header.Get("Stripe-Signature")
	if header == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Stripe-Signature header missing")
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read event body")
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stripe signature rejected")
	}
	return &event, nil
}

func (h *stripeHandler) debug(ctx context.Context, msg string) {
	if h.logg != nil {
		h.logg.Info(ctx, msg)
	}
}
