package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

type intentTransitioner interface {
	TransitionByIntent(ctx context.Context, intentID string, status enums.PaymentStatus) (*models.Payment, error)
}

type ServiceParams struct {
	Payments intentTransitioner
	Logger   *logger.Logger
}

// Service applies PaymentIntent lifecycle events to payment records.
type Service struct {
	payments intentTransitioner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

// StatusForEvent maps a PaymentIntent event type to the payment status it
// reports. ok is false for events this service ignores. processing leaves the
// payment pending so a later cancel or failure still applies.
func StatusForEvent(t stripe.EventType) (enums.PaymentStatus, bool) {
	switch t {
	case stripe.EventTypePaymentIntentSucceeded:
		return enums.PaymentStatusPaid, true
	case stripe.EventTypePaymentIntentPaymentFailed:
		return enums.PaymentStatusFailed, true
	case stripe.EventTypePaymentIntentRequiresAction:
		return enums.PaymentStatusRequiresAction, true
	case stripe.EventTypePaymentIntentCanceled:
		return enums.PaymentStatusCanceled, true
	}
	return "", false
}

// HandleEvent updates the payment matching the event's intent id. Unknown
// intents and disallowed transitions are acknowledged so Stripe stops
// retrying; storage failures are returned.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	status, ok := StatusForEvent(event.Type)
	if !ok {
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
		"payment_intent_id": intent.ID,
	})

	payment, err := s.payments.TransitionByIntent(ctx, intent.ID, status)
	switch {
	case err == nil:
		s.logg.Info(ctx, fmt.Sprintf("payment %s is %s", payment.ID, payment.Status))
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.logg.Warn(ctx, "no payment for payment intent")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition):
		s.logg.Warn(ctx, fmt.Sprintf("ignored out-of-order payment event: %v", err))
		return nil
	default:
		return err
	}
}
