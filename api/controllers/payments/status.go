package payments

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/api/responses"
	"github.com/angelmondragon/toolyard-backend/api/validators"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// StatusUpdater is the slice of the payment service these handlers need.
type StatusUpdater interface {
	TransitionStatus(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
	TransitionByIntent(ctx context.Context, intentID string, status enums.PaymentStatus) (*models.Payment, error)
}

type intentStatusRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	Status          string `json:"status" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// StripeUpdateStatus is the manual fallback for a missed webhook: it applies
// a status to the payment holding the given PaymentIntent id.
func StripeUpdateStatus(svc StatusUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		var req intentStatusRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.TransitionByIntent(r.Context(), strings.TrimSpace(req.PaymentIntentID), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// AdminUpdateStatus edits one payment's status through the transition table.
func AdminUpdateStatus(svc StatusUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		paymentID, err := validators.PathUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req statusRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.TransitionStatus(r.Context(), paymentID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func parseStatus(raw string) (enums.PaymentStatus, error) {
	status, err := enums.ParsePaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]any{"field": "status"})
	}
	return status, nil
}
