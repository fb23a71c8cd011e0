package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/api/middleware"
	"github.com/angelmondragon/toolyard-backend/api/responses"
	"github.com/angelmondragon/toolyard-backend/api/validators"
	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

const maxItemNameLength = 200

type checkoutRequest struct {
	Channel  string                `json:"channel" validate:"required"`
	Currency string                `json:"currency" validate:"omitempty,len=3"`
	Items    []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

type checkoutItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
}

// Checkout places a customer order and, for card payments, opens the intent.
func Checkout(svc customerorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		channel, err := enums.ParsePaymentChannel(strings.ToLower(strings.TrimSpace(req.Channel)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel").
				WithDetails(map[string]any{"field": "channel"}))
			return
		}

		input := customerorders.CheckoutInput{
			Actor:    actor,
			Channel:  channel,
			Currency: req.Currency,
			Items:    make([]customerorders.CheckoutItem, 0, len(req.Items)),
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, customerorders.CheckoutItem{
				ProductID: item.ProductID,
				Name:      validators.Clean(item.Name, maxItemNameLength),
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}

		result, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
