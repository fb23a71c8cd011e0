package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/api/middleware"
	"github.com/angelmondragon/toolyard-backend/api/responses"
	"github.com/angelmondragon/toolyard-backend/api/validators"
	internalorders "github.com/angelmondragon/toolyard-backend/internal/orders"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/pagination"
)

const maxReasonLength = 500

type createOrderRequest struct {
	Items         []createItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string              `json:"paymentMethod" validate:"required"`
	Currency      string              `json:"currency" validate:"omitempty,len=3"`
	Contact       *string             `json:"contact"`
	Notes         *string             `json:"notes"`
	SlipFileRef   *string             `json:"slipFileRef"`
}

type createItemRequest struct {
	ProductID  uuid.UUID       `json:"productId" validate:"required"`
	SupplierID uuid.UUID       `json:"supplierId" validate:"required"`
	Quantity   int             `json:"quantity" validate:"required,min=1"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
}

type respondRequest struct {
	Action string `json:"action" validate:"required"`
}

type archiveRequest struct {
	Reason string `json:"reason"`
}

// AdminCreate places a procurement order and its payment attempts.
func AdminCreate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(req.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentMethod"))
			return
		}

		input := internalorders.CreateInput{
			Actor:         actor,
			PaymentMethod: method,
			Currency:      req.Currency,
			Contact:       req.Contact,
			Notes:         req.Notes,
			SlipFileRef:   req.SlipFileRef,
			Items:         make([]internalorders.CreateItem, 0, len(req.Items)),
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, internalorders.CreateItem{
				ProductID:  item.ProductID,
				SupplierID: item.SupplierID,
				Quantity:   item.Quantity,
				Price:      item.Price,
			})
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminDetail returns an order with its items and payments.
func AdminDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// AdminCancel archives an order as cancelled.
func AdminCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return archiveHandler(svc, logg, false)
}

// AdminDelete archives an order and removes the live row.
func AdminDelete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return archiveHandler(svc, logg, true)
}

func archiveHandler(svc internalorders.Service, logg *logger.Logger, deleting bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// the body is optional on both verbs
		var req archiveRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSON(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := internalorders.ArchiveInput{
			OrderID: orderID,
			Reason:  validators.Clean(req.Reason, maxReasonLength),
			Actor:   actor,
		}
		archive := svc.Cancel
		if deleting {
			archive = svc.Delete
		}
		archived, err := archive(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, archived)
	}
}

// SupplierRespond applies the caller's accept or decline to their items.
func SupplierRespond(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req respondRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action := enums.SupplierAction(strings.ToLower(strings.TrimSpace(req.Action)))
		if !action.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "action must be accept or decline").
				WithDetails(map[string]any{"field": "action"}))
			return
		}
		respond(w, r, svc, logg, action)
	}
}

// SupplierConfirm is the accept-only alias of SupplierRespond.
func SupplierConfirm(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, svc, logg, enums.SupplierActionAccept)
	}
}

func respond(w http.ResponseWriter, r *http.Request, svc internalorders.Service, logg *logger.Logger, action enums.SupplierAction) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
		return
	}
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	orderID, err := validators.PathUUID(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	result, err := svc.Respond(r.Context(), internalorders.RespondInput{
		OrderID: orderID,
		Action:  action,
		Actor:   actor,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

// SupplierList pages the orders that contain the caller's items.
func SupplierList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForSupplier(r.Context(), actor, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
