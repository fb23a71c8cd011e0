package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/api/middleware"
	"github.com/angelmondragon/toolyard-backend/api/responses"
	"github.com/angelmondragon/toolyard-backend/api/validators"
	"github.com/angelmondragon/toolyard-backend/internal/discounts"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

type createDiscountRequest struct {
	SupplierID      uuid.UUID       `json:"supplierId" validate:"required"`
	ProductID       uuid.UUID       `json:"productId" validate:"required"`
	MinQuantity     int             `json:"minQuantity" validate:"required,min=1"`
	DiscountPercent decimal.Decimal `json:"discountPercent" validate:"gt=0,lte=100"`
}

func DiscountCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createDiscountRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, discounts.CreateInput{
			SupplierID:      req.SupplierID,
			ProductID:       req.ProductID,
			MinQuantity:     req.MinQuantity,
			DiscountPercent: req.DiscountPercent,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func DiscountList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.QueryUUID(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if supplierID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "supplierId is required").
				WithDetails(map[string]any{"field": "supplierId"}))
			return
		}

		rows, err := svc.ListBySupplier(r.Context(), actor, *supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
