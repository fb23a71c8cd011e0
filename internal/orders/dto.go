package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// CreateItem is one requested line of an admin procurement order.
type CreateItem struct {
	ProductID  uuid.UUID
	SupplierID uuid.UUID
	Quantity   int
	Price      decimal.Decimal
}

// CreateInput carries everything needed to place a procurement order.
type CreateInput struct {
	Actor         authz.Actor
	Items         []CreateItem
	PaymentMethod enums.PaymentMethod
	Currency      string
	Contact       *string
	Notes         *string
	SlipFileRef   *string
}

// CreateResult is returned to the admin after placing an order.
type CreateResult struct {
	Order        *models.ProcurementOrder `json:"order"`
	Payments     []models.Payment         `json:"payments"`
	ClientSecret string                   `json:"clientSecret,omitempty"`
}

// RespondInput is a supplier's accept or decline.
type RespondInput struct {
	OrderID uuid.UUID
	Action  enums.SupplierAction
	Actor   authz.Actor
}

// RespondResult reports the order after a supplier response.
type RespondResult struct {
	Order   *models.ProcurementOrder `json:"order"`
	Action  enums.SupplierAction     `json:"action"`
	Changed bool                     `json:"changed"`
}

// ArchiveInput identifies an order to cancel or delete.
type ArchiveInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   authz.Actor
}

// OrderDetail is the admin view of an order.
type OrderDetail struct {
	Order    *models.ProcurementOrder `json:"order"`
	Payments []models.Payment         `json:"payments"`
}

// SupplierOrderList is one page of the supplier's orders.
type SupplierOrderList struct {
	Orders []models.ProcurementOrder `json:"orders"`
	Cursor string                    `json:"cursor"`
}
