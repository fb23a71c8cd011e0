package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// ArchivedOrder is the normalized snapshot written to cancelled_orders when a
// procurement order is cancelled or deleted.
type ArchivedOrder struct {
	ID              uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OriginalOrderID uuid.UUID                    `gorm:"column:original_order_id;type:uuid;not null"`
	Supplier        string                       `gorm:"column:supplier;type:text;not null"`
	SupplierIDs     pq.StringArray               `gorm:"column:supplier_ids;type:text[]"`
	Items           []ArchivedOrderItem          `gorm:"column:items;type:jsonb;serializer:json"`
	PreviousStatus  enums.ProcurementOrderStatus `gorm:"column:previous_status;type:text;not null"`
	PaymentMethod   enums.PaymentMethod          `gorm:"column:payment_method;type:text;not null"`
	Currency        string                       `gorm:"column:currency;type:text;not null"`
	DiscountTotal   decimal.Decimal              `gorm:"column:discount_total;type:numeric(14,2);not null"`
	TotalCost       decimal.Decimal              `gorm:"column:total_cost;type:numeric(14,2);not null"`
	Reason          string                       `gorm:"column:reason;type:text;not null"`
	CancelledBy     uuid.UUID                    `gorm:"column:cancelled_by;type:uuid;not null"`
	OrderCreatedAt  time.Time                    `gorm:"column:order_created_at;not null"`
	CancelledAt     time.Time                    `gorm:"column:cancelled_at;not null"`
	CreatedAt       time.Time                    `gorm:"column:created_at;autoCreateTime"`
}

// TableName binds ArchivedOrder to the cancelled_orders table.
func (ArchivedOrder) TableName() string {
	return "cancelled_orders"
}

// ArchivedOrderItem is one line of an archived order.
type ArchivedOrderItem struct {
	ProductID       uuid.UUID                `json:"productId"`
	SupplierID      uuid.UUID                `json:"supplierId"`
	Quantity        int                      `json:"quantity"`
	UnitPrice       decimal.Decimal          `json:"unitPrice"`
	LineSubtotal    decimal.Decimal          `json:"lineSubtotal"`
	DiscountPercent decimal.Decimal          `json:"discountPercent"`
	DiscountValue   decimal.Decimal          `json:"discountValue"`
	LineTotal       decimal.Decimal          `json:"lineTotal"`
	SupplierStatus  enums.SupplierItemStatus `json:"supplierStatus"`
}
