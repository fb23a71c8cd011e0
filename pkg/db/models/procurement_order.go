package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// ProcurementOrder is an admin-placed purchase order spanning one or more suppliers.
type ProcurementOrder struct {
	ID            uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Status        enums.ProcurementOrderStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	PaymentMethod enums.PaymentMethod          `gorm:"column:payment_method;type:text;not null"`
	Currency      string                       `gorm:"column:currency;type:text;not null"`
	Subtotal      decimal.Decimal              `gorm:"column:subtotal;type:numeric(14,2);not null"`
	DiscountTotal decimal.Decimal              `gorm:"column:discount_total;type:numeric(14,2);not null;default:0"`
	TotalCost     decimal.Decimal              `gorm:"column:total_cost;type:numeric(14,2);not null"`
	Contact       *string                      `gorm:"column:contact"`
	Notes         *string                      `gorm:"column:notes"`
	CreatedBy     uuid.UUID                    `gorm:"column:created_by;type:uuid;not null"`
	Items         []ProcurementOrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

// ProcurementOrderItem carries the immutable pricing snapshot of one line and
// the owning supplier's response.
type ProcurementOrderItem struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID                `gorm:"column:order_id;type:uuid;not null"`
	Position        int                      `gorm:"column:position;not null"`
	ProductID       uuid.UUID                `gorm:"column:product_id;type:uuid;not null"`
	SupplierID      uuid.UUID                `gorm:"column:supplier_id;type:uuid;not null"`
	Quantity        int                      `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal          `gorm:"column:unit_price;type:numeric(14,2);not null"`
	LineSubtotal    decimal.Decimal          `gorm:"column:line_subtotal;type:numeric(14,2);not null"`
	DiscountPercent decimal.Decimal          `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	DiscountValue   decimal.Decimal          `gorm:"column:discount_value;type:numeric(14,2);not null;default:0"`
	LineTotal       decimal.Decimal          `gorm:"column:line_total;type:numeric(14,2);not null"`
	SupplierStatus  enums.SupplierItemStatus `gorm:"column:supplier_status;type:text;not null;default:'Pending'"`
	RespondedAt     *time.Time               `gorm:"column:responded_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// SupplierIDs returns the distinct suppliers on the order in item order.
func (o ProcurementOrder) SupplierIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	out := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.SupplierID]; ok {
			continue
		}
		seen[item.SupplierID] = struct{}{}
		out = append(out, item.SupplierID)
	}
	return out
}
