package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// CustomerOrder is a retail order placed through checkout.
type CustomerOrder struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID                 `gorm:"column:customer_id;type:uuid;not null"`
	Status         enums.CustomerOrderStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	PaymentChannel enums.PaymentChannel      `gorm:"column:payment_channel;type:text;not null"`
	Currency       string                    `gorm:"column:currency;type:text;not null"`
	TotalAmount    decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Items          []CustomerOrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt    *time.Time                `gorm:"column:confirmed_at"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// CustomerOrderItem is one retail line.
type CustomerOrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;type:text;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
