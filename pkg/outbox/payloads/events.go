package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// ProcurementOrderCreatedEvent announces a new admin procurement order.
type ProcurementOrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	SupplierIDs   []uuid.UUID         `json:"supplier_ids"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalCost     decimal.Decimal     `json:"total_cost"`
	DiscountTotal decimal.Decimal     `json:"discount_total"`
	Currency      string              `json:"currency"`
}

// ProcurementOrderCanceledEvent is emitted when an order moves to cancelled_orders.
type ProcurementOrderCanceledEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	ArchivedOrderID uuid.UUID `json:"archived_order_id"`
	Reason          string    `json:"reason"`
	CanceledAt      time.Time `json:"canceled_at"`
}

// OrderConfirmedEvent reports that a customer order was confirmed by a paid payment.
type OrderConfirmedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// SaleConfirmedEvent feeds live sales dashboards.
type SaleConfirmedEvent struct {
	OrderID    uuid.UUID            `json:"order_id"`
	PaymentID  *uuid.UUID           `json:"payment_id,omitempty"`
	Channel    enums.PaymentChannel `json:"channel"`
	Amount     decimal.Decimal      `json:"amount"`
	Currency   string               `json:"currency"`
	Units      int                  `json:"units"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// OrderSupplierRespondedEvent records a supplier accept or decline.
type OrderSupplierRespondedEvent struct {
	OrderID    uuid.UUID                    `json:"order_id"`
	SupplierID uuid.UUID                    `json:"supplier_id"`
	Action     enums.SupplierAction         `json:"action"`
	Status     enums.ProcurementOrderStatus `json:"status"`
	ItemCount  int                          `json:"item_count"`
}

// OrderSupplierConfirmedEvent is the realtime signal for a supplier acceptance.
type OrderSupplierConfirmedEvent struct {
	OrderID    uuid.UUID       `json:"orderId"`
	SupplierID uuid.UUID       `json:"supplierId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Timestamp  time.Time       `json:"timestamp"`
}

// PaymentStatusChangedEvent is emitted for every persisted payment status change.
type PaymentStatusChangedEvent struct {
	PaymentID  uuid.UUID           `json:"payment_id"`
	OrderID    *uuid.UUID          `json:"order_id,omitempty"`
	OrderKind  enums.OrderKind     `json:"order_kind"`
	SupplierID *uuid.UUID          `json:"supplier_id,omitempty"`
	Method     enums.PaymentMethod `json:"method"`
	From       enums.PaymentStatus `json:"from"`
	To         enums.PaymentStatus `json:"to"`
}

// NotificationRequestedEvent asks the notification sink to alert an audience.
type NotificationRequestedEvent struct {
	Type       enums.NotificationType `json:"type"`
	Audience   enums.ActorRole        `json:"audience"`
	OrderID    uuid.UUID              `json:"order_id"`
	SupplierID *uuid.UUID             `json:"supplier_id,omitempty"`
	Action     string                 `json:"action,omitempty"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
}
