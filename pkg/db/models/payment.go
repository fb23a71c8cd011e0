package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/types"
)

// Payment is one payment attempt against an order. Amount is in the processor's
// minor unit for stripe payments and in major units for slip payments.
type Payment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	OrderKind             enums.OrderKind     `gorm:"column:order_kind;type:text;not null"`
	SupplierID            *uuid.UUID          `gorm:"column:supplier_id;type:uuid"`
	Method                enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status                enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency              string              `gorm:"column:currency;type:text;not null"`
	StripeSessionID       *string             `gorm:"column:stripe_session_id"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id"`
	SlipFileRef           *string             `gorm:"column:slip_file_ref"`
	SlipUploadedBy        *uuid.UUID          `gorm:"column:slip_uploaded_by;type:uuid"`
	Lines                 []PaymentLine       `gorm:"column:lines;type:jsonb;serializer:json"`
	Metadata              types.JSONMap       `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentLine is a per-product share of a payment, in the payment's units.
type PaymentLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}
