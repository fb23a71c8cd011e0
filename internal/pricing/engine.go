// Package pricing computes per-line and order totals for procurement orders.
package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/internal/discounts"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

type discountLookup interface {
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]models.SupplierDiscount, error)
}

// RawItem is an unpriced line as submitted by the admin.
type RawItem struct {
	ProductID  uuid.UUID
	SupplierID uuid.UUID
	Quantity   int
	UnitPrice  decimal.Decimal
}

// PricedItem is the immutable pricing snapshot of one line.
type PricedItem struct {
	ProductID       uuid.UUID       `json:"productId"`
	SupplierID      uuid.UUID       `json:"supplierId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	LineSubtotal    decimal.Decimal `json:"lineSubtotal"`
	DiscountID      *uuid.UUID      `json:"discountId,omitempty"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountValue   decimal.Decimal `json:"discountValue"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

// PricedOrder holds the lines in input order plus the summed totals.
type PricedOrder struct {
	Items         []PricedItem    `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	NetTotal      decimal.Decimal `json:"netTotal"`
}

// SupplierTotals returns each supplier's net share, keyed by supplier id.
func (p *PricedOrder) SupplierTotals() map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range p.Items {
		out[item.SupplierID] = out[item.SupplierID].Add(item.LineTotal)
	}
	return out
}

// Engine prices orders against the current supplier offers.
type Engine struct {
	offers discountLookup
}

// NewEngine builds a pricing engine.
func NewEngine(offers discountLookup) (*Engine, error) {
	if offers == nil {
		return nil, fmt.Errorf("discount lookup required")
	}
	return &Engine{offers: offers}, nil
}

// PriceOrder validates and prices every line. Each line value is rounded to two
// decimals before being summed so the totals match the stored snapshots.
func (e *Engine) PriceOrder(ctx context.Context, items []RawItem) (*PricedOrder, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	productIDs := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, item := range items {
		if err := validateItem(i, item); err != nil {
			return nil, err
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			productIDs = append(productIDs, item.ProductID)
		}
	}

	offers, err := e.offers.ListByProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount offers")
	}

	out := &PricedOrder{
		Items:         make([]PricedItem, 0, len(items)),
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		NetTotal:      decimal.Zero,
	}
	for _, item := range items {
		candidates := discounts.ForSupplier(offers[item.ProductID], item.SupplierID)
		priced := PriceLine(item, discounts.Resolve(item.Quantity, candidates))
		out.Items = append(out.Items, priced)
		out.Subtotal = out.Subtotal.Add(priced.LineSubtotal)
		out.DiscountTotal = out.DiscountTotal.Add(priced.DiscountValue)
		out.NetTotal = out.NetTotal.Add(priced.LineTotal)
	}
	return out, nil
}

// PriceLine applies an optional offer to a single line.
func PriceLine(item RawItem, offer *models.SupplierDiscount) PricedItem {
	subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
	priced := PricedItem{
		ProductID:       item.ProductID,
		SupplierID:      item.SupplierID,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		LineSubtotal:    subtotal,
		DiscountPercent: decimal.Zero,
		DiscountValue:   decimal.Zero,
	}
	if offer != nil {
		id := offer.ID
		priced.DiscountID = &id
		priced.DiscountPercent = offer.DiscountPercent
		priced.DiscountValue = subtotal.Mul(offer.DiscountPercent).Div(hundred).Round(2)
	}
	total := subtotal.Sub(priced.DiscountValue)
	if total.IsNegative() {
		total = decimal.Zero
	}
	priced.LineTotal = total
	return priced
}

func validateItem(index int, item RawItem) error {
	details := map[string]any{"index": index}
	switch {
	case item.ProductID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "item productId is required").WithDetails(details)
	case item.SupplierID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "item supplierId is required").WithDetails(details)
	case item.Quantity <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").WithDetails(details)
	case item.UnitPrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative").WithDetails(details)
	}
	return nil
}
