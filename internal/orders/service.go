// Package orders implements admin procurement orders and the per-supplier
// accept/decline workflow.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/internal/notifications"
	"github.com/angelmondragon/toolyard-backend/internal/payments"
	"github.com/angelmondragon/toolyard-backend/internal/pricing"
	"github.com/angelmondragon/toolyard-backend/pkg/currency"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/toolyard-backend/pkg/pagination"
	pkgstripe "github.com/angelmondragon/toolyard-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type pricer interface {
	PriceOrder(ctx context.Context, items []pricing.RawItem) (*pricing.PricedOrder, error)
}

type paymentService interface {
	CreateAttemptTx(ctx context.Context, tx *gorm.DB, input payments.CreateAttemptInput) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	TransitionStatus(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
	TransitionSupplierPayments(ctx context.Context, orderID, supplierID uuid.UUID, status enums.PaymentStatus) ([]models.Payment, error)
}

type notifier interface {
	NotifySupplierResponse(ctx context.Context, resp notifications.SupplierResponse) (bool, error)
}

// Service defines procurement order operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDetail, error)
	ListForSupplier(ctx context.Context, actor authz.Actor, params pagination.Params) (*SupplierOrderList, error)
	Respond(ctx context.Context, input RespondInput) (*RespondResult, error)
	Cancel(ctx context.Context, input ArchiveInput) (*models.ArchivedOrder, error)
	Delete(ctx context.Context, input ArchiveInput) (*models.ArchivedOrder, error)
}

// ServiceParams collects the order service dependencies.
type ServiceParams struct {
	Repo            Repository
	TxRunner        txRunner
	Pricer          pricer
	Payments        paymentService
	Outbox          outboxPublisher
	Notifier        notifier
	Intents         pkgstripe.PaymentIntentCreator
	Check           authz.Checker
	Logger          *logger.Logger
	DefaultCurrency string
}

type service struct {
	repo            Repository
	tx              txRunner
	pricer          pricer
	payments        paymentService
	outbox          outboxPublisher
	notifier        notifier
	intents         pkgstripe.PaymentIntentCreator
	check           authz.Checker
	logg            *logger.Logger
	defaultCurrency string
	now             func() time.Time
}

// NewService builds the procurement order service. Intents may be nil when
// Stripe is not configured.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Pricer == nil:
		return nil, fmt.Errorf("pricing engine required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	check := params.Check
	if check == nil {
		check = authz.Can
	}
	return &service{
		repo:            params.Repo,
		tx:              params.TxRunner,
		pricer:          params.Pricer,
		payments:        params.Payments,
		outbox:          params.Outbox,
		notifier:        params.Notifier,
		intents:         params.Intents,
		check:           check,
		logg:            params.Logger,
		defaultCurrency: currency.Normalize(params.DefaultCurrency),
		now:             time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if err := authz.Require(s.check, input.Actor, authz.PermOrdersCreate); err != nil {
		return nil, err
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paymentMethod must be stripe or slip")
	}

	raw := make([]pricing.RawItem, 0, len(input.Items))
	for _, item := range input.Items {
		raw = append(raw, pricing.RawItem{
			ProductID:  item.ProductID,
			SupplierID: item.SupplierID,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
		})
	}
	priced, err := s.pricer.PriceOrder(ctx, raw)
	if err != nil {
		return nil, err
	}

	code := currency.Normalize(input.Currency)
	if code == "" {
		code = s.defaultCurrency
	}
	order := buildOrder(priced, input, code)

	attempts, clientSecret, err := s.paymentAttempts(ctx, order, priced, input)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Order: order, ClientSecret: clientSecret}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create procurement order")
		}
		for _, attempt := range attempts {
			payment, err := s.payments.CreateAttemptTx(ctx, tx, attempt)
			if err != nil {
				return err
			}
			result.Payments = append(result.Payments, *payment)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateProcurementOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.ProcurementOrderCreatedEvent{
				OrderID:       order.ID,
				SupplierIDs:   order.SupplierIDs(),
				PaymentMethod: order.PaymentMethod,
				TotalCost:     order.TotalCost,
				DiscountTotal: order.DiscountTotal,
				Currency:      order.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildOrder(priced *pricing.PricedOrder, input CreateInput, code string) *models.ProcurementOrder {
	order := &models.ProcurementOrder{
		ID:            uuid.New(),
		Status:        enums.ProcurementOrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		Currency:      code,
		Subtotal:      priced.Subtotal,
		DiscountTotal: priced.DiscountTotal,
		TotalCost:     priced.NetTotal,
		Contact:       trimmed(input.Contact),
		Notes:         trimmed(input.Notes),
		CreatedBy:     input.Actor.UserID,
		Items:         make([]models.ProcurementOrderItem, 0, len(priced.Items)),
	}
	for i, item := range priced.Items {
		order.Items = append(order.Items, models.ProcurementOrderItem{
			OrderID:         order.ID,
			Position:        i,
			ProductID:       item.ProductID,
			SupplierID:      item.SupplierID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			LineSubtotal:    item.LineSubtotal,
			DiscountPercent: item.DiscountPercent,
			DiscountValue:   item.DiscountValue,
			LineTotal:       item.LineTotal,
			SupplierStatus:  enums.SupplierItemStatusPending,
		})
	}
	return order
}

// paymentAttempts plans the payments for a new order: one slip per supplier for
// its net share, or one Stripe intent for the whole net total.
func (s *service) paymentAttempts(ctx context.Context, order *models.ProcurementOrder, priced *pricing.PricedOrder, input CreateInput) ([]payments.CreateAttemptInput, string, error) {
	orderID := order.ID
	if order.PaymentMethod == enums.PaymentMethodSlip {
		shares := priced.SupplierTotals()
		attempts := make([]payments.CreateAttemptInput, 0, len(shares))
		for _, supplierID := range order.SupplierIDs() {
			supplier := supplierID
			uploader := input.Actor.UserID
			attempts = append(attempts, payments.CreateAttemptInput{
				OrderID:        &orderID,
				OrderKind:      enums.OrderKindProcurement,
				SupplierID:     &supplier,
				Method:         enums.PaymentMethodSlip,
				Amount:         shares[supplier],
				Currency:       order.Currency,
				SlipFileRef:    trimmed(input.SlipFileRef),
				SlipUploadedBy: &uploader,
				Lines:          linesFor(priced.Items, &supplier, ""),
			})
		}
		return attempts, "", nil
	}

	if s.intents == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}
	minor := currency.ToMinor(order.TotalCost, order.Currency)
	if minor <= 0 {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "stripe payment requires a positive total")
	}
	intent, err := s.intents.CreatePaymentIntent(ctx, pkgstripe.PaymentIntentRequest{
		Amount:   minor,
		Currency: order.Currency,
		Metadata: map[string]string{
			"order_id":   order.ID.String(),
			"order_kind": string(enums.OrderKindProcurement),
		},
		IdempotencyKey: "procurement:" + order.ID.String(),
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment intent")
	}
	intentID := intent.ID
	return []payments.CreateAttemptInput{{
		OrderID:               &orderID,
		OrderKind:             enums.OrderKindProcurement,
		Method:                enums.PaymentMethodStripe,
		Amount:                decimal.NewFromInt(minor),
		Currency:              order.Currency,
		StripePaymentIntentID: &intentID,
		Lines:                 linesFor(priced.Items, nil, order.Currency),
	}}, intent.ClientSecret, nil
}

// linesFor builds per-product payment lines. A non-empty minorCurrency
// expresses amounts in that currency's minor unit.
func linesFor(items []pricing.PricedItem, supplierID *uuid.UUID, minorCurrency string) []models.PaymentLine {
	lines := make([]models.PaymentLine, 0, len(items))
	for _, item := range items {
		if supplierID != nil && item.SupplierID != *supplierID {
			continue
		}
		amount := item.LineTotal
		if minorCurrency != "" {
			amount = decimal.NewFromInt(currency.ToMinor(item.LineTotal, minorCurrency))
		}
		lines = append(lines, models.PaymentLine{ProductID: item.ProductID, Quantity: item.Quantity, Amount: amount})
	}
	return lines
}

func (s *service) Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDetail, error) {
	if err := authz.Require(s.check, actor, authz.PermOrdersRead); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	rows, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Payments: rows}, nil
}

func (s *service) ListForSupplier(ctx context.Context, actor authz.Actor, params pagination.Params) (*SupplierOrderList, error) {
	if err := authz.Require(s.check, actor, authz.PermSupplierOrdersRead); err != nil {
		return nil, err
	}
	if actor.SupplierID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier scope required")
	}
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.Clamp(params.Limit)
	rows, err := s.repo.ListForSupplier(ctx, *actor.SupplierID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supplier orders")
	}

	page, next := pagination.Split(rows, limit, func(o models.ProcurementOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &SupplierOrderList{Orders: page, Cursor: next}, nil
}

// Respond applies a supplier's accept or decline to that supplier's items only
// and re-derives the order status. Repeating the same response is a no-op.
func (s *service) Respond(ctx context.Context, input RespondInput) (*RespondResult, error) {
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be accept or decline")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := authz.Require(s.check, input.Actor, authz.PermOrdersRespond); err != nil {
		return nil, err
	}
	if input.Actor.SupplierID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier scope required")
	}
	supplierID := *input.Actor.SupplierID
	target := itemStatusFor(input.Action)

	result := &RespondResult{Action: input.Action}
	var owned int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapOrderError(err)
		}

		share := decimal.Zero
		for _, item := range order.Items {
			if item.SupplierID != supplierID {
				continue
			}
			owned++
			share = share.Add(item.LineTotal)
			if item.SupplierStatus != target {
				result.Changed = true
			}
		}
		if owned == 0 {
			return pkgerrors.New(pkgerrors.CodeForbidden, "supplier has no items on this order")
		}
		result.Order = order
		if !result.Changed {
			return nil
		}

		at := s.now().UTC()
		if _, err := repo.UpdateSupplierItems(ctx, order.ID, supplierID, target, at); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier items")
		}
		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
		}
		status := enums.ProcurementOrderStatusDeclined
		if input.Action == enums.SupplierActionAccept {
			status = DeriveStatus(items)
		}
		if status != order.Status {
			if err := repo.UpdateStatus(ctx, order.ID, status); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		}
		order.Items = items
		order.Status = status

		actor := actorRef(input.Actor)
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSupplierResponded,
			AggregateType: enums.AggregateProcurementOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor,
			OccurredAt:    at,
			Data: payloads.OrderSupplierRespondedEvent{
				OrderID:    order.ID,
				SupplierID: supplierID,
				Action:     input.Action,
				Status:     status,
				ItemCount:  owned,
			},
		}); err != nil {
			return err
		}
		if input.Action != enums.SupplierActionAccept {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSupplierConfirmed,
			AggregateType: enums.AggregateProcurementOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor,
			OccurredAt:    at,
			Data: payloads.OrderSupplierConfirmedEvent{
				OrderID:    order.ID,
				SupplierID: supplierID,
				Amount:     share,
				Currency:   order.Currency,
				Timestamp:  at,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterResponse(ctx, input, supplierID, owned, result.Order.Status)
	return result, nil
}

// afterResponse runs the side effects that must not undo a committed response.
func (s *service) afterResponse(ctx context.Context, input RespondInput, supplierID uuid.UUID, owned int, status enums.ProcurementOrderStatus) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":    input.OrderID.String(),
		"supplier_id": supplierID.String(),
		"action":      string(input.Action),
	})

	if _, err := s.notifier.NotifySupplierResponse(ctx, notifications.SupplierResponse{
		OrderID:    input.OrderID,
		SupplierID: supplierID,
		Action:     input.Action,
		Status:     status,
		ItemCount:  owned,
		Actor:      actorRef(input.Actor),
	}); err != nil {
		s.logg.Error(logCtx, "request supplier response notification", err)
	}

	if _, err := s.payments.TransitionSupplierPayments(ctx, input.OrderID, supplierID, paymentStatusFor(input.Action)); err != nil {
		s.logg.Error(logCtx, "update supplier payments", err)
	}
}

func (s *service) Cancel(ctx context.Context, input ArchiveInput) (*models.ArchivedOrder, error) {
	if strings.TrimSpace(input.Reason) == "" {
		input.Reason = "cancelled by admin"
	}
	return s.archive(ctx, input)
}

func (s *service) Delete(ctx context.Context, input ArchiveInput) (*models.ArchivedOrder, error) {
	if strings.TrimSpace(input.Reason) == "" {
		input.Reason = "deleted by admin"
	}
	return s.archive(ctx, input)
}

// archive moves the order into cancelled_orders and removes the live row in
// one transaction. Open payments are then canceled best-effort.
func (s *service) archive(ctx context.Context, input ArchiveInput) (*models.ArchivedOrder, error) {
	if err := authz.Require(s.check, input.Actor, authz.PermOrdersCancel); err != nil {
		return nil, err
	}
	var archived models.ArchivedOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return mapOrderError(err)
		}
		archived = Archive(*order, input.Reason, input.Actor.UserID, s.now().UTC())
		if err := repo.InsertArchive(ctx, &archived); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive order")
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateProcurementOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			OccurredAt:    archived.CancelledAt,
			Data: payloads.ProcurementOrderCanceledEvent{
				OrderID:         order.ID,
				ArchivedOrderID: archived.ID,
				Reason:          archived.Reason,
				CanceledAt:      archived.CancelledAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cancelOpenPayments(ctx, input.OrderID)
	return &archived, nil
}

func (s *service) cancelOpenPayments(ctx context.Context, orderID uuid.UUID) {
	logCtx := s.logg.WithField(ctx, "order_id", orderID.String())
	rows, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		s.logg.Error(logCtx, "list payments of archived order", err)
		return
	}
	for _, row := range rows {
		if row.Status != enums.PaymentStatusPending {
			continue
		}
		if _, err := s.payments.TransitionStatus(ctx, row.ID, enums.PaymentStatusCanceled); err != nil {
			s.logg.Error(logCtx, "cancel payment of archived order", err)
		}
	}
}

func mapOrderError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func actorRef(actor authz.Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID:     actor.UserID,
		SupplierID: actor.SupplierID,
		Role:       string(actor.Role),
	}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
