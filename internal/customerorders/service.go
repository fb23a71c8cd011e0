// Package customerorders handles retail checkout. Orders created here are
// confirmed later by payment reconciliation, never by the customer.
package customerorders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/internal/payments"
	"github.com/angelmondragon/toolyard-backend/pkg/currency"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/toolyard-backend/pkg/stripe"
	"github.com/angelmondragon/toolyard-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentCreator interface {
	CreateAttemptTx(ctx context.Context, tx *gorm.DB, input payments.CreateAttemptInput) (*models.Payment, error)
}

// Service places customer orders.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CustomerOrder, error)
}

// CheckoutInput is a customer's basket at checkout.
type CheckoutInput struct {
	Actor    authz.Actor
	Channel  enums.PaymentChannel
	Currency string
	Items    []CheckoutItem
}

// CheckoutItem is one basket line, priced in major units.
type CheckoutItem struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
	Price     decimal.Decimal
}

// CheckoutResult carries the order and, for card checkouts, the pending payment.
type CheckoutResult struct {
	Order        *models.CustomerOrder `json:"order"`
	Payment      *models.Payment       `json:"payment,omitempty"`
	ClientSecret string                `json:"clientSecret,omitempty"`
}

type service struct {
	repo            Repository
	tx              txRunner
	payments        paymentCreator
	intents         pkgstripe.PaymentIntentCreator
	check           authz.Checker
	defaultCurrency string
}

// NewService builds the checkout service. intents may be nil when Stripe is
// not configured; card checkouts then fail with a dependency error.
func NewService(repo Repository, tx txRunner, payments paymentCreator, intents pkgstripe.PaymentIntentCreator, check authz.Checker, defaultCurrency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if check == nil {
		check = authz.Can
	}
	return &service{
		repo:            repo,
		tx:              tx,
		payments:        payments,
		intents:         intents,
		check:           check,
		defaultCurrency: currency.Normalize(defaultCurrency),
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := authz.Require(s.check, input.Actor, authz.PermCheckoutCreate); err != nil {
		return nil, err
	}
	if !input.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment channel")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	code := currency.Normalize(input.Currency)
	if code == "" {
		code = s.defaultCurrency
	}

	order := &models.CustomerOrder{
		ID:             uuid.New(),
		CustomerID:     input.Actor.UserID,
		Status:         enums.CustomerOrderStatusPending,
		PaymentChannel: input.Channel,
		Currency:       code,
		Items:          make([]models.CustomerOrderItem, 0, len(input.Items)),
	}
	snapshot := OrderSnapshot{Items: make([]SnapshotItem, 0, len(input.Items))}
	lines := make([]models.PaymentLine, 0, len(input.Items))
	total := decimal.Zero
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 || item.Price.IsNegative() || strings.TrimSpace(item.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout item").
				WithDetails(map[string]any{"index": i})
		}
		price := item.Price.Round(2)
		lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)
		order.Items = append(order.Items, models.CustomerOrderItem{
			ProductID: item.ProductID,
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			Price:     price,
		})
		snapshot.Items = append(snapshot.Items, SnapshotItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: price})
		lines = append(lines, models.PaymentLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Amount:    decimal.NewFromInt(currency.ToMinor(lineTotal, code)),
		})
	}
	order.TotalAmount = total
	snapshot.Total = total

	result := &CheckoutResult{Order: order}
	var attempt *payments.CreateAttemptInput
	if input.Channel == enums.PaymentChannelStripe {
		var err error
		attempt, result.ClientSecret, err = s.openIntent(ctx, order, snapshot, lines)
		if err != nil {
			return nil, err
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer order")
		}
		if attempt == nil {
			return nil
		}
		payment, err := s.payments.CreateAttemptTx(ctx, tx, *attempt)
		if err != nil {
			return err
		}
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) openIntent(ctx context.Context, order *models.CustomerOrder, snapshot OrderSnapshot, lines []models.PaymentLine) (*payments.CreateAttemptInput, string, error) {
	if s.intents == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}
	minor := currency.ToMinor(order.TotalAmount, order.Currency)
	if minor <= 0 {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "card checkout requires a positive total")
	}
	encoded, err := snapshot.Encode()
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order snapshot")
	}
	intent, err := s.intents.CreatePaymentIntent(ctx, pkgstripe.PaymentIntentRequest{
		Amount:   minor,
		Currency: order.Currency,
		Metadata: map[string]string{
			"order_id":   order.ID.String(),
			"order_kind": string(enums.OrderKindCustomer),
		},
		IdempotencyKey: "checkout:" + order.ID.String(),
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create payment intent")
	}

	orderID := order.ID
	intentID := intent.ID
	return &payments.CreateAttemptInput{
		OrderID:               &orderID,
		OrderKind:             enums.OrderKindCustomer,
		Method:                enums.PaymentMethodStripe,
		Amount:                decimal.NewFromInt(minor),
		Currency:              order.Currency,
		StripePaymentIntentID: &intentID,
		Lines:                 lines,
		Metadata:              types.JSONMap{SnapshotMetadataKey: encoded},
	}, intent.ClientSecret, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.CustomerOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer order")
	}
	return order, nil
}
