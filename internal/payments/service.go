// Package payments owns payment attempts and their status lifecycle.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/toolyard-backend/pkg/db"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/toolyard-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PostWriteHook observes every committed payment write, including no-op
// transitions. Implementations must not fail the write.
type PostWriteHook interface {
	AfterPaymentWrite(ctx context.Context, payment *models.Payment)
}

// Service exposes payment creation and status transitions.
type Service interface {
	CreateAttempt(ctx context.Context, input CreateAttemptInput) (*models.Payment, error)
	CreateAttemptTx(ctx context.Context, tx *gorm.DB, input CreateAttemptInput) (*models.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	TransitionStatus(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
	TransitionByIntent(ctx context.Context, intentID string, status enums.PaymentStatus) (*models.Payment, error)
	TransitionSupplierPayments(ctx context.Context, orderID, supplierID uuid.UUID, status enums.PaymentStatus) ([]models.Payment, error)
}

// CreateAttemptInput describes a new pending payment attempt.
type CreateAttemptInput struct {
	OrderID               *uuid.UUID
	OrderKind             enums.OrderKind
	SupplierID            *uuid.UUID
	Method                enums.PaymentMethod
	Amount                decimal.Decimal
	Currency              string
	StripePaymentIntentID *string
	StripeSessionID       *string
	SlipFileRef           *string
	SlipUploadedBy        *uuid.UUID
	Lines                 []models.PaymentLine
	Metadata              types.JSONMap
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	hook   PostWriteHook
	logg   *logger.Logger
	strict bool
}

// NewService builds the payment service. hook may be nil.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, hook PostWriteHook, logg *logger.Logger, strict bool) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		hook:   hook,
		logg:   logg,
		strict: strict,
	}, nil
}

func (s *service) CreateAttempt(ctx context.Context, input CreateAttemptInput) (*models.Payment, error) {
	var created *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = s.CreateAttemptTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, created)
	return created, nil
}

// CreateAttemptTx inserts the attempt inside a caller-owned transaction.
func (s *service) CreateAttemptTx(ctx context.Context, tx *gorm.DB, input CreateAttemptInput) (*models.Payment, error) {
	if err := validateAttempt(input); err != nil {
		return nil, err
	}
	payment := &models.Payment{
		OrderID:               input.OrderID,
		OrderKind:             input.OrderKind,
		SupplierID:            input.SupplierID,
		Method:                input.Method,
		Status:                enums.PaymentStatusPending,
		Amount:                input.Amount,
		Currency:              strings.ToLower(strings.TrimSpace(input.Currency)),
		StripePaymentIntentID: input.StripePaymentIntentID,
		StripeSessionID:       input.StripeSessionID,
		SlipFileRef:           input.SlipFileRef,
		SlipUploadedBy:        input.SlipUploadedBy,
		Lines:                 input.Lines,
		Metadata:              input.Metadata,
	}
	created, err := s.repo.WithTx(tx).Create(ctx, payment)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_payments_stripe_intent") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment intent already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return payment, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

func (s *service) TransitionStatus(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	return s.transition(ctx, status, func(repo Repository) (*models.Payment, error) {
		return repo.FindByID(ctx, paymentID)
	})
}

func (s *service) TransitionByIntent(ctx context.Context, intentID string, status enums.PaymentStatus) (*models.Payment, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	return s.transition(ctx, status, func(repo Repository) (*models.Payment, error) {
		return repo.FindByIntent(ctx, intentID)
	})
}

// TransitionSupplierPayments moves every slip payment a supplier holds on an
// order. Rows whose transition is not allowed are logged and left untouched.
func (s *service) TransitionSupplierPayments(ctx context.Context, orderID, supplierID uuid.UUID, status enums.PaymentStatus) ([]models.Payment, error) {
	rows, err := s.repo.ListSlipBySupplier(ctx, orderID, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supplier payments")
	}

	updated := make([]models.Payment, 0, len(rows))
	var errs error
	for _, row := range rows {
		id := row.ID
		payment, err := s.transition(ctx, status, func(repo Repository) (*models.Payment, error) {
			return repo.FindByID(ctx, id)
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"payment_id":  id.String(),
					"order_id":    orderID.String(),
					"supplier_id": supplierID.String(),
					"from":        row.Status,
					"to":          status,
				})
				s.logg.Warn(logCtx, "skipping supplier payment transition")
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}
		updated = append(updated, *payment)
	}
	return updated, errs
}

func (s *service) transition(ctx context.Context, target enums.PaymentStatus, load func(Repository) (*models.Payment, error)) (*models.Payment, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status").
			WithDetails(map[string]any{"status": target})
	}

	var result *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := load(repo)
		if err != nil {
			return mapLoadError(err)
		}
		result = payment
		if payment.Status == target {
			return nil
		}
		from := payment.Status
		if !CanTransition(from, target, s.strict) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment status transition not allowed").
				WithDetails(map[string]any{"from": from, "to": target})
		}
		if err := repo.UpdateStatus(ctx, payment.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		payment.Status = target
		payment.UpdatedAt = time.Now().UTC()

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentStatusChanged,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentStatusChangedEvent{
				PaymentID:  payment.ID,
				OrderID:    payment.OrderID,
				OrderKind:  payment.OrderKind,
				SupplierID: payment.SupplierID,
				Method:     payment.Method,
				From:       from,
				To:         target,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, result)
	return result, nil
}

func (s *service) afterWrite(ctx context.Context, payment *models.Payment) {
	if s.hook == nil || payment == nil {
		return
	}
	s.hook.AfterPaymentWrite(ctx, payment)
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
}

func validateAttempt(input CreateAttemptInput) error {
	switch {
	case !input.Method.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	case !input.OrderKind.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order kind")
	case input.Amount.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must not be negative")
	case strings.TrimSpace(input.Currency) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "currency required")
	case input.Method == enums.PaymentMethodStripe && (input.StripePaymentIntentID == nil || *input.StripePaymentIntentID == ""):
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe payments require a payment intent id")
	}
	return nil
}
