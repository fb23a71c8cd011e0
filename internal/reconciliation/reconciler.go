// Package reconciliation keeps customer order status in step with paid payments.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
)

// Outcome labels one reconciliation attempt.
type Outcome string

const (
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeAlreadyConfirmed Outcome = "already_confirmed"
	OutcomeNotPaid          Outcome = "not_paid"
	OutcomeNoOrder          Outcome = "no_order"
	OutcomeProcurement      Outcome = "procurement_skipped"
	OutcomeOrderNotFound    Outcome = "order_not_found"
	OutcomeError            Outcome = "error"
)

const defaultPageSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paidLister interface {
	ListPaid(ctx context.Context, after uuid.UUID, limit int) ([]models.Payment, error)
}

// Reconciler confirms customer orders whose payment is paid.
type Reconciler struct {
	orders   customerorders.Repository
	payments paidLister
	tx       txRunner
	outbox   eventEmitter
	logg     *logger.Logger
	metrics  *metrics.ReconciliationMetrics
	pageSize int
	now      func() time.Time
}

// NewReconciler builds a reconciler. m may be nil.
func NewReconciler(orders customerorders.Repository, payments paidLister, tx txRunner, outbox eventEmitter, logg *logger.Logger, m *metrics.ReconciliationMetrics, pageSize int) (*Reconciler, error) {
	if orders == nil {
		return nil, fmt.Errorf("customer order repository required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment lister required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Reconciler{
		orders:   orders,
		payments: payments,
		tx:       tx,
		outbox:   outbox,
		logg:     logg,
		metrics:  m,
		pageSize: pageSize,
		now:      time.Now,
	}, nil
}

// AfterPaymentWrite runs after every committed payment write. Failures are
// logged and never surface to the writer.
func (r *Reconciler) AfterPaymentWrite(ctx context.Context, payment *models.Payment) {
	_, _ = r.Reconcile(ctx, payment)
}

// Reconcile confirms the payment's customer order when the payment is paid.
// Calling it repeatedly for the same payment is safe.
func (r *Reconciler) Reconcile(ctx context.Context, payment *models.Payment) (Outcome, error) {
	outcome, err := r.reconcile(ctx, payment)
	r.metrics.IncOutcome(string(outcome))

	if payment == nil {
		return outcome, err
	}
	fields := map[string]any{
		"payment_id": payment.ID.String(),
		"outcome":    string(outcome),
	}
	if payment.OrderID != nil {
		fields["order_id"] = payment.OrderID.String()
	}
	logCtx := r.logg.WithFields(ctx, fields)
	switch outcome {
	case OutcomeError:
		r.logg.Error(logCtx, "payment reconciliation failed", err)
	case OutcomeOrderNotFound:
		r.logg.Warn(logCtx, "paid payment references missing order")
	case OutcomeConfirmed, OutcomeProcurement:
		r.logg.Info(logCtx, "payment reconciliation")
	}
	return outcome, err
}

func (r *Reconciler) reconcile(ctx context.Context, payment *models.Payment) (Outcome, error) {
	if payment == nil || payment.Status != enums.PaymentStatusPaid {
		return OutcomeNotPaid, nil
	}
	if payment.OrderID == nil || *payment.OrderID == uuid.Nil {
		return OutcomeNoOrder, nil
	}
	if payment.OrderKind == enums.OrderKindProcurement {
		return OutcomeProcurement, nil
	}

	outcome := OutcomeAlreadyConfirmed
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, *payment.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = OutcomeOrderNotFound
				return nil
			}
			return err
		}
		if order.Status == enums.CustomerOrderStatusConfirmed {
			return nil
		}

		at := r.now().UTC()
		changed, err := repo.MarkConfirmed(ctx, order.ID, at)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		outcome = OutcomeConfirmed
		return r.emitConfirmed(ctx, tx, order, payment, at)
	})
	if err != nil {
		return OutcomeError, err
	}
	return outcome, nil
}

func (r *Reconciler) emitConfirmed(ctx context.Context, tx *gorm.DB, order *models.CustomerOrder, payment *models.Payment, at time.Time) error {
	paymentID := payment.ID
	if err := r.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderConfirmed,
		AggregateType: enums.AggregateCustomerOrder,
		AggregateID:   order.ID,
		Version:       1,
		OccurredAt:    at,
		Data: payloads.OrderConfirmedEvent{
			OrderID:     order.ID,
			PaymentID:   paymentID,
			ConfirmedAt: at,
		},
	}); err != nil {
		return err
	}

	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	return r.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSaleConfirmed,
		AggregateType: enums.AggregateCustomerOrder,
		AggregateID:   order.ID,
		Version:       1,
		OccurredAt:    at,
		Data: payloads.SaleConfirmedEvent{
			OrderID:    order.ID,
			PaymentID:  &paymentID,
			Channel:    order.PaymentChannel,
			Amount:     order.TotalAmount,
			Currency:   order.Currency,
			Units:      units,
			OccurredAt: at,
		},
	})
}

// RepairResult summarizes a full drift-repair pass.
type RepairResult struct {
	Scanned   int
	Confirmed int
	Failed    int
}

// RepairAll reconciles every paid payment page by page.
func (r *Reconciler) RepairAll(ctx context.Context) (RepairResult, error) {
	var (
		result RepairResult
		errs   error
		cursor = uuid.Nil
	)
	for {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}
		page, err := r.payments.ListPaid(ctx, cursor, r.pageSize)
		if err != nil {
			return result, multierr.Append(errs, fmt.Errorf("list paid payments: %w", err))
		}
		for i := range page {
			result.Scanned++
			outcome, err := r.Reconcile(ctx, &page[i])
			switch {
			case err != nil:
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("payment %s: %w", page[i].ID, err))
			case outcome == OutcomeConfirmed:
				result.Confirmed++
			}
		}
		if len(page) < r.pageSize {
			return result, errs
		}
		cursor = page[len(page)-1].ID
	}
}
