package reconciliation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/internal/payments"
	"github.com/angelmondragon/toolyard-backend/pkg/db/dbtest"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/metrics"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
)

type fixture struct {
	db  *gorm.DB
	rec *Reconciler
	reg *prometheus.Registry
}

func newFixture(t *testing.T, pageSize int) fixture {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	rec, err := NewReconciler(
		customerorders.NewRepository(db),
		payments.NewRepository(db),
		dbtest.TxRunner{DB: db},
		outbox.NewService(outbox.NewRepository(db), logg),
		logg,
		metrics.NewReconciliationMetrics(reg),
		pageSize,
	)
	require.NoError(t, err)
	return fixture{db: db, rec: rec, reg: reg}
}

func (f fixture) seedOrder(t *testing.T, status enums.CustomerOrderStatus) models.CustomerOrder {
	t.Helper()
	order := models.CustomerOrder{
		CustomerID:     uuid.New(),
		Status:         status,
		PaymentChannel: enums.PaymentChannelStripe,
		Currency:       "lkr",
		TotalAmount:    decimal.NewFromInt(1500),
		Items: []models.CustomerOrderItem{
			{ProductID: uuid.New(), Name: "Claw hammer", Quantity: 2, Price: decimal.NewFromInt(500)},
			{ProductID: uuid.New(), Name: "Tape measure", Quantity: 1, Price: decimal.NewFromInt(500)},
		},
	}
	require.NoError(t, f.db.Create(&order).Error)
	return order
}

func (f fixture) seedPayment(t *testing.T, orderID *uuid.UUID, kind enums.OrderKind, status enums.PaymentStatus) models.Payment {
	t.Helper()
	intent := "pi_" + uuid.NewString()
	p := models.Payment{
		OrderID:               orderID,
		OrderKind:             kind,
		Method:                enums.PaymentMethodStripe,
		Status:                status,
		Amount:                decimal.NewFromInt(150000),
		Currency:              "lkr",
		StripePaymentIntentID: &intent,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f fixture) orderStatus(t *testing.T, id uuid.UUID) enums.CustomerOrderStatus {
	t.Helper()
	var order models.CustomerOrder
	require.NoError(t, f.db.First(&order, "id = ?", id).Error)
	return order.Status
}

func (f fixture) eventCount(t *testing.T, eventType enums.OutboxEventType, aggregateID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", eventType, aggregateID).
		Count(&count).Error)
	return count
}

func TestReconcileConfirmsOnceAndIsIdempotent(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	order := f.seedOrder(t, enums.CustomerOrderStatusPending)
	payment := f.seedPayment(t, &order.ID, enums.OrderKindCustomer, enums.PaymentStatusPaid)

	outcome, err := f.rec.Reconcile(ctx, &payment)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)
	assert.Equal(t, enums.CustomerOrderStatusConfirmed, f.orderStatus(t, order.ID))

	outcome, err = f.rec.Reconcile(ctx, &payment)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, outcome)
	assert.Equal(t, enums.CustomerOrderStatusConfirmed, f.orderStatus(t, order.ID))

	assert.EqualValues(t, 1, f.eventCount(t, enums.EventOrderConfirmed, order.ID))
	assert.EqualValues(t, 1, f.eventCount(t, enums.EventSaleConfirmed, order.ID))

	var confirmed models.CustomerOrder
	require.NoError(t, f.db.First(&confirmed, "id = ?", order.ID).Error)
	assert.NotNil(t, confirmed.ConfirmedAt)
}

func TestReconcileSkips(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	order := f.seedOrder(t, enums.CustomerOrderStatusPending)

	pending := f.seedPayment(t, &order.ID, enums.OrderKindCustomer, enums.PaymentStatusPending)
	outcome, err := f.rec.Reconcile(ctx, &pending)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, outcome)

	orphan := f.seedPayment(t, nil, enums.OrderKindCustomer, enums.PaymentStatusPaid)
	outcome, err = f.rec.Reconcile(ctx, &orphan)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOrder, outcome)

	procurement := f.seedPayment(t, &order.ID, enums.OrderKindProcurement, enums.PaymentStatusPaid)
	outcome, err = f.rec.Reconcile(ctx, &procurement)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcurement, outcome)

	missing := uuid.New()
	dangling := f.seedPayment(t, &missing, enums.OrderKindCustomer, enums.PaymentStatusPaid)
	outcome, err = f.rec.Reconcile(ctx, &dangling)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderNotFound, outcome)

	assert.Equal(t, enums.CustomerOrderStatusPending, f.orderStatus(t, order.ID))
}

func TestRepairAllConfirmsDriftedOrders(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	drifted := []models.CustomerOrder{
		f.seedOrder(t, enums.CustomerOrderStatusPending),
		f.seedOrder(t, enums.CustomerOrderStatusPending),
		f.seedOrder(t, enums.CustomerOrderStatusCanceled),
	}
	for i := range drifted {
		f.seedPayment(t, &drifted[i].ID, enums.OrderKindCustomer, enums.PaymentStatusPaid)
	}
	done := f.seedOrder(t, enums.CustomerOrderStatusConfirmed)
	f.seedPayment(t, &done.ID, enums.OrderKindCustomer, enums.PaymentStatusPaid)
	f.seedPayment(t, &done.ID, enums.OrderKindCustomer, enums.PaymentStatusFailed)

	result, err := f.rec.RepairAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Scanned)
	assert.Equal(t, 3, result.Confirmed)
	assert.Equal(t, 0, result.Failed)
	for _, order := range drifted {
		assert.Equal(t, enums.CustomerOrderStatusConfirmed, f.orderStatus(t, order.ID))
	}

	mfs, err := f.reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, 3.0, counterValue(mfs, "confirmed"))
	assert.Equal(t, 1.0, counterValue(mfs, "already_confirmed"))
}

type failingOrders struct {
	customerorders.Repository
}

func (f failingOrders) WithTx(*gorm.DB) customerorders.Repository { return f }

func (failingOrders) FindByID(context.Context, uuid.UUID) (*models.CustomerOrder, error) {
	return nil, errors.New("connection reset")
}

type noPaid struct{}

func (noPaid) ListPaid(context.Context, uuid.UUID, int) ([]models.Payment, error) { return nil, nil }

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type nopEmitter struct{}

func (nopEmitter) EmitIfNotExists(context.Context, *gorm.DB, outbox.DomainEvent) error { return nil }

func TestAfterPaymentWriteSwallowsFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	rec, err := NewReconciler(failingOrders{}, noPaid{}, passthroughTx{}, nopEmitter{}, logg, nil, 0)
	require.NoError(t, err)

	orderID := uuid.New()
	payment := &models.Payment{ID: uuid.New(), OrderID: &orderID, OrderKind: enums.OrderKindCustomer, Status: enums.PaymentStatusPaid}

	assert.NotPanics(t, func() { rec.AfterPaymentWrite(context.Background(), payment) })
	outcome, err := rec.Reconcile(context.Background(), payment)
	assert.Error(t, err)
	assert.Equal(t, OutcomeError, outcome)
}

func TestNewReconcilerRequiresDependencies(t *testing.T) {
	_, err := NewReconciler(nil, nil, nil, nil, nil, nil, 0)
	assert.Error(t, err)
}

func counterValue(mfs []*dto.MetricFamily, outcome string) float64 {
	for _, mf := range mfs {
		if mf.GetName() != "reconciliation_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
