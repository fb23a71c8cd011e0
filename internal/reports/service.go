// Package reports builds calendar-bucketed sales series from confirmed
// customer orders and their payments.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/internal/customerorders"
	"github.com/angelmondragon/toolyard-backend/internal/payments"
	"github.com/angelmondragon/toolyard-backend/pkg/currency"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// MaxBuckets caps the count per granularity.
var MaxBuckets = map[enums.ReportGranularity]int{
	enums.ReportGranularityDay:   90,
	enums.ReportGranularityWeek:  104,
	enums.ReportGranularityMonth: 60,
}

var onlineSale = payments.Filter{
	Kind:           enums.OrderKindCustomer,
	Method:         enums.PaymentMethodStripe,
	Status:         enums.PaymentStatusPaid,
	CustomerFacing: true,
}

// Query selects a sales series.
type Query struct {
	Actor       authz.Actor
	Granularity enums.ReportGranularity
	Count       int
	ProductID   *uuid.UUID
	Filter      enums.ReportPaymentFilter
}

// bestPayments is the payment store's batched best-candidate lookup.
type bestPayments interface {
	BestPaymentsFor(ctx context.Context, orderIDs []uuid.UUID, filter payments.Filter) (map[uuid.UUID]*models.Payment, error)
}

// Service aggregates sales.
type Service interface {
	Aggregate(ctx context.Context, q Query) ([]Bucket, error)
}

type service struct {
	repo  Repository
	best  bestPayments
	check authz.Checker
	logg  *logger.Logger
	loc   *time.Location
	now   func() time.Time
}

// NewService builds the reporter. Buckets are cut in loc, UTC when nil.
func NewService(repo Repository, best bestPayments, check authz.Checker, logg *logger.Logger, loc *time.Location) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if best == nil {
		return nil, fmt.Errorf("payment lookup required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if check == nil {
		check = authz.Can
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, best: best, check: check, logg: logg, loc: loc, now: time.Now}, nil
}

func (s *service) Aggregate(ctx context.Context, q Query) ([]Bucket, error) {
	if err := authz.Require(s.check, q.Actor, authz.PermReportsRead); err != nil {
		return nil, err
	}
	if !q.Granularity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "granularity must be day, week or month")
	}
	if limit := MaxBuckets[q.Granularity]; q.Count < 1 || q.Count > limit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("count must be between 1 and %d", limit)).
			WithDetails(map[string]any{"count": q.Count})
	}

	out := newSeries(s.now().In(s.loc), q.Granularity, q.Count)
	since := out.start()

	if q.Filter.IncludesStripe() {
		if err := s.addOnline(ctx, out, since, q.ProductID); err != nil {
			return nil, err
		}
	}
	if q.Filter.IncludesPayLater() {
		if err := s.addPayLater(ctx, out, since, q.ProductID); err != nil {
			return nil, err
		}
	}
	return out.result(), nil
}

func (s *service) addOnline(ctx context.Context, out *series, since time.Time, productID *uuid.UUID) error {
	orders, err := s.repo.ListConfirmedOnlineOrders(ctx, since)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list confirmed orders")
	}
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	best, err := s.best.BestPaymentsFor(ctx, ids, onlineSale)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select order payments")
	}

	for _, order := range orders {
		amount, units, ok := resolveOrder(order, best[order.ID], productID)
		if !ok {
			continue
		}
		at := order.CreatedAt
		if at.Before(since) {
			at = order.UpdatedAt
		}
		out.add(at, order.ID.String(), amount, units)
	}

	orphans, err := s.repo.ListOrphanPaidStripePayments(ctx, since)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orphan payments")
	}
	for _, p := range orphans {
		amount, units, ok := fromSnapshot(p, productID)
		if !ok {
			s.logg.Warn(s.logg.WithField(ctx, "payment_id", p.ID.String()), "paid payment without order or readable snapshot skipped")
			continue
		}
		out.add(p.UpdatedAt, "payment:"+p.ID.String(), amount, units)
	}
	return nil
}

func (s *service) addPayLater(ctx context.Context, out *series, since time.Time, productID *uuid.UUID) error {
	orders, err := s.repo.ListPayLaterOrders(ctx, since)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pay-later orders")
	}
	for _, order := range orders {
		var (
			amount decimal.Decimal
			units  int
			ok     bool
		)
		if productID == nil {
			amount, units, ok = order.TotalAmount, totalUnits(order.Items), true
		} else {
			amount, units, ok = fromItems(order.Items, productID)
		}
		if ok {
			out.add(order.UpdatedAt, order.ID.String(), amount, units)
		}
	}
	return nil
}

// resolveOrder picks the amount an online order contributes: the paid
// payment's lines first, then the order's own items, then the snapshot stored
// on the payment.
func resolveOrder(order models.CustomerOrder, best *models.Payment, productID *uuid.UUID) (decimal.Decimal, int, bool) {
	if best != nil {
		if amount, units, ok := fromPaymentLines(*best, order.Items, productID); ok {
			return amount, units, true
		}
	}
	if amount, units, ok := fromItems(order.Items, productID); ok {
		return amount, units, true
	}
	if best != nil {
		return fromSnapshot(*best, productID)
	}
	return decimal.Zero, 0, false
}

// fromPaymentLines reads processor minor units and normalizes them once.
func fromPaymentLines(p models.Payment, items []models.CustomerOrderItem, productID *uuid.UUID) (decimal.Decimal, int, bool) {
	minor := decimal.Zero
	units := 0
	for _, line := range p.Lines {
		if productID != nil && line.ProductID != *productID {
			continue
		}
		minor = minor.Add(line.Amount)
		units += line.Quantity
	}
	if minor.IsPositive() {
		return currency.FromMinor(minor, p.Currency), units, true
	}
	if len(p.Lines) == 0 && productID == nil && p.Amount.IsPositive() {
		return currency.FromMinor(p.Amount, p.Currency), totalUnits(items), true
	}
	return decimal.Zero, 0, false
}

func fromItems(items []models.CustomerOrderItem, productID *uuid.UUID) (decimal.Decimal, int, bool) {
	amount := decimal.Zero
	units := 0
	for _, item := range items {
		if productID != nil && item.ProductID != *productID {
			continue
		}
		amount = amount.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		units += item.Quantity
	}
	return amount, units, units > 0
}

// fromSnapshot degrades to no contribution when the snapshot is missing or
// unreadable.
func fromSnapshot(p models.Payment, productID *uuid.UUID) (decimal.Decimal, int, bool) {
	snap, ok := customerorders.ParseSnapshot(p.Metadata.String(customerorders.SnapshotMetadataKey))
	if !ok {
		return decimal.Zero, 0, false
	}
	amount := decimal.Zero
	units := 0
	for _, item := range snap.Items {
		if productID != nil && item.ProductID != *productID {
			continue
		}
		amount = amount.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		units += item.Quantity
	}
	if units > 0 {
		return amount, units, true
	}
	if productID == nil && snap.Total.IsPositive() {
		return snap.Total, 0, true
	}
	return decimal.Zero, 0, false
}

func totalUnits(items []models.CustomerOrderItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
