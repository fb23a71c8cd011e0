package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// Repository persists payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByIntent(ctx context.Context, intentID string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	ListSlipBySupplier(ctx context.Context, orderID, supplierID uuid.UUID) ([]models.Payment, error)
	BestPaymentFor(ctx context.Context, orderID uuid.UUID, filter Filter) (*models.Payment, error)
	BestPaymentsFor(ctx context.Context, orderIDs []uuid.UUID, filter Filter) (map[uuid.UUID]*models.Payment, error)
	ListPaid(ctx context.Context, after uuid.UUID, limit int) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByID row-locks the payment on postgres so concurrent transitions serialize.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.locked(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.locked(ctx).Where("stripe_payment_intent_id = ?", intentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListSlipBySupplier(ctx context.Context, orderID, supplierID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND supplier_id = ? AND method = ?", orderID, supplierID, enums.PaymentMethodSlip).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// BestPaymentFor returns the single representative payment of an order, or nil
// when no payment passes the filter.
func (r *repository) BestPaymentFor(ctx context.Context, orderID uuid.UUID, filter Filter) (*models.Payment, error) {
	best, err := r.BestPaymentsFor(ctx, []uuid.UUID{orderID}, filter)
	if err != nil {
		return nil, err
	}
	return best[orderID], nil
}

// BestPaymentsFor is BestPaymentFor over many orders in one query. Orders
// without a matching payment are absent from the result.
func (r *repository) BestPaymentsFor(ctx context.Context, orderIDs []uuid.UUID, filter Filter) (map[uuid.UUID]*models.Payment, error) {
	out := make(map[uuid.UUID]*models.Payment, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	q := r.db.WithContext(ctx).Where("order_id IN ?", orderIDs)
	if filter.Kind != "" {
		q = q.Where("order_kind = ?", filter.Kind)
	}
	if filter.Method != "" {
		q = q.Where("method = ?", filter.Method)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CustomerFacing {
		q = q.Where("supplier_id IS NULL")
	}
	var rows []models.Payment
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	byOrder := make(map[uuid.UUID][]models.Payment, len(orderIDs))
	for _, p := range rows {
		byOrder[*p.OrderID] = append(byOrder[*p.OrderID], p)
	}
	for id, candidates := range byOrder {
		out[id] = SelectBest(candidates)
	}
	return out, nil
}

// ListPaid pages through paid payments ordered by id, starting after the cursor.
func (r *repository) ListPaid(ctx context.Context, after uuid.UUID, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	q := r.db.WithContext(ctx).Where("status = ?", enums.PaymentStatusPaid)
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	var rows []models.Payment
	err := q.Order("id ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) locked(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
