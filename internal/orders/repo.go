package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/pagination"
)

// Repository persists procurement orders, their items and their archive.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.ProcurementOrder) (*models.ProcurementOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProcurementOrder, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.ProcurementOrderItem, error)
	UpdateSupplierItems(ctx context.Context, orderID, supplierID uuid.UUID, status enums.SupplierItemStatus, at time.Time) (int64, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.ProcurementOrderStatus) error
	ListForSupplier(ctx context.Context, supplierID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProcurementOrder, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
	InsertArchive(ctx context.Context, archived *models.ArchivedOrder) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.ProcurementOrder) (*models.ProcurementOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads the order with items in their original order. On postgres the
// order row is locked so concurrent supplier responses serialize.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProcurementOrder, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.ProcurementOrder
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.ProcurementOrderItem, error) {
	var items []models.ProcurementOrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

// UpdateSupplierItems touches only the rows owned by supplierID.
func (r *repository) UpdateSupplierItems(ctx context.Context, orderID, supplierID uuid.UUID, status enums.SupplierItemStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProcurementOrderItem{}).
		Where("order_id = ? AND supplier_id = ?", orderID, supplierID).
		Updates(map[string]any{
			"supplier_status": status,
			"responded_at":    at,
			"updated_at":      at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.ProcurementOrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProcurementOrder{}).
		Where("id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListForSupplier pages newest-first through orders holding the supplier's
// items. Only that supplier's items are loaded.
func (r *repository) ListForSupplier(ctx context.Context, supplierID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProcurementOrder, error) {
	owned := r.db.Session(&gorm.Session{NewDB: true}).
		Model(&models.ProcurementOrderItem{}).
		Select("order_id").
		Where("supplier_id = ?", supplierID)

	var rows []models.ProcurementOrder
	err := r.db.WithContext(ctx).
		Where("id IN (?)", owned).
		Scopes(pagination.After(cursor)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("supplier_id = ?", supplierID).Order("position ASC")
		}).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Delete(ctx context.Context, orderID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&models.ProcurementOrderItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", orderID).Delete(&models.ProcurementOrder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) InsertArchive(ctx context.Context, archived *models.ArchivedOrder) error {
	return r.db.WithContext(ctx).Create(archived).Error
}
