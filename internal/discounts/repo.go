package discounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
)

// Repository persists supplier discount offers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, discount *models.SupplierDiscount) (*models.SupplierDiscount, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierDiscount, error)
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]models.SupplierDiscount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a discount repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, discount *models.SupplierDiscount) (*models.SupplierDiscount, error) {
	if err := r.db.WithContext(ctx).Create(discount).Error; err != nil {
		return nil, err
	}
	return discount, nil
}

func (r *repository) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierDiscount, error) {
	var rows []models.SupplierDiscount
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("product_id ASC").
		Order("min_quantity ASC").
		Find(&rows).Error
	return rows, err
}

// ListByProducts groups offers per product, each group in creation order.
func (r *repository) ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]models.SupplierDiscount, error) {
	out := make(map[uuid.UUID][]models.SupplierDiscount, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []models.SupplierDiscount
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = append(out[row.ProductID], row)
	}
	return out, nil
}
