package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// Repository reads the rows that feed sales reports.
type Repository interface {
	ListConfirmedOnlineOrders(ctx context.Context, since time.Time) ([]models.CustomerOrder, error)
	ListOrphanPaidStripePayments(ctx context.Context, since time.Time) ([]models.Payment, error)
	ListPayLaterOrders(ctx context.Context, since time.Time) ([]models.CustomerOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reports repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ListConfirmedOnlineOrders returns confirmed orders created or touched since
// the given time. Pay-later orders are reported separately.
func (r *repository) ListConfirmedOnlineOrders(ctx context.Context, since time.Time) ([]models.CustomerOrder, error) {
	var rows []models.CustomerOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", enums.CustomerOrderStatusConfirmed).
		Where("payment_channel <> ?", enums.PaymentChannelPayLater).
		Where("created_at >= ? OR updated_at >= ?", since, since).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListOrphanPaidStripePayments returns customer-facing paid card payments that
// never got an order row.
func (r *repository) ListOrphanPaidStripePayments(ctx context.Context, since time.Time) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id IS NULL AND supplier_id IS NULL").
		Where("method = ? AND status = ?", enums.PaymentMethodStripe, enums.PaymentStatusPaid).
		Where("updated_at >= ?", since).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPayLaterOrders(ctx context.Context, since time.Time) ([]models.CustomerOrder, error) {
	var rows []models.CustomerOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_channel = ?", enums.PaymentChannelPayLater).
		Where("status <> ?", enums.CustomerOrderStatusCanceled).
		Where("updated_at >= ?", since).
		Find(&rows).Error
	return rows, err
}
