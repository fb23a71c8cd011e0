package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
)

// Archive snapshots a live order for the cancelled_orders table. A single
// supplier is kept as its id; several suppliers collapse into one summary
// string; the full id list is kept in SupplierIDs.
func Archive(order models.ProcurementOrder, reason string, actor uuid.UUID, at time.Time) models.ArchivedOrder {
	items := make([]models.ArchivedOrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.ArchivedOrderItem{
			ProductID:       item.ProductID,
			SupplierID:      item.SupplierID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			LineSubtotal:    item.LineSubtotal,
			DiscountPercent: item.DiscountPercent,
			DiscountValue:   item.DiscountValue,
			LineTotal:       item.LineTotal,
			SupplierStatus:  item.SupplierStatus,
		})
	}
	supplierIDs := order.SupplierIDs()
	ids := make(pq.StringArray, 0, len(supplierIDs))
	for _, id := range supplierIDs {
		ids = append(ids, id.String())
	}
	return models.ArchivedOrder{
		OriginalOrderID: order.ID,
		Supplier:        supplierSummary(supplierIDs),
		SupplierIDs:     ids,
		Items:           items,
		PreviousStatus:  order.Status,
		PaymentMethod:   order.PaymentMethod,
		Currency:        order.Currency,
		DiscountTotal:   order.DiscountTotal,
		TotalCost:       order.TotalCost,
		Reason:          strings.TrimSpace(reason),
		CancelledBy:     actor,
		OrderCreatedAt:  order.CreatedAt,
		CancelledAt:     at,
	}
}

func supplierSummary(ids []uuid.UUID) string {
	switch len(ids) {
	case 0:
		return "unknown"
	case 1:
		return ids[0].String()
	default:
		return fmt.Sprintf("Multiple suppliers (%d)", len(ids))
	}
}
