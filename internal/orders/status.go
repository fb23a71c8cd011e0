package orders

import (
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// DeriveStatus computes the aggregate order status from per-item supplier
// responses: all Accepted is Ordered, any Declined is Declined, anything else
// stays Pending. An order without items is Pending.
func DeriveStatus(items []models.ProcurementOrderItem) enums.ProcurementOrderStatus {
	if len(items) == 0 {
		return enums.ProcurementOrderStatusPending
	}
	accepted := 0
	for _, item := range items {
		switch item.SupplierStatus {
		case enums.SupplierItemStatusDeclined:
			return enums.ProcurementOrderStatusDeclined
		case enums.SupplierItemStatusAccepted:
			accepted++
		}
	}
	if accepted == len(items) {
		return enums.ProcurementOrderStatusOrdered
	}
	return enums.ProcurementOrderStatusPending
}

func itemStatusFor(action enums.SupplierAction) enums.SupplierItemStatus {
	if action == enums.SupplierActionAccept {
		return enums.SupplierItemStatusAccepted
	}
	return enums.SupplierItemStatusDeclined
}

func paymentStatusFor(action enums.SupplierAction) enums.PaymentStatus {
	if action == enums.SupplierActionAccept {
		return enums.PaymentStatusPaid
	}
	return enums.PaymentStatusFailed
}
