package orders

import (
	"testing"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

func itemsWith(statuses ...enums.SupplierItemStatus) []models.ProcurementOrderItem {
	out := make([]models.ProcurementOrderItem, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, models.ProcurementOrderItem{SupplierStatus: st})
	}
	return out
}

func TestDeriveStatus(t *testing.T) {
	const (
		p = enums.SupplierItemStatusPending
		a = enums.SupplierItemStatusAccepted
		d = enums.SupplierItemStatusDeclined
	)
	cases := []struct {
		name  string
		items []models.ProcurementOrderItem
		want  enums.ProcurementOrderStatus
	}{
		{"empty", nil, enums.ProcurementOrderStatusPending},
		{"all pending", itemsWith(p, p), enums.ProcurementOrderStatusPending},
		{"partly accepted", itemsWith(a, p), enums.ProcurementOrderStatusPending},
		{"all accepted", itemsWith(a, a, a), enums.ProcurementOrderStatusOrdered},
		{"one declined among accepted", itemsWith(a, d, a), enums.ProcurementOrderStatusDeclined},
		{"declined with pending", itemsWith(p, d), enums.ProcurementOrderStatusDeclined},
		{"single accepted", itemsWith(a), enums.ProcurementOrderStatusOrdered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.items); got != tc.want {
				t.Fatalf("DeriveStatus() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestActionMappings(t *testing.T) {
	if itemStatusFor(enums.SupplierActionAccept) != enums.SupplierItemStatusAccepted {
		t.Fatal("accept should mark items accepted")
	}
	if itemStatusFor(enums.SupplierActionDecline) != enums.SupplierItemStatusDeclined {
		t.Fatal("decline should mark items declined")
	}
	if paymentStatusFor(enums.SupplierActionAccept) != enums.PaymentStatusPaid {
		t.Fatal("accept should settle the supplier payment")
	}
	if paymentStatusFor(enums.SupplierActionDecline) != enums.PaymentStatusFailed {
		t.Fatal("decline should fail the supplier payment")
	}
}
