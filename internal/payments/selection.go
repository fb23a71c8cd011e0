package payments

import (
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

func statusRank(status enums.PaymentStatus) int {
	switch status {
	case enums.PaymentStatusPaid:
		return 3
	case enums.PaymentStatusRequiresAction:
		return 2
	case enums.PaymentStatusPending:
		return 1
	default:
		return 0
	}
}

// SelectBest returns the payment that represents an order: paid before
// requires_action before pending before anything else, then the most recently
// updated, then the most recently created. Remaining ties keep input order.
func SelectBest(candidates []models.Payment) *models.Payment {
	var best *models.Payment
	for i := range candidates {
		p := &candidates[i]
		if best == nil || better(p, best) {
			best = p
		}
	}
	return best
}

func better(a, b *models.Payment) bool {
	if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
		return ra > rb
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Filter narrows candidate payments. Zero values match everything.
type Filter struct {
	Kind   enums.OrderKind
	Method enums.PaymentMethod
	Status enums.PaymentStatus
	// CustomerFacing excludes payments attached to a supplier.
	CustomerFacing bool
}

// Matches reports whether p passes the filter.
func (f Filter) Matches(p models.Payment) bool {
	if f.Kind != "" && p.OrderKind != f.Kind {
		return false
	}
	if f.Method != "" && p.Method != f.Method {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.CustomerFacing && p.SupplierID != nil {
		return false
	}
	return true
}
