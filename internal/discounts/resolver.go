package discounts

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
)

// Resolve picks the best offer whose threshold the quantity meets: highest
// percent, then highest MinQuantity, then earliest in input order. It returns
// nil when nothing qualifies.
func Resolve(quantity int, offers []models.SupplierDiscount) *models.SupplierDiscount {
	if quantity <= 0 {
		return nil
	}
	var best *models.SupplierDiscount
	for i := range offers {
		offer := &offers[i]
		if quantity < offer.MinQuantity {
			continue
		}
		if best == nil {
			best = offer
			continue
		}
		switch cmp := offer.DiscountPercent.Cmp(best.DiscountPercent); {
		case cmp > 0:
			best = offer
		case cmp == 0 && offer.MinQuantity > best.MinQuantity:
			best = offer
		}
	}
	return best
}

// ForSupplier narrows offers to the ones published by supplierID.
func ForSupplier(offers []models.SupplierDiscount, supplierID uuid.UUID) []models.SupplierDiscount {
	out := make([]models.SupplierDiscount, 0, len(offers))
	for _, offer := range offers {
		if offer.SupplierID == supplierID {
			out = append(out, offer)
		}
	}
	return out
}
