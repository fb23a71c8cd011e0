package payments

import "github.com/angelmondragon/toolyard-backend/pkg/enums"

var allowedTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {
		enums.PaymentStatusRequiresAction,
		enums.PaymentStatusPaid,
		enums.PaymentStatusFailed,
		enums.PaymentStatusCanceled,
	},
	enums.PaymentStatusRequiresAction: {
		enums.PaymentStatusPaid,
		enums.PaymentStatusFailed,
	},
}

// CanTransition reports whether a payment may move from one status to another.
// Without strict mode any valid status may overwrite any other.
func CanTransition(from, to enums.PaymentStatus, strict bool) bool {
	if !to.IsValid() {
		return false
	}
	if from == to || !strict {
		return true
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
