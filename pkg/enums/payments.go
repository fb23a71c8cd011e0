package enums

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusRequiresAction PaymentStatus = "requires_action"
	PaymentStatusPaid           PaymentStatus = "paid"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusCanceled       PaymentStatus = "canceled"
)

var paymentStatuses = set("payment status",
	PaymentStatusPending, PaymentStatusRequiresAction, PaymentStatusPaid,
	PaymentStatusFailed, PaymentStatusCanceled)

func (p PaymentStatus) IsValid() bool { return paymentStatuses.has(p) }

func ParsePaymentStatus(raw string) (PaymentStatus, error) { return paymentStatuses.parse(raw) }

// PaymentMethod is how a procurement payment is settled.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodSlip   PaymentMethod = "slip"
)

var paymentMethods = set("payment method", PaymentMethodStripe, PaymentMethodSlip)

func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) { return paymentMethods.parse(raw) }

// PaymentChannel is the checkout choice between paying now and later.
type PaymentChannel string

const (
	PaymentChannelStripe   PaymentChannel = "stripe"
	PaymentChannelPayLater PaymentChannel = "pay_later"
)

var paymentChannels = set("payment channel", PaymentChannelStripe, PaymentChannelPayLater)

func (c PaymentChannel) IsValid() bool { return paymentChannels.has(c) }

func ParsePaymentChannel(raw string) (PaymentChannel, error) { return paymentChannels.parse(raw) }
