package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateCustomerOrder    OutboxAggregateType = "customer_order"
	AggregateProcurementOrder OutboxAggregateType = "procurement_order"
	AggregatePayment          OutboxAggregateType = "payment"
	AggregateNotification     OutboxAggregateType = "notification"
)

var aggregateTypes = set("aggregate type",
	AggregateCustomerOrder, AggregateProcurementOrder, AggregatePayment, AggregateNotification)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(raw)
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderConfirmed         OutboxEventType = "order_confirmed"
	EventOrderCanceled          OutboxEventType = "order_canceled"
	EventSaleConfirmed          OutboxEventType = "sale_confirmed"
	EventOrderSupplierResponded OutboxEventType = "order_supplier_responded"
	EventOrderSupplierConfirmed OutboxEventType = "order_supplier_confirmed"
	EventPaymentStatusChanged   OutboxEventType = "payment_status_changed"
	EventNotificationRequested  OutboxEventType = "notification_requested"
)

func (e OutboxEventType) IsValid() bool {
	return set("",
		EventOrderCreated, EventOrderConfirmed, EventOrderCanceled, EventSaleConfirmed,
		EventOrderSupplierResponded, EventOrderSupplierConfirmed,
		EventPaymentStatusChanged, EventNotificationRequested,
	).has(e)
}

// AnalyticsEventType is the subset of event types the analytics worker loads
// into the warehouse.
type AnalyticsEventType string

const (
	AnalyticsEventSaleConfirmed          = AnalyticsEventType(EventSaleConfirmed)
	AnalyticsEventOrderSupplierConfirmed = AnalyticsEventType(EventOrderSupplierConfirmed)
)

var analyticsEventTypes = set("analytics event type",
	AnalyticsEventSaleConfirmed, AnalyticsEventOrderSupplierConfirmed)

func (a AnalyticsEventType) IsValid() bool { return analyticsEventTypes.has(a) }

func ParseAnalyticsEventType(raw string) (AnalyticsEventType, error) {
	return analyticsEventTypes.parse(raw)
}

// OutboxDLQErrorReason records why the relay gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// NotificationType classifies notification_requested payloads.
type NotificationType string

const (
	NotificationTypeOrderAlert   NotificationType = "order_alert"
	NotificationTypePaymentAlert NotificationType = "payment_alert"
)
