package enums

// ProcurementOrderStatus is derived from the supplier item statuses of an
// admin procurement order.
type ProcurementOrderStatus string

const (
	ProcurementOrderStatusPending   ProcurementOrderStatus = "Pending"
	ProcurementOrderStatusOrdered   ProcurementOrderStatus = "Ordered"
	ProcurementOrderStatusDeclined  ProcurementOrderStatus = "Declined"
	ProcurementOrderStatusCancelled ProcurementOrderStatus = "Cancelled"
)

var procurementOrderStatuses = set("procurement order status",
	ProcurementOrderStatusPending, ProcurementOrderStatusOrdered,
	ProcurementOrderStatusDeclined, ProcurementOrderStatusCancelled)

func (s ProcurementOrderStatus) IsValid() bool { return procurementOrderStatuses.has(s) }

// SupplierItemStatus is one supplier's response on a procurement line.
type SupplierItemStatus string

const (
	SupplierItemStatusPending  SupplierItemStatus = "Pending"
	SupplierItemStatusAccepted SupplierItemStatus = "Accepted"
	SupplierItemStatusDeclined SupplierItemStatus = "Declined"
)

var supplierItemStatuses = set("supplier item status",
	SupplierItemStatusPending, SupplierItemStatusAccepted, SupplierItemStatusDeclined)

func (s SupplierItemStatus) IsValid() bool { return supplierItemStatuses.has(s) }

// SupplierAction is what a supplier sends to the respond endpoint.
type SupplierAction string

const (
	SupplierActionAccept  SupplierAction = "accept"
	SupplierActionDecline SupplierAction = "decline"
)

func (a SupplierAction) IsValid() bool {
	return a == SupplierActionAccept || a == SupplierActionDecline
}

// CustomerOrderStatus tracks a retail order placed through checkout.
type CustomerOrderStatus string

const (
	CustomerOrderStatusPending   CustomerOrderStatus = "Pending"
	CustomerOrderStatusConfirmed CustomerOrderStatus = "Confirmed"
	CustomerOrderStatusCanceled  CustomerOrderStatus = "Canceled"
)

func (s CustomerOrderStatus) IsValid() bool {
	return set("", CustomerOrderStatusPending, CustomerOrderStatusConfirmed, CustomerOrderStatusCanceled).has(s)
}

// OrderKind says which table a payment's order_id points at.
type OrderKind string

const (
	OrderKindCustomer    OrderKind = "customer"
	OrderKindProcurement OrderKind = "procurement"
)

func (k OrderKind) IsValid() bool { return k == OrderKindCustomer || k == OrderKindProcurement }
