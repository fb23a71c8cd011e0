package analytics

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox/payloads"
)

// SalesEventRow is one row of the sales_events table. Amount is NUMERIC in
// major currency units.
type SalesEventRow struct {
	EventID    string            `bigquery:"event_id"`
	EventType  string            `bigquery:"event_type"`
	OccurredAt time.Time         `bigquery:"occurred_at"`
	OrderID    string            `bigquery:"order_id"`
	SupplierID *string           `bigquery:"supplier_id"`
	PaymentID  *string           `bigquery:"payment_id"`
	Channel    *string           `bigquery:"channel"`
	Amount     *big.Rat          `bigquery:"amount"`
	Currency   string            `bigquery:"currency"`
	Units      *int64            `bigquery:"units"`
	Payload    bigquery.NullJSON `bigquery:"payload"`
}

type projection func(Event) (SalesEventRow, error)

var projections = map[enums.AnalyticsEventType]projection{
	enums.AnalyticsEventSaleConfirmed:          saleRow,
	enums.AnalyticsEventOrderSupplierConfirmed: supplierRow,
}

// Project maps an event to its warehouse row.
func Project(ev Event) (SalesEventRow, error) {
	project, ok := projections[ev.Type]
	if !ok {
		return SalesEventRow{}, fmt.Errorf("%w: %s", ErrUnsupported, ev.Type)
	}
	return project(ev)
}

func saleRow(ev Event) (SalesEventRow, error) {
	var sale payloads.SaleConfirmedEvent
	if err := decodeData(ev, &sale); err != nil {
		return SalesEventRow{}, err
	}
	row := baseRow(ev, sale.OccurredAt, sale.OrderID.String(), sale.Amount, sale.Currency)
	row.Channel = optional(string(sale.Channel))
	units := int64(sale.Units)
	row.Units = &units
	if sale.PaymentID != nil {
		row.PaymentID = optional(sale.PaymentID.String())
	}
	return row, nil
}

// supplierRow leaves units null: the event carries only the supplier's share.
func supplierRow(ev Event) (SalesEventRow, error) {
	var confirmed payloads.OrderSupplierConfirmedEvent
	if err := decodeData(ev, &confirmed); err != nil {
		return SalesEventRow{}, err
	}
	row := baseRow(ev, confirmed.Timestamp, confirmed.OrderID.String(), confirmed.Amount, confirmed.Currency)
	row.SupplierID = optional(confirmed.SupplierID.String())
	row.Channel = optional(string(enums.OrderKindProcurement))
	return row, nil
}

func decodeData(ev Event, into any) error {
	if err := json.Unmarshal(ev.Data, into); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, ev.Type, err)
	}
	return nil
}

func baseRow(ev Event, at time.Time, orderID string, amount decimal.Decimal, currency string) SalesEventRow {
	if at.IsZero() {
		at = ev.OccurredAt
	}
	return SalesEventRow{
		EventID:    ev.ID.String(),
		EventType:  string(ev.Type),
		OccurredAt: at.UTC(),
		OrderID:    orderID,
		Amount:     amount.Rat(),
		Currency:   strings.ToLower(strings.TrimSpace(currency)),
		Payload:    bigquery.NullJSON{JSONVal: string(ev.Data), Valid: true},
	}
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
