// Package dbtest opens isolated in-memory sqlite databases carrying the
// subset of the Postgres schema repository tests need.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const procurementOrders = `
CREATE TABLE IF NOT EXISTS procurement_orders (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL DEFAULT 'Pending',
  payment_method TEXT NOT NULL,
  currency TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  discount_total TEXT NOT NULL DEFAULT '0',
  total_cost TEXT NOT NULL,
  contact TEXT,
  notes TEXT,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`

const procurementOrderItems = `
CREATE TABLE IF NOT EXISTS procurement_order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES procurement_orders(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  supplier_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_subtotal TEXT NOT NULL,
  discount_percent TEXT NOT NULL DEFAULT '0',
  discount_value TEXT NOT NULL DEFAULT '0',
  line_total TEXT NOT NULL,
  supplier_status TEXT NOT NULL DEFAULT 'Pending',
  responded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`

const cancelledOrders = `
CREATE TABLE IF NOT EXISTS cancelled_orders (
  id TEXT PRIMARY KEY,
  original_order_id TEXT NOT NULL,
  supplier TEXT NOT NULL,
  supplier_ids TEXT,
  items TEXT,
  previous_status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  currency TEXT NOT NULL,
  discount_total TEXT NOT NULL,
  total_cost TEXT NOT NULL,
  reason TEXT NOT NULL,
  cancelled_by TEXT NOT NULL,
  order_created_at DATETIME NOT NULL,
  cancelled_at DATETIME NOT NULL,
  created_at DATETIME
);`

const customerOrders = `
CREATE TABLE IF NOT EXISTS customer_orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Pending',
  payment_channel TEXT NOT NULL,
  currency TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  confirmed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`

const customerOrderItems = `
CREATE TABLE IF NOT EXISTS customer_order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES customer_orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price TEXT NOT NULL,
  created_at DATETIME
);`

const payments = `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT,
  order_kind TEXT NOT NULL,
  supplier_id TEXT,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  stripe_session_id TEXT,
  stripe_payment_intent_id TEXT UNIQUE,
  slip_file_ref TEXT,
  slip_uploaded_by TEXT,
  lines TEXT,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`

const supplierDiscounts = `
CREATE TABLE IF NOT EXISTS supplier_discounts (
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  min_quantity INTEGER NOT NULL,
  discount_percent TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (supplier_id, product_id, min_quantity)
);`

const outboxEvents = `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

const outboxOnceIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate
  ON outbox_events (event_type, aggregate_type, aggregate_id)
  WHERE event_type IN ('order_confirmed', 'sale_confirmed');`

const outboxDLQ = `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`

var schema = []string{
	procurementOrders,
	procurementOrderItems,
	cancelledOrders,
	customerOrders,
	customerOrderItems,
	payments,
	supplierDiscounts,
	outboxEvents,
	outboxOnceIndex,
	outboxDLQ,
}

// Open returns a fresh in-memory database with every table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// TxRunner adapts a gorm handle to the WithTx contract services depend on.
type TxRunner struct {
	DB *gorm.DB
}

func (r TxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}
