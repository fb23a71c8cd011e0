package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/pkg/db/dbtest"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

func seedPayment(t *testing.T, db *gorm.DB, p models.Payment) models.Payment {
	t.Helper()
	if p.Currency == "" {
		p.Currency = "lkr"
	}
	if p.OrderKind == "" {
		p.OrderKind = enums.OrderKindCustomer
	}
	if p.Method == "" {
		p.Method = enums.PaymentMethodStripe
	}
	if p.Status == "" {
		p.Status = enums.PaymentStatusPending
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func strPtr(v string) *string { return &v }

func TestRepositoryFindByIntentAndUpdate(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	seeded := seedPayment(t, db, models.Payment{
		OrderID:               &orderID,
		Amount:                decimal.NewFromInt(125000),
		StripePaymentIntentID: strPtr("pi_123"),
	})

	found, err := repo.FindByIntent(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.True(t, found.Amount.Equal(decimal.NewFromInt(125000)))

	require.NoError(t, repo.UpdateStatus(ctx, seeded.ID, enums.PaymentStatusPaid))
	reloaded, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.Status)

	_, err = repo.FindByIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), enums.PaymentStatusPaid), gorm.ErrRecordNotFound)
}

func TestRepositoryIntentUniqueness(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.Payment{OrderKind: enums.OrderKindCustomer, Method: enums.PaymentMethodStripe, Status: enums.PaymentStatusPending, Amount: decimal.NewFromInt(1), Currency: "lkr", StripePaymentIntentID: strPtr("pi_dup")})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Payment{OrderKind: enums.OrderKindCustomer, Method: enums.PaymentMethodStripe, Status: enums.PaymentStatusPending, Amount: decimal.NewFromInt(1), Currency: "lkr", StripePaymentIntentID: strPtr("pi_dup")})
	require.Error(t, err)
}

func TestRepositoryListSlipBySupplierScopesRows(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	supplierA, supplierB := uuid.New(), uuid.New()
	mine := seedPayment(t, db, models.Payment{OrderID: &orderID, OrderKind: enums.OrderKindProcurement, SupplierID: &supplierA, Method: enums.PaymentMethodSlip, Amount: decimal.NewFromInt(500)})
	seedPayment(t, db, models.Payment{OrderID: &orderID, OrderKind: enums.OrderKindProcurement, SupplierID: &supplierB, Method: enums.PaymentMethodSlip, Amount: decimal.NewFromInt(540)})
	seedPayment(t, db, models.Payment{OrderID: &orderID, OrderKind: enums.OrderKindProcurement, SupplierID: &supplierA, Method: enums.PaymentMethodStripe, Amount: decimal.NewFromInt(500), StripePaymentIntentID: strPtr("pi_a")})

	rows, err := repo.ListSlipBySupplier(ctx, orderID, supplierA)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ID)

	all, err := repo.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepositoryBestPaymentFor(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	supplier := uuid.New()
	now := time.Now().UTC()
	seedPayment(t, db, models.Payment{OrderID: &orderID, Status: enums.PaymentStatusPending, Amount: decimal.NewFromInt(1), StripePaymentIntentID: strPtr("pi_1"), UpdatedAt: now.Add(time.Hour)})
	paid := seedPayment(t, db, models.Payment{OrderID: &orderID, Status: enums.PaymentStatusPaid, Amount: decimal.NewFromInt(1), StripePaymentIntentID: strPtr("pi_2")})
	seedPayment(t, db, models.Payment{OrderID: &orderID, Status: enums.PaymentStatusPaid, SupplierID: &supplier, Method: enums.PaymentMethodSlip, Amount: decimal.NewFromInt(1)})

	best, err := repo.BestPaymentFor(ctx, orderID, Filter{})
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, enums.PaymentStatusPaid, best.Status)

	best, err = repo.BestPaymentFor(ctx, orderID, Filter{Method: enums.PaymentMethodStripe, Status: enums.PaymentStatusPaid, CustomerFacing: true})
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, paid.ID, best.ID)

	none, err := repo.BestPaymentFor(ctx, uuid.New(), Filter{})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRepositoryBestPaymentsForBatch(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, second, bare := uuid.New(), uuid.New(), uuid.New()
	seedPayment(t, db, models.Payment{OrderID: &first, Status: enums.PaymentStatusFailed, Amount: decimal.NewFromInt(1), StripePaymentIntentID: strPtr("pi_a")})
	want := seedPayment(t, db, models.Payment{OrderID: &first, Status: enums.PaymentStatusRequiresAction, Amount: decimal.NewFromInt(1), StripePaymentIntentID: strPtr("pi_b")})
	seedPayment(t, db, models.Payment{OrderID: &second, OrderKind: enums.OrderKindProcurement, Status: enums.PaymentStatusPaid, Amount: decimal.NewFromInt(1), StripePaymentIntentID: strPtr("pi_c")})

	best, err := repo.BestPaymentsFor(ctx, []uuid.UUID{first, second, bare}, Filter{Kind: enums.OrderKindCustomer})
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, want.ID, best[first].ID)

	empty, err := repo.BestPaymentsFor(ctx, nil, Filter{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryListPaidPages(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedPayment(t, db, models.Payment{Status: enums.PaymentStatusPaid, Method: enums.PaymentMethodSlip, Amount: decimal.NewFromInt(int64(i))})
	}
	seedPayment(t, db, models.Payment{Status: enums.PaymentStatusFailed, Method: enums.PaymentMethodSlip, Amount: decimal.NewFromInt(9)})

	seen := map[uuid.UUID]bool{}
	cursor := uuid.Nil
	for {
		page, err := repo.ListPaid(ctx, cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			assert.Equal(t, enums.PaymentStatusPaid, p.Status)
			assert.False(t, seen[p.ID], "payment returned twice")
			seen[p.ID] = true
		}
		cursor = page[len(page)-1].ID
	}
	assert.Len(t, seen, 5)

	_, err := repo.ListPaid(ctx, uuid.Nil, 0)
	assert.Error(t, err)
}
