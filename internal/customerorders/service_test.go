package customerorders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/internal/payments"
	"github.com/angelmondragon/toolyard-backend/pkg/db/dbtest"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/outbox"
	pkgstripe "github.com/angelmondragon/toolyard-backend/pkg/stripe"
)

type stubIntents struct {
	requests []pkgstripe.PaymentIntentRequest
	err      error
}

func (s *stubIntents) CreatePaymentIntent(ctx context.Context, req pkgstripe.PaymentIntentRequest) (*stripe.PaymentIntent, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.PaymentIntent{ID: "pi_" + uuid.NewString(), ClientSecret: "secret_123"}, nil
}

type nopOutbox struct{}

func (nopOutbox) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error { return nil }

func newCheckout(t *testing.T, intents pkgstripe.PaymentIntentCreator) (Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	tx := dbtest.TxRunner{DB: db}
	paySvc, err := payments.NewService(payments.NewRepository(db), tx, nopOutbox{}, nil, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), true)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), tx, paySvc, intents, authz.Can, "LKR")
	require.NoError(t, err)
	return svc, db
}

func customer() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
}

func basket() []CheckoutItem {
	return []CheckoutItem{
		{ProductID: uuid.New(), Name: "Cordless drill", Quantity: 1, Price: decimal.RequireFromString("15000")},
		{ProductID: uuid.New(), Name: "Drill bits", Quantity: 3, Price: decimal.RequireFromString("750.50")},
	}
}

func TestCheckoutStripeCreatesPendingOrderAndPayment(t *testing.T) {
	intents := &stubIntents{}
	svc, db := newCheckout(t, intents)

	result, err := svc.Checkout(context.Background(), CheckoutInput{Actor: customer(), Channel: enums.PaymentChannelStripe, Items: basket()})
	require.NoError(t, err)

	assert.Equal(t, enums.CustomerOrderStatusPending, result.Order.Status)
	assert.True(t, result.Order.TotalAmount.Equal(decimal.RequireFromString("17251.5")))
	assert.Equal(t, "lkr", result.Order.Currency)
	assert.Equal(t, "secret_123", result.ClientSecret)

	require.Len(t, intents.requests, 1)
	assert.Equal(t, int64(1725150), intents.requests[0].Amount)
	assert.Equal(t, result.Order.ID.String(), intents.requests[0].Metadata["order_id"])

	require.NotNil(t, result.Payment)
	assert.Equal(t, enums.PaymentStatusPending, result.Payment.Status)
	assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(1725150)))

	var stored models.Payment
	require.NoError(t, db.First(&stored, "id = ?", result.Payment.ID).Error)
	snapshot, ok := ParseSnapshot(stored.Metadata.String(SnapshotMetadataKey))
	require.True(t, ok)
	assert.Len(t, snapshot.Items, 2)
	assert.True(t, snapshot.Total.Equal(result.Order.TotalAmount))
	require.Len(t, stored.Lines, 2)
	assert.True(t, stored.Lines[1].Amount.Equal(decimal.NewFromInt(225150)))
}

func TestCheckoutKeepsSnapshotOutOfStripeMetadata(t *testing.T) {
	intents := &stubIntents{}
	svc, db := newCheckout(t, intents)

	items := make([]CheckoutItem, 0, 12)
	for i := range 12 {
		items = append(items, CheckoutItem{
			ProductID: uuid.New(),
			Name:      fmt.Sprintf("Impact driver bit set %d", i),
			Quantity:  2,
			Price:     decimal.RequireFromString("1250.50"),
		})
	}
	result, err := svc.Checkout(context.Background(), CheckoutInput{Actor: customer(), Channel: enums.PaymentChannelStripe, Items: items})
	require.NoError(t, err)

	require.Len(t, intents.requests, 1)
	sent := intents.requests[0].Metadata
	assert.NotContains(t, sent, SnapshotMetadataKey)
	assert.Equal(t, string(enums.OrderKindCustomer), sent["order_kind"])
	for k, v := range sent {
		assert.LessOrEqual(t, len(v), pkgstripe.MaxMetadataValueLen, k)
	}

	var stored models.Payment
	require.NoError(t, db.First(&stored, "id = ?", result.Payment.ID).Error)
	snapshot, ok := ParseSnapshot(stored.Metadata.String(SnapshotMetadataKey))
	require.True(t, ok)
	assert.Len(t, snapshot.Items, 12)
}

func TestCheckoutPayLaterCreatesNoPayment(t *testing.T) {
	intents := &stubIntents{}
	svc, db := newCheckout(t, intents)

	result, err := svc.Checkout(context.Background(), CheckoutInput{Actor: customer(), Channel: enums.PaymentChannelPayLater, Items: basket()})
	require.NoError(t, err)
	assert.Nil(t, result.Payment)
	assert.Empty(t, intents.requests)

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	assert.EqualValues(t, 0, count)

	loaded, err := svc.Get(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 2)
}

func TestCheckoutErrors(t *testing.T) {
	ctx := context.Background()

	svc, _ := newCheckout(t, &stubIntents{err: errors.New("card declined")})
	_, err := svc.Checkout(ctx, CheckoutInput{Actor: customer(), Channel: enums.PaymentChannelStripe, Items: basket()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream), "got %v", err)

	noStripe, _ := newCheckout(t, nil)
	_, err = noStripe.Checkout(ctx, CheckoutInput{Actor: customer(), Channel: enums.PaymentChannelStripe, Items: basket()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	admin := authz.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	_, err = noStripe.Checkout(ctx, CheckoutInput{Actor: admin, Channel: enums.PaymentChannelPayLater, Items: basket()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	bad := basket()
	bad[1].Quantity = 0
	_, err = noStripe.Checkout(ctx, CheckoutInput{Actor: customer(), Channel: enums.PaymentChannelPayLater, Items: bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = noStripe.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}
