package discounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
)

type stubRepo struct {
	created []models.SupplierDiscount
	listed  uuid.UUID
}

func (s *stubRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, d *models.SupplierDiscount) (*models.SupplierDiscount, error) {
	s.created = append(s.created, *d)
	return d, nil
}

func (s *stubRepo) ListBySupplier(_ context.Context, supplierID uuid.UUID) ([]models.SupplierDiscount, error) {
	s.listed = supplierID
	return []models.SupplierDiscount{{SupplierID: supplierID}}, nil
}

func (s *stubRepo) ListByProducts(context.Context, []uuid.UUID) (map[uuid.UUID][]models.SupplierDiscount, error) {
	return nil, nil
}

func adminActor() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func TestServiceCreateValidates(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	valid := CreateInput{
		SupplierID:      uuid.New(),
		ProductID:       uuid.New(),
		MinQuantity:     10,
		DiscountPercent: decimal.RequireFromString("12.345"),
	}

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing supplier", func(in *CreateInput) { in.SupplierID = uuid.Nil }},
		{"missing product", func(in *CreateInput) { in.ProductID = uuid.Nil }},
		{"zero min quantity", func(in *CreateInput) { in.MinQuantity = 0 }},
		{"zero percent", func(in *CreateInput) { in.DiscountPercent = decimal.Zero }},
		{"over one hundred percent", func(in *CreateInput) { in.DiscountPercent = decimal.NewFromInt(101) }},
	}
	for _, tc := range cases {
		in := valid
		tc.mutate(&in)
		_, err := svc.Create(context.Background(), adminActor(), in)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	created, err := svc.Create(context.Background(), adminActor(), valid)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.DiscountPercent.Equal(decimal.RequireFromString("12.35")) {
		t.Fatalf("expected percent rounded to 2dp, got %s", created.DiscountPercent)
	}
}

func TestServiceRequiresPermission(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := NewService(repo, nil)
	supplierID := uuid.New()
	supplier := authz.Actor{UserID: uuid.New(), Role: enums.ActorRoleSupplier, SupplierID: &supplierID}

	_, err := svc.ListBySupplier(context.Background(), supplier, supplierID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if repo.listed != uuid.Nil {
		t.Fatal("repository should not be queried when forbidden")
	}

	rows, err := svc.ListBySupplier(context.Background(), adminActor(), supplierID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected admin list to succeed, rows=%d err=%v", len(rows), err)
	}
}
