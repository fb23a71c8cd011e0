package discounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/toolyard-backend/internal/authz"
	"github.com/angelmondragon/toolyard-backend/pkg/db"
	"github.com/angelmondragon/toolyard-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Service manages supplier discount offers.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*models.SupplierDiscount, error)
	ListBySupplier(ctx context.Context, actor authz.Actor, supplierID uuid.UUID) ([]models.SupplierDiscount, error)
}

// CreateInput describes a new discount tier.
type CreateInput struct {
	SupplierID      uuid.UUID
	ProductID       uuid.UUID
	MinQuantity     int
	DiscountPercent decimal.Decimal
}

type service struct {
	repo  Repository
	check authz.Checker
}

// NewService builds the discount service.
func NewService(repo Repository, check authz.Checker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if check == nil {
		check = authz.Can
	}
	return &service{repo: repo, check: check}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*models.SupplierDiscount, error) {
	if err := authz.Require(s.check, actor, authz.PermDiscountsManage); err != nil {
		return nil, err
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplierId is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if input.MinQuantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minQuantity must be at least 1")
	}
	if !input.DiscountPercent.IsPositive() || input.DiscountPercent.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discountPercent must be within (0, 100]")
	}

	discount := &models.SupplierDiscount{
		SupplierID:      input.SupplierID,
		ProductID:       input.ProductID,
		MinQuantity:     input.MinQuantity,
		DiscountPercent: input.DiscountPercent.Round(2),
	}
	created, err := s.repo.Create(ctx, discount)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "discount tier already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create discount")
	}
	return created, nil
}

func (s *service) ListBySupplier(ctx context.Context, actor authz.Actor, supplierID uuid.UUID) ([]models.SupplierDiscount, error) {
	if err := authz.Require(s.check, actor, authz.PermDiscountsManage); err != nil {
		return nil, err
	}
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplierId is required")
	}
	rows, err := s.repo.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discounts")
	}
	return rows, nil
}
