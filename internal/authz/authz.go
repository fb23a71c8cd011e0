// Package authz maps platform roles to capabilities. Services receive a
// Checker and ask it once per operation instead of testing roles inline.
package authz

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
)

type Permission string

const (
	PermOrdersCreate         Permission = "orders:create"
	PermOrdersRead           Permission = "orders:read"
	PermOrdersCancel         Permission = "orders:cancel"
	PermOrdersRespond        Permission = "orders:respond"
	PermSupplierOrdersRead   Permission = "orders:read_own"
	PermPaymentsUpdateStatus Permission = "payments:update_status"
	PermPaymentsManualStatus Permission = "payments:manual_status"
	PermDiscountsManage      Permission = "discounts:manage"
	PermReportsRead          Permission = "reports:read"
	PermCheckoutCreate       Permission = "checkout:create"
)

var rolePermissions = map[enums.ActorRole]map[Permission]struct{}{
	enums.ActorRoleAdmin: set(
		PermOrdersCreate,
		PermOrdersRead,
		PermOrdersCancel,
		PermPaymentsUpdateStatus,
		PermPaymentsManualStatus,
		PermDiscountsManage,
		PermReportsRead,
	),
	enums.ActorRoleSupplier: set(
		PermOrdersRespond,
		PermSupplierOrdersRead,
	),
	enums.ActorRoleCustomer: set(
		PermCheckoutCreate,
	),
}

func set(perms ...Permission) map[Permission]struct{} {
	out := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		out[p] = struct{}{}
	}
	return out
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.ActorRole
	SupplierID *uuid.UUID
}

// Checker answers whether an actor holds every listed permission.
type Checker func(actor Actor, perms ...Permission) bool

// Can is the default Checker backed by the static role table.
func Can(actor Actor, perms ...Permission) bool {
	if actor.UserID == uuid.Nil {
		return false
	}
	granted, ok := rolePermissions[actor.Role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if _, ok := granted[p]; !ok {
			return false
		}
	}
	if actor.Role == enums.ActorRoleSupplier && actor.SupplierID == nil {
		return false
	}
	return true
}

// Require converts a failed check into a FORBIDDEN error.
func Require(check Checker, actor Actor, perms ...Permission) error {
	if check == nil {
		check = Can
	}
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !check(actor, perms...) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions")
	}
	return nil
}
