package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
)

func TestCan(t *testing.T) {
	supplierID := uuid.New()
	admin := Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	supplier := Actor{UserID: uuid.New(), Role: enums.ActorRoleSupplier, SupplierID: &supplierID}
	customer := Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}

	cases := []struct {
		name  string
		actor Actor
		perms []Permission
		want  bool
	}{
		{"admin creates orders", admin, []Permission{PermOrdersCreate}, true},
		{"admin cannot respond as supplier", admin, []Permission{PermOrdersRespond}, false},
		{"supplier responds", supplier, []Permission{PermOrdersRespond}, true},
		{"supplier cannot cancel", supplier, []Permission{PermOrdersCancel}, false},
		{"customer checks out", customer, []Permission{PermCheckoutCreate}, true},
		{"all perms required", admin, []Permission{PermReportsRead, PermCheckoutCreate}, false},
		{"supplier without supplier id", Actor{UserID: uuid.New(), Role: enums.ActorRoleSupplier}, []Permission{PermOrdersRespond}, false},
		{"anonymous", Actor{Role: enums.ActorRoleAdmin}, []Permission{PermReportsRead}, false},
		{"unknown role", Actor{UserID: uuid.New(), Role: "auditor"}, nil, false},
	}
	for _, tc := range cases {
		if got := Can(tc.actor, tc.perms...); got != tc.want {
			t.Fatalf("%s: Can = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	err := Require(nil, Actor{}, PermReportsRead)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	err = Require(nil, Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}, PermReportsRead)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	allowAll := func(Actor, ...Permission) bool { return true }
	if err := Require(allowAll, Actor{UserID: uuid.New()}, PermReportsRead); err != nil {
		t.Fatalf("expected injected checker to allow, got %v", err)
	}
}
