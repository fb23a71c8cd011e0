package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/toolyard-backend/pkg/enums"
)

// Claims is the bearer token body issued by the identity provider.
type Claims struct {
	UserID     uuid.UUID       `json:"user_id"`
	Role       enums.ActorRole `json:"role"`
	SupplierID *uuid.UUID      `json:"supplier_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass. jwt.Parser calls it through
// jwt.ClaimsValidator.
func (c Claims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errors.New("user_id is required")
	case !c.Role.IsValid():
		return fmt.Errorf("invalid actor role %q", c.Role)
	case c.Role == enums.ActorRoleSupplier && c.SupplierID == nil:
		return errors.New("supplier tokens require a supplier id")
	}
	return nil
}
