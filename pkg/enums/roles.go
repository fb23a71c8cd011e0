package enums

// ActorRole is the platform role carried in access tokens.
type ActorRole string

const (
	ActorRoleAdmin    ActorRole = "admin"
	ActorRoleSupplier ActorRole = "supplier"
	ActorRoleCustomer ActorRole = "customer"
)

func (r ActorRole) IsValid() bool {
	return r == ActorRoleAdmin || r == ActorRoleSupplier || r == ActorRoleCustomer
}
