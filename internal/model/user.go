package model

import "time"

// Roles understood by the role middleware.  Staff roles gate the internal
// portal; CUSTOMER is the only role self-registration can produce.
const (
	RoleAdmin     = "ADMIN"
	RoleEmployee  = "EMPLOYEE"
	RoleSupport   = "SUPPORT"
	RoleInventory = "INVENTORY"
	RolePOS       = "POS"
	RoleCustomer  = "CUSTOMER"
)

// User is an account of the `users` table.  Customers and staff share it;
// the customer business record lives separately in `customers` and is tied
// to a user by email.
type User struct {
	ID           string    // users.id (uuid)
	Email        string    // users.email, unique
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	FullName     string    // users.full_name
	Phone        string    // users.phone
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
