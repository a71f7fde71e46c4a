// Package account models the identities behind order operations: accounts,
// customer profiles, and delivery addresses. Authentication happens upstream;
// the order engine only consumes resolved actor ids and roles.
package account

import (
	"context"
	"fmt"
)

// Role enumerates the actor roles known to the order engine.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
	RoleCourier    Role = "courier"
	RoleAdmin      Role = "admin"
)

// Actor is the authenticated identity performing an operation. RestaurantID
// is set only for restaurant-role actors.
type Actor struct {
	AccountID    string
	Role         Role
	RestaurantID string
}

// Account is an authenticated principal. Disabled accounts may not place
// orders.
type Account struct {
	ID           string
	Role         Role
	Enabled      bool
	RestaurantID string
}

// Customer is the ordering profile owned by exactly one account.
type Customer struct {
	ID        string
	AccountID string
	Name      string
	Phone     string
}

// Address is a delivery address owned by exactly one account. Soft-deleted
// addresses are never returned by the repository.
type Address struct {
	ID         string
	AccountID  string
	Street     string
	Number     string
	District   string
	City       string
	State      string
	PostalCode string
}

// Format renders the address as a single line for snapshotting onto orders.
// The order keeps this string, not a live reference, so later edits to the
// address never rewrite order history.
func (a *Address) Format() string {
	return fmt.Sprintf("%s, %s - %s, %s/%s, %s",
		a.Street, a.Number, a.District, a.City, a.State, a.PostalCode)
}

// AccountNotFoundError indicates the acting account does not exist.
type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountID)
}

// CustomerNotFoundError indicates an account has no customer profile.
type CustomerNotFoundError struct {
	AccountID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("no customer profile for account %s", e.AccountID)
}

// AddressNotFoundError indicates a requested address does not exist.
type AddressNotFoundError struct {
	AddressID string
}

func (e *AddressNotFoundError) Error() string {
	return fmt.Sprintf("address %s not found", e.AddressID)
}

// Repository resolves accounts, customer profiles, and addresses.
type Repository interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetCustomerByAccount(ctx context.Context, accountID string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	GetAddress(ctx context.Context, id string) (*Address, error)
}
