package order

import (
	"github.com/pratodigital/delivery-api/internal/domain/account"
)

// canAccess is the role-based access predicate over a loaded order:
//
//   - a customer sees only their own orders,
//   - a restaurant actor sees only orders placed against their restaurant,
//   - a courier sees only orders they are assigned to.
//
// Admin bypass is a boundary-layer decision, not part of this predicate.
// customerID is the acting account's resolved customer profile id (empty when
// the account has none).
func canAccess(actor account.Actor, customerID string, o *Order) bool {
	switch actor.Role {
	case account.RoleCustomer:
		return customerID != "" && o.CustomerID == customerID
	case account.RoleRestaurant:
		return actor.RestaurantID != "" && o.RestaurantID == actor.RestaurantID
	case account.RoleCourier:
		return o.CourierID != nil && *o.CourierID == actor.AccountID
	}
	return false
}
