// Package catalog holds the read-only restaurant menu model: restaurants,
// their products, and the option groups configurable on each product.
// Catalog rows are maintained by out-of-band tooling (seeding, menu ingest);
// the order engine only ever reads them.
package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RestaurantNotFoundError indicates a requested restaurant does not exist.
type RestaurantNotFoundError struct {
	RestaurantID string
}

func (e *RestaurantNotFoundError) Error() string {
	return fmt.Sprintf("restaurant %s not found", e.RestaurantID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Restaurant is a merchant that owns products and fulfils orders.
type Restaurant struct {
	ID          string
	Name        string
	Category    string
	DeliveryFee decimal.Decimal
	// Active reports whether the restaurant is open for new orders.
	Active bool
}

// Product is a purchasable catalog item belonging to exactly one restaurant.
type Product struct {
	ID           string
	RestaurantID string
	Name         string
	BasePrice    decimal.Decimal
	Stock        int
	Available    bool
	OptionGroups []OptionGroup
}

// OptionGroup is a set of related choices on a product (size, add-ons) with
// selection cardinality bounds: 0 <= MinSelect <= MaxSelect, MaxSelect >= 1.
// A group with MinSelect == 0 is optional.
type OptionGroup struct {
	ID        string
	ProductID string
	Name      string
	MinSelect int
	MaxSelect int
	Items     []OptionItem
}

// OptionItem is one selectable choice within a group. Its price is added to
// the product base price when selected.
type OptionItem struct {
	ID      string
	GroupID string
	Name    string
	Price   decimal.Decimal
}

// Repository defines read operations over the catalog. GetProduct returns the
// product with its option groups and items fully loaded, since pricing needs
// the complete option tree.
type Repository interface {
	GetRestaurant(ctx context.Context, id string) (*Restaurant, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
}
