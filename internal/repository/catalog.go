package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratodigital/delivery-api/internal/domain/catalog"
)

const (
	getRestaurantSQL = `SELECT id, name, category, delivery_fee, active
		FROM restaurants WHERE id = $1`

	getProductSQL = `SELECT id, restaurant_id, name, base_price, stock, available
		FROM products WHERE id = $1`

	getOptionGroupsSQL = `SELECT g.id, g.product_id, g.name, g.min_select, g.max_select
		FROM option_groups g WHERE g.product_id = $1 ORDER BY g.id`

	getOptionItemsSQL = `SELECT i.id, i.group_id, i.name, i.price
		FROM option_items i
		JOIN option_groups g ON g.id = i.group_id
		WHERE g.product_id = $1 ORDER BY i.id`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetRestaurant returns a restaurant by id.
func (r *CatalogRepository) GetRestaurant(ctx context.Context, id string) (*catalog.Restaurant, error) {
	rows, err := r.pool.Query(ctx, getRestaurantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting restaurant %q: %w", id, err)
	}

	rest, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &catalog.RestaurantNotFoundError{RestaurantID: id}
		}
		return nil, fmt.Errorf("getting restaurant %q: %w", id, err)
	}
	return &rest, nil
}

// GetProduct returns a product by id with its option groups and items loaded.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &catalog.ProductNotFoundError{ProductID: id}
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	groups, err := r.loadOptionGroups(ctx, id)
	if err != nil {
		return nil, err
	}
	p.OptionGroups = groups

	return &p, nil
}

// loadOptionGroups fetches groups and their items for a product in two
// queries and assembles the tree in memory.
func (r *CatalogRepository) loadOptionGroups(ctx context.Context, productID string) ([]catalog.OptionGroup, error) {
	rows, err := r.pool.Query(ctx, getOptionGroupsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("getting option groups for product %q: %w", productID, err)
	}
	groups, err := pgx.CollectRows(rows, scanOptionGroup)
	if err != nil {
		return nil, fmt.Errorf("getting option groups for product %q: %w", productID, err)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	rows, err = r.pool.Query(ctx, getOptionItemsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("getting option items for product %q: %w", productID, err)
	}
	items, err := pgx.CollectRows(rows, scanOptionItem)
	if err != nil {
		return nil, fmt.Errorf("getting option items for product %q: %w", productID, err)
	}

	byGroup := make(map[string]int, len(groups))
	for i := range groups {
		byGroup[groups[i].ID] = i
	}
	for _, item := range items {
		if gi, ok := byGroup[item.GroupID]; ok {
			groups[gi].Items = append(groups[gi].Items, item)
		}
	}

	return groups, nil
}

func scanRestaurant(row pgx.CollectableRow) (catalog.Restaurant, error) {
	var rest catalog.Restaurant
	err := row.Scan(&rest.ID, &rest.Name, &rest.Category, &rest.DeliveryFee, &rest.Active)
	return rest, err
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.RestaurantID, &p.Name, &p.BasePrice, &p.Stock, &p.Available)
	return p, err
}

func scanOptionGroup(row pgx.CollectableRow) (catalog.OptionGroup, error) {
	var g catalog.OptionGroup
	err := row.Scan(&g.ID, &g.ProductID, &g.Name, &g.MinSelect, &g.MaxSelect)
	return g, err
}

func scanOptionItem(row pgx.CollectableRow) (catalog.OptionItem, error) {
	var i catalog.OptionItem
	err := row.Scan(&i.ID, &i.GroupID, &i.Name, &i.Price)
	return i, err
}
