// Command seed-db loads a demo dataset into the database: one restaurant
// with a small menu, a customer with a delivery address, a courier, and a
// hashed API key for the gateway. Intended for local development and demos.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratodigital/delivery-api/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PRATO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PRATO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PRATO_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PRATO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedAccounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed accounts")
	}
	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding restaurant and menu")

	const restaurant = `
		INSERT INTO restaurants (id, name, category, delivery_fee, active)
		VALUES ('rest-demo-1', 'Cantina da Praça', 'brazilian', 5.00, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category,
			delivery_fee = EXCLUDED.delivery_fee, active = EXCLUDED.active`
	if _, err := pool.Exec(ctx, restaurant); err != nil {
		return errors.Wrap(err, "upsert restaurant")
	}

	products := []struct {
		id, name  string
		basePrice string
		stock     int
	}{
		{"prod-xburger", "X-Burger da Casa", "10.00", 100},
		{"prod-feijoada", "Feijoada Completa", "32.50", 40},
		{"prod-acai", "Açaí 500ml", "18.00", 60},
	}
	const product = `
		INSERT INTO products (id, restaurant_id, name, base_price, stock, available)
		VALUES ($1, 'rest-demo-1', $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, base_price = EXCLUDED.base_price,
			stock = EXCLUDED.stock, available = EXCLUDED.available`
	for _, p := range products {
		if _, err := pool.Exec(ctx, product, p.id, p.name, p.basePrice, p.stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
	}

	const group = `
		INSERT INTO option_groups (id, product_id, name, min_select, max_select)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, min_select = EXCLUDED.min_select,
			max_select = EXCLUDED.max_select`
	groups := []struct {
		id, productID, name string
		minSel, maxSel      int
	}{
		{"grp-burger-cheese", "prod-xburger", "Queijo", 1, 1},
		{"grp-burger-extras", "prod-xburger", "Adicionais", 0, 3},
		{"grp-acai-toppings", "prod-acai", "Complementos", 0, 2},
	}
	for _, g := range groups {
		if _, err := pool.Exec(ctx, group, g.id, g.productID, g.name, g.minSel, g.maxSel); err != nil {
			return errors.Wrapf(err, "upsert option group %s", g.id)
		}
	}

	const item = `
		INSERT INTO option_items (id, group_id, name, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`
	items := []struct {
		id, groupID, name, price string
	}{
		{"opt-cheddar", "grp-burger-cheese", "Cheddar", "0.00"},
		{"opt-mozzarella", "grp-burger-cheese", "Mussarela", "0.00"},
		{"opt-bacon", "grp-burger-extras", "Bacon", "3.00"},
		{"opt-egg", "grp-burger-extras", "Ovo", "2.00"},
		{"opt-onion-rings", "grp-burger-extras", "Onion Rings", "4.50"},
		{"opt-granola", "grp-acai-toppings", "Granola", "2.00"},
		{"opt-banana", "grp-acai-toppings", "Banana", "1.50"},
	}
	for _, it := range items {
		if _, err := pool.Exec(ctx, item, it.id, it.groupID, it.name, it.price); err != nil {
			return errors.Wrapf(err, "upsert option item %s", it.id)
		}
	}

	return nil
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding accounts")

	const acct = `
		INSERT INTO accounts (id, role, enabled, restaurant_id)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role,
			enabled = EXCLUDED.enabled, restaurant_id = EXCLUDED.restaurant_id`
	accounts := []struct {
		id, role     string
		restaurantID any
	}{
		{"acct-customer-1", "customer", nil},
		{"acct-restaurant-1", "restaurant", "rest-demo-1"},
		{"acct-courier-1", "courier", nil},
		{"acct-admin-1", "admin", nil},
	}
	for _, a := range accounts {
		if _, err := pool.Exec(ctx, acct, a.id, a.role, a.restaurantID); err != nil {
			return errors.Wrapf(err, "upsert account %s", a.id)
		}
	}

	const customer = `
		INSERT INTO customers (id, account_id, name, phone)
		VALUES ('cust-1', 'acct-customer-1', 'Ana Souza', '+55 11 98888-0001')
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone`
	if _, err := pool.Exec(ctx, customer); err != nil {
		return errors.Wrap(err, "upsert customer")
	}

	const address = `
		INSERT INTO addresses (id, account_id, street, number, district, city, state, postal_code)
		VALUES ('addr-1', 'acct-customer-1', 'Rua das Flores', '100', 'Centro', 'São Paulo', 'SP', '01000-000')
		ON CONFLICT (id) DO UPDATE SET street = EXCLUDED.street, number = EXCLUDED.number`
	if _, err := pool.Exec(ctx, address); err != nil {
		return errors.Wrap(err, "upsert address")
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding api key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	const key = `
		INSERT INTO api_keys (id, key_hash, name, active)
		VALUES ('key-gateway', $1, 'gateway', TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET active = TRUE`
	if _, err := pool.Exec(ctx, key, hash); err != nil {
		return errors.Wrap(err, "upsert api key")
	}

	return nil
}
