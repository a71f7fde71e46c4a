// Command menu-ingest imports supplier menu feeds into the catalog. Feeds are
// gzip-compressed JSONL files, one menu row per line. Files are streamed
// concurrently; a bloom filter drops rows already seen in earlier feeds so
// the first feed listing a product wins.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pratodigital/delivery-api/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// menuRow is one line of a supplier feed. Price and delivery fee arrive as
// decimal strings; quantities as integers.
type menuRow struct {
	RestaurantID   string          `json:"restaurant_id"`
	RestaurantName string          `json:"restaurant_name"`
	Category       string          `json:"category"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	Available      bool            `json:"available"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz menu feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("menu ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list feeds")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feeds in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("ingesting feeds", slog.Int("files", len(files)))

	// Readers stream and decode concurrently; a single writer owns the bloom
	// filter and the database so dedup order is deterministic per run.
	rows := make(chan menuRow, 1024)

	g, ctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(streamFeed(rctx, f, rows))
	}
	g.Go(func() error {
		defer close(rows)
		return readers.Wait()
	})
	g.Go(func() error {
		return writeRows(ctx, pool, rows)
	})

	return g.Wait()
}

// streamFeed decodes one gzipped JSONL feed and sends its rows downstream.
func streamFeed(ctx context.Context, path string, out chan<- menuRow) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var row menuRow
			if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
				return errors.Wrapf(err, "decode row in %s", path)
			}
			if row.RestaurantID == "" || row.ProductID == "" {
				continue
			}

			select {
			case out <- row:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("feed progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("rows", count),
				)
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("rows", count),
		)
		return nil
	}
}

// writeRows dedups rows with a bloom filter and upserts survivors. The filter
// keys on product id, so a product repeated across feeds is written once.
func writeRows(ctx context.Context, pool *pgxpool.Pool, rows <-chan menuRow) error {
	seenProducts := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	seenRestaurants := bloom.NewWithEstimates(bloomCapacity/100, bloomFPR)

	var written, skipped uint64
	for row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		if seenProducts.TestString(row.ProductID) {
			skipped++
			continue
		}
		seenProducts.AddString(row.ProductID)

		if !seenRestaurants.TestString(row.RestaurantID) {
			seenRestaurants.AddString(row.RestaurantID)
			if err := upsertRestaurant(ctx, pool, row); err != nil {
				return errors.Wrapf(err, "upsert restaurant %s", row.RestaurantID)
			}
		}

		if err := upsertProduct(ctx, pool, row); err != nil {
			return errors.Wrapf(err, "upsert product %s", row.ProductID)
		}
		written++
	}

	slog.Info("ingest summary",
		slog.Uint64("written", written),
		slog.Uint64("skipped_duplicates", skipped),
	)
	return nil
}

func upsertRestaurant(ctx context.Context, pool *pgxpool.Pool, row menuRow) error {
	const q = `
		INSERT INTO restaurants (id, name, category, delivery_fee, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category,
			delivery_fee = EXCLUDED.delivery_fee`
	_, err := pool.Exec(ctx, q, row.RestaurantID, row.RestaurantName, row.Category, row.DeliveryFee)
	return err
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, row menuRow) error {
	const q = `
		INSERT INTO products (id, restaurant_id, name, base_price, stock, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, base_price = EXCLUDED.base_price,
			stock = EXCLUDED.stock, available = EXCLUDED.available`
	_, err := pool.Exec(ctx, q, row.ProductID, row.RestaurantID, row.Name, row.Price, row.Stock, row.Available)
	return err
}
