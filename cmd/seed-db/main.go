// Command seed-db loads a demo dataset: two neighborhood stores with their
// catalogs, coupons, and promotions. Safe to run repeatedly; every insert is
// an upsert.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/veciapp/marketplace-core/internal/storage/postgres"
)

func main() {
	var databaseURL string
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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Stores go first: everything else references them.
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"stores", seedStores},
		{"products", seedProducts},
		{"coupons", seedCoupons},
		{"promotions", seedPromotions},
	}
	for _, step := range steps {
		slog.Info("seeding", slog.String("table", step.name))
		if err := step.fn(ctx, pool); err != nil {
			return errors.Wrapf(err, "seed %s", step.name)
		}
	}
	return nil
}

func seedStores(ctx context.Context, pool *pgxpool.Pool) error {
	stores := []struct {
		id, name string
		minOrder int64
	}{
		{"store-dona-marta", "Tienda Doña Marta", 50000},
		{"store-el-vecino", "Mercado El Vecino", 30000},
	}
	for _, s := range stores {
		_, err := pool.Exec(ctx, `
			INSERT INTO stores (id, name, min_order, active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, min_order = EXCLUDED.min_order`,
			s.id, s.name, decimal.NewFromInt(s.minOrder))
		if err != nil {
			return errors.Wrapf(err, "store %s", s.id)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []struct {
		id, storeID, name, category string
		price                       int64
		stock                       int
	}{
		{"prod-arroz-5kg", "store-dona-marta", "Arroz Diana 5kg", "granos", 28000, 24},
		{"prod-aceite-3l", "store-dona-marta", "Aceite Premier 3L", "aceites", 31000, 10},
		{"prod-panela-12", "store-dona-marta", "Panela x12", "endulzantes", 14000, 40},
		{"prod-cafe-500g", "store-dona-marta", "Café Sello Rojo 500g", "bebidas", 12500, 18},
		{"prod-leche-x6", "store-dona-marta", "Leche entera x6", "lácteos", 19800, 15},
		{"prod-huevos-30", "store-el-vecino", "Cubeta de huevos x30", "proteína", 16500, 30},
		{"prod-frijol-1kg", "store-el-vecino", "Fríjol cargamanto 1kg", "granos", 9800, 22},
		{"prod-azucar-2kg", "store-el-vecino", "Azúcar 2kg", "endulzantes", 7200, 35},
	}
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, store_id, name, price, category, stock, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price,
			    category = EXCLUDED.category, stock = EXCLUDED.stock`,
			p.id, p.storeID, p.name, decimal.NewFromInt(p.price), p.category, p.stock)
		if err != nil {
			return errors.Wrapf(err, "product %s", p.id)
		}
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	coupons := []struct {
		code, storeID, kind, description string
		value, minSubtotal               int64
	}{
		{"VECI10", "store-dona-marta", "percentage", "10% de descuento en tu mercado", 10, 40000},
		{"BIENVENIDO", "store-dona-marta", "fixed", "$5.000 de descuento en tu primer pedido", 5000, 0},
		{"BARRIO5", "store-el-vecino", "percentage", "5% de descuento para el barrio", 5, 25000},
	}
	for _, c := range coupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, store_id, discount_type, value, min_subtotal, description, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (code) DO UPDATE
			SET discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			    min_subtotal = EXCLUDED.min_subtotal, description = EXCLUDED.description`,
			c.code, c.storeID, c.kind, decimal.NewFromInt(c.value),
			decimal.NewFromInt(c.minSubtotal), c.description)
		if err != nil {
			return errors.Wrapf(err, "coupon %s", c.code)
		}
	}
	return nil
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now()
	promos := []struct {
		id, storeID, name, kind, category string
		value                             int64
		starts, ends                      time.Time
	}{
		{
			"promo-granos-semana", "store-dona-marta", "Semana de los granos",
			"percentage", "granos", 8,
			now.AddDate(0, 0, -1), now.AddDate(0, 0, 6),
		},
		{
			"promo-madrugadores", "store-el-vecino", "Madrugadores de diciembre",
			"fixed", "", 2000,
			now.AddDate(0, 1, 0), now.AddDate(0, 1, 15),
		},
	}
	for _, p := range promos {
		_, err := pool.Exec(ctx, `
			INSERT INTO promotions (id, store_id, name, discount_type, value, category, starts_at, ends_at, enabled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, discount_type = EXCLUDED.discount_type,
			    value = EXCLUDED.value, category = EXCLUDED.category,
			    starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at`,
			p.id, p.storeID, p.name, p.kind, decimal.NewFromInt(p.value),
			p.category, p.starts, p.ends)
		if err != nil {
			return errors.Wrapf(err, "promotion %s", p.id)
		}
	}
	return nil
}
