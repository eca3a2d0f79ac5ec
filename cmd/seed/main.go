// Package main provides a CLI tool for seeding the database with the
// schema and a small demo dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"roastledger/internal/core/id"
	"roastledger/internal/infrastructure/storage/postgres"
	"roastledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.InitSchema(ctx, pool); err != nil {
		log.Fatalw("failed to initialize schema", "error", err)
	}
	log.Info("schema initialized")

	// Print a bcrypt hash for ADMIN_PASSWORD_HASH when requested.
	if password := os.Getenv("HASH_PASSWORD"); password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalw("failed to hash password", "error", err)
		}
		fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", string(hash))
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	// 1. Products
	products := []string{"House Blend", "Dark Roast Blend", "Single Origin Drip"}
	productIDs := make(map[string]id.ID)

	for _, name := range products {
		pid := id.New()
		tag, err := pool.Pool.Exec(ctx, `
			INSERT INTO products (id, name, is_active)
			VALUES ($1, $2, true)
			ON CONFLICT (name) DO NOTHING
		`, pid, name)
		if err != nil {
			return fmt.Errorf("seed product %q: %w", name, err)
		}
		if tag.RowsAffected() == 0 {
			if err := pool.Pool.QueryRow(ctx,
				`SELECT id FROM products WHERE name = $1`, name,
			).Scan(&pid); err != nil {
				return fmt.Errorf("fetch product %q: %w", name, err)
			}
		}
		productIDs[name] = pid
	}

	// 2. Legacy flat recipes (the pre-BOM format)
	type legacyLine struct {
		product string
		origin  string
		bean    string
		ratio   float64
	}
	legacy := []legacyLine{
		{"House Blend", "Ethiopia", "Yirgacheffe G1", 70},
		{"House Blend", "Colombia", "Huila Supremo", 30},
		{"Dark Roast Blend", "Brazil", "Santos NY2", 60},
		{"Dark Roast Blend", "Colombia", "Huila Supremo", 40},
		{"Single Origin Drip", "Ethiopia", "Yirgacheffe G1", 100},
	}

	lineNo := map[string]int{}
	for _, l := range legacy {
		lineNo[l.product]++
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO blend_recipes (product_name, effective_date, line_no, bean_origin, bean_product, ratio_pct)
			SELECT $1, NULL, $2, $3, $4, $5
			WHERE NOT EXISTS (
				SELECT 1 FROM blend_recipes
				WHERE product_name = $1 AND effective_date IS NULL AND line_no = $2
			)
		`, l.product, lineNo[l.product], l.origin, l.bean, l.ratio)
		if err != nil {
			return fmt.Errorf("seed recipe for %q: %w", l.product, err)
		}
	}

	// 3. Opening stock via purchase rows and matching register entries
	type purchaseSeed struct {
		origin   string
		bean     string
		qtyKg    int64 // scaled 1e3
		amount   int64 // scaled 1e2
		supplier string
	}
	purchases := []purchaseSeed{
		{"Ethiopia", "Yirgacheffe G1", 60_000, 138_000_00, "GreenCo"},
		{"Colombia", "Huila Supremo", 45_000, 99_000_00, "Andes Trade"},
		{"Brazil", "Santos NY2", 80_000, 120_000_00, "Santos Export"},
	}

	date := time.Now().UTC().AddDate(0, -1, 0)
	for i, p := range purchases {
		pid := id.New()
		number := fmt.Sprintf("PUR-%s-%05d", date.Format("2006"), i+1)
		tag, err := pool.Pool.Exec(ctx, `
			INSERT INTO purchases (id, number, purchase_date, bean_origin, bean_product, quantity_kg, unit_price, total_amount, supplier)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (number) DO NOTHING
		`, pid, number, date, p.origin, p.bean, p.qtyKg,
			p.amount*1000/p.qtyKg, p.amount, p.supplier)
		if err != nil {
			return fmt.Errorf("seed purchase %s: %w", number, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}

		if _, err := pool.Pool.Exec(ctx, `
			INSERT INTO bean_balances (bean_origin, bean_product, quantity_kg)
			VALUES ($1, $2, $3)
			ON CONFLICT (bean_origin, bean_product)
			DO UPDATE SET quantity_kg = bean_balances.quantity_kg + EXCLUDED.quantity_kg, updated_at = now()
		`, p.origin, p.bean, p.qtyKg); err != nil {
			return fmt.Errorf("seed balance for %s: %w", p.bean, err)
		}

		if _, err := pool.Pool.Exec(ctx, `
			INSERT INTO stock_transactions (id, transaction_date, transaction_type, bean_origin, bean_product, quantity_kg, reference_id)
			VALUES ($1, $2, 'purchase', $3, $4, $5, $6)
		`, id.New(), date, p.origin, p.bean, p.qtyKg, pid); err != nil {
			return fmt.Errorf("seed transaction for %s: %w", p.bean, err)
		}
	}

	// 4. A starting variable cost rate
	now := time.Now().UTC()
	if _, err := pool.Pool.Exec(ctx, `
		INSERT INTO variable_costs (year, month, cost_per_kg, notes)
		VALUES ($1, $2, $3, 'seed rate')
		ON CONFLICT (year, month) DO NOTHING
	`, now.Year(), int(now.Month()), 2_000_00); err != nil {
		return fmt.Errorf("seed variable cost: %w", err)
	}

	log.Infow("demo data seeded successfully", "products", len(products))
	return nil
}
