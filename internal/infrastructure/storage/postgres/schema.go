package postgres

import (
	"context"
	"fmt"
)

// schemaDDL creates every table the application uses. All statements are
// idempotent so InitSchema can run on every startup.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS purchases (
		id UUID PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		purchase_date TIMESTAMPTZ NOT NULL,
		bean_origin TEXT NOT NULL,
		bean_product TEXT NOT NULL,
		quantity_kg BIGINT NOT NULL,
		unit_price BIGINT NOT NULL DEFAULT 0,
		total_amount BIGINT NOT NULL DEFAULT 0,
		supplier TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_bean_date
		ON purchases (bean_origin, bean_product, purchase_date)`,

	`CREATE TABLE IF NOT EXISTS sales (
		id UUID PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		sale_date TIMESTAMPTZ NOT NULL,
		product_name TEXT NOT NULL,
		quantity_kg BIGINT NOT NULL,
		unit_price BIGINT NOT NULL DEFAULT 0,
		total_amount BIGINT NOT NULL DEFAULT 0,
		customer TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales (sale_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_product ON sales (product_name, sale_date)`,

	`CREATE TABLE IF NOT EXISTS master_boms (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		effective_date TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS master_bom_recipes (
		bom_id UUID NOT NULL REFERENCES master_boms (id) ON DELETE CASCADE,
		line_no INT NOT NULL,
		bean_origin TEXT NOT NULL,
		bean_product TEXT NOT NULL,
		ratio_pct DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (bom_id, line_no)
	)`,

	`CREATE TABLE IF NOT EXISTS product_bom_assignments (
		id UUID PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products (id),
		bom_id UUID REFERENCES master_boms (id),
		effective_date TIMESTAMPTZ NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_product
		ON product_bom_assignments (product_id, effective_date DESC)`,

	`CREATE TABLE IF NOT EXISTS blend_recipes (
		product_name TEXT NOT NULL,
		effective_date TIMESTAMPTZ,
		line_no INT NOT NULL,
		bean_origin TEXT NOT NULL,
		bean_product TEXT NOT NULL,
		ratio_pct DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_blend_recipes_product
		ON blend_recipes (product_name, effective_date)`,

	`CREATE TABLE IF NOT EXISTS bean_balances (
		bean_origin TEXT NOT NULL,
		bean_product TEXT NOT NULL,
		quantity_kg BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (bean_origin, bean_product)
	)`,

	`CREATE TABLE IF NOT EXISTS stock_transactions (
		id UUID PRIMARY KEY,
		transaction_date TIMESTAMPTZ NOT NULL,
		transaction_type TEXT NOT NULL,
		bean_origin TEXT NOT NULL,
		bean_product TEXT NOT NULL,
		quantity_kg BIGINT NOT NULL,
		reference_id UUID NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_tx_bean
		ON stock_transactions (bean_origin, bean_product, transaction_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_tx_ref ON stock_transactions (reference_id)`,

	`CREATE TABLE IF NOT EXISTS variable_costs (
		year INT NOT NULL,
		month INT NOT NULL,
		cost_per_kg BIGINT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (year, month)
	)`,

	`CREATE TABLE IF NOT EXISTS sys_sequences (
		key TEXT PRIMARY KEY,
		current_val BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS sys_audit (
		id UUID PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id UUID NOT NULL,
		action TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		changes JSONB,
		changes_compressed BYTEA,
		compression_algo TEXT NOT NULL DEFAULT 'none',
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sys_audit_entity
		ON sys_audit (entity_type, entity_id, created_at DESC)`,
}

// InitSchema creates all application tables if they do not exist.
func InitSchema(ctx context.Context, pool *Pool) error {
	for _, ddl := range schemaDDL {
		if _, err := pool.Pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
