// Package costing_repo provides the PostgreSQL implementation of the
// costing repository: purchase aggregates, sales windows and variable
// cost rates.
package costing_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/costing"
	"roastledger/internal/domain/documents/sale"
	"roastledger/internal/infrastructure/storage/postgres"
)

const variableCostsTable = "variable_costs"

// CostingRepo implements costing.Repository.
type CostingRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewCostingRepo creates a new costing repository.
func NewCostingRepo(txm *postgres.TxManager) *CostingRepo {
	return &CostingRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// SumPurchases returns total amount and quantity of purchases of a bean
// dated at or before cutoff.
func (r *CostingRepo) SumPurchases(ctx context.Context, b bean.Bean, cutoff time.Time) (types.MinorUnits, types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(total_amount), 0), COALESCE(SUM(quantity_kg), 0)
		FROM purchases
		WHERE bean_origin = $1 AND bean_product = $2 AND purchase_date <= $3
	`

	var amountScaled, qtyScaled int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, b.Origin, b.Product, cutoff).Scan(&amountScaled, &qtyScaled)
	if err != nil && err != pgx.ErrNoRows {
		return 0, 0, fmt.Errorf("sum purchases: %w", err)
	}

	return types.MinorUnits(amountScaled), types.NewQuantityFromInt64Scaled(qtyScaled), nil
}

// ListSalesBetween returns sales with from <= sale_date <= to.
func (r *CostingRepo) ListSalesBetween(ctx context.Context, from, to time.Time) ([]sale.Sale, error) {
	q := r.builder.Select(
		"id", "number", "sale_date", "product_name",
		"quantity_kg", "unit_price", "total_amount",
		"customer", "notes", "created_at", "updated_at",
	).From("sales").
		Where(squirrel.GtOrEq{"sale_date": from}).
		Where(squirrel.LtOrEq{"sale_date": to}).
		OrderBy("sale_date")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sales []sale.Sale
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &sales, sql, args...); err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	return sales, nil
}

// UpsertVariableCost replaces the rate for one (year, month).
func (r *CostingRepo) UpsertVariableCost(ctx context.Context, vc *costing.VariableCost) error {
	sql := `
		INSERT INTO variable_costs (year, month, cost_per_kg, notes, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (year, month)
		DO UPDATE SET
			cost_per_kg = EXCLUDED.cost_per_kg,
			notes = EXCLUDED.notes,
			updated_at = now()
	`

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, vc.Year, int(vc.Month), vc.CostPerKg.Int64Scaled(), vc.Notes); err != nil {
		return fmt.Errorf("upsert variable cost: %w", err)
	}
	return nil
}

// FindVariableCost returns the most recent rate at or before the period.
func (r *CostingRepo) FindVariableCost(ctx context.Context, year int, month time.Month) (costing.VariableCost, error) {
	sql := `
		SELECT year, month, cost_per_kg, notes, updated_at
		FROM variable_costs
		WHERE (year, month) <= ($1, $2)
		ORDER BY year DESC, month DESC
		LIMIT 1
	`

	var vc costing.VariableCost
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &vc, sql, year, int(month)); err != nil {
		if pgxscan.NotFound(err) {
			return costing.VariableCost{}, apperror.NewNotFound("variable cost", fmt.Sprintf("%04d-%02d", year, month))
		}
		return costing.VariableCost{}, fmt.Errorf("find variable cost: %w", err)
	}
	return vc, nil
}

// ListVariableCosts returns all rates, newest first.
func (r *CostingRepo) ListVariableCosts(ctx context.Context) ([]costing.VariableCost, error) {
	q := r.builder.Select("year", "month", "cost_per_kg", "notes", "updated_at").
		From(variableCostsTable).
		OrderBy("year DESC", "month DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rates []costing.VariableCost
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rates, sql, args...); err != nil {
		return nil, fmt.Errorf("select variable costs: %w", err)
	}
	return rates, nil
}

// Ensure interface compliance.
var _ costing.Repository = (*CostingRepo)(nil)
