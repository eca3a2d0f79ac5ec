// Package register_repo provides the PostgreSQL implementation of the
// stock register repository.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/registers/stock"
	"roastledger/internal/infrastructure/storage/postgres"
)

const (
	balancesTable     = "bean_balances"
	transactionsTable = "stock_transactions"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// UpsertBalance adds delta to a bean's balance, inserting a zero-based
// row on first movement.
func (r *StockRepo) UpsertBalance(ctx context.Context, b bean.Bean, delta types.Quantity) error {
	sql := `
		INSERT INTO bean_balances (bean_origin, bean_product, quantity_kg, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (bean_origin, bean_product)
		DO UPDATE SET
			quantity_kg = bean_balances.quantity_kg + EXCLUDED.quantity_kg,
			updated_at = now()
	`

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, b.Origin, b.Product, delta.Int64Scaled()); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// GetBalance returns the current balance; zero for beans never moved.
func (r *StockRepo) GetBalance(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	q := r.builder.Select("quantity_kg").
		From(balancesTable).
		Where(squirrel.Eq{"bean_origin": b.Origin, "bean_product": b.Product}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var scaled int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&scaled); err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(scaled), nil
}

// GetBalanceForUpdate returns the balance with a row lock. Beans without
// a balance row yet return zero; the subsequent upsert creates the row.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	sql := `
		SELECT quantity_kg
		FROM bean_balances
		WHERE bean_origin = $1 AND bean_product = $2
		FOR UPDATE
	`

	var scaled int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, b.Origin, b.Product).Scan(&scaled); err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance for update: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(scaled), nil
}

// ListBalances returns all balances ordered by bean.
func (r *StockRepo) ListBalances(ctx context.Context, excludeZero bool) ([]stock.Balance, error) {
	q := r.builder.Select("bean_origin", "bean_product", "quantity_kg", "updated_at").
		From(balancesTable)

	if excludeZero {
		q = q.Where(squirrel.NotEq{"quantity_kg": int64(0)})
	}

	q = q.OrderBy("bean_origin", "bean_product")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// AppendTransaction inserts one ledger row.
func (r *StockRepo) AppendTransaction(ctx context.Context, t *stock.Transaction) error {
	q := r.builder.Insert(transactionsTable).
		Columns(
			"id", "transaction_date", "transaction_type",
			"bean_origin", "bean_product", "quantity_kg",
			"reference_id", "note", "created_at",
		).
		Values(
			t.ID, t.Date, t.Type,
			t.BeanOrigin, t.BeanProduct, t.DeltaKg.Int64Scaled(),
			t.RefID, t.Note, t.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListTransactions returns ledger rows for a bean, newest first.
func (r *StockRepo) ListTransactions(ctx context.Context, b bean.Bean, filter stock.TransactionFilter) ([]stock.Transaction, error) {
	q := r.builder.Select(
		"id", "transaction_date", "transaction_type",
		"bean_origin", "bean_product", "quantity_kg",
		"reference_id", "note", "created_at",
	).From(transactionsTable).
		Where(squirrel.Eq{"bean_origin": b.Origin, "bean_product": b.Product})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"transaction_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"transaction_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"transaction_date": *filter.ToDate})
	}

	q = q.OrderBy("transaction_date DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var transactions []stock.Transaction
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &transactions, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return transactions, nil
}

// ListTransactionsByRef returns ledger rows produced by one document.
func (r *StockRepo) ListTransactionsByRef(ctx context.Context, refID id.ID) ([]stock.Transaction, error) {
	q := r.builder.Select(
		"id", "transaction_date", "transaction_type",
		"bean_origin", "bean_product", "quantity_kg",
		"reference_id", "note", "created_at",
	).From(transactionsTable).
		Where(squirrel.Eq{"reference_id": refID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var transactions []stock.Transaction
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &transactions, sql, args...); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return transactions, nil
}

// SumDeltasByBean returns the ledger sum per bean for the consistency
// check against materialized balances.
func (r *StockRepo) SumDeltasByBean(ctx context.Context) (map[bean.Bean]types.Quantity, error) {
	sql := `
		SELECT bean_origin, bean_product, COALESCE(SUM(quantity_kg), 0)
		FROM stock_transactions
		GROUP BY bean_origin, bean_product
	`

	querier := r.txm.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("sum deltas: %w", err)
	}
	defer rows.Close()

	sums := make(map[bean.Bean]types.Quantity)
	for rows.Next() {
		var origin, product string
		var scaled int64
		if err := rows.Scan(&origin, &product, &scaled); err != nil {
			return nil, fmt.Errorf("scan sum row: %w", err)
		}
		sums[bean.Bean{Origin: origin, Product: product}] = types.NewQuantityFromInt64Scaled(scaled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sums: %w", err)
	}
	return sums, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
