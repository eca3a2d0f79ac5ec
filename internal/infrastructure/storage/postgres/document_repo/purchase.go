// Package document_repo provides PostgreSQL implementations for document
// repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/domain/documents/purchase"
	"roastledger/internal/infrastructure/storage/postgres"
)

const purchasesTable = "purchases"

var purchaseColumns = []string{
	"id", "number", "purchase_date",
	"bean_origin", "bean_product",
	"quantity_kg", "unit_price", "total_amount",
	"supplier", "notes", "created_at", "updated_at",
}

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewPurchaseRepo creates a new purchase document repository.
func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	q := r.builder.Insert(purchasesTable).
		Columns(purchaseColumns...).
		Values(
			p.ID, p.Number, p.Date,
			p.BeanOrigin, p.BeanProduct,
			p.QuantityKg.Int64Scaled(), p.UnitPrice.Int64Scaled(), p.TotalAmount.Int64Scaled(),
			p.Supplier, p.Notes, p.CreatedAt, p.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	q := r.builder.Update(purchasesTable).
		Set("purchase_date", p.Date).
		Set("bean_origin", p.BeanOrigin).
		Set("bean_product", p.BeanProduct).
		Set("quantity_kg", p.QuantityKg.Int64Scaled()).
		Set("unit_price", p.UnitPrice.Int64Scaled()).
		Set("total_amount", p.TotalAmount.Int64Scaled()).
		Set("supplier", p.Supplier).
		Set("notes", p.Notes).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase", p.ID.String())
	}
	return nil
}

func (r *PurchaseRepo) Delete(ctx context.Context, purchaseID id.ID) error {
	q := r.builder.Delete(purchasesTable).Where(squirrel.Eq{"id": purchaseID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase", purchaseID.String())
	}
	return nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error) {
	q := r.builder.Select(purchaseColumns...).
		From(purchasesTable).
		Where(squirrel.Eq{"id": purchaseID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p purchase.Purchase
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase", purchaseID.String())
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return &p, nil
}

func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) ([]purchase.Purchase, error) {
	q := r.builder.Select(purchaseColumns...).From(purchasesTable)

	if filter.Bean != nil {
		q = q.Where(squirrel.Eq{
			"bean_origin":  filter.Bean.Origin,
			"bean_product": filter.Bean.Product,
		})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"purchase_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"purchase_date": *filter.ToDate})
	}
	if filter.Supplier != "" {
		q = q.Where(squirrel.ILike{"supplier": "%" + filter.Supplier + "%"})
	}

	q = q.OrderBy("purchase_date DESC", "created_at DESC")

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

	var purchases []purchase.Purchase
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &purchases, sql, args...); err != nil {
		return nil, fmt.Errorf("select purchases: %w", err)
	}
	return purchases, nil
}

// Ensure interface compliance.
var _ purchase.Repository = (*PurchaseRepo)(nil)
