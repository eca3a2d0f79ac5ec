// Package recipe_repo provides the PostgreSQL implementation of the
// recipe repository: master BOMs with lines, product assignments and
// the flat legacy recipe table.
package recipe_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/recipes"
	"roastledger/internal/infrastructure/storage/postgres"
)

const (
	bomsTable        = "master_boms"
	bomLinesTable    = "master_bom_recipes"
	assignmentsTable = "product_bom_assignments"
	legacyTable      = "blend_recipes"
)

// RecipeRepo implements recipes.Repository.
type RecipeRepo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchInserter
	builder squirrel.StatementBuilderType
}

// NewRecipeRepo creates a new recipe repository.
func NewRecipeRepo(txm *postgres.TxManager) *RecipeRepo {
	return &RecipeRepo{
		txm:     txm,
		batch:   postgres.NewBatchInserter(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindActiveProduct returns the id of an active product by exact name.
func (r *RecipeRepo) FindActiveProduct(ctx context.Context, name string) (id.ID, error) {
	sql := `SELECT id FROM products WHERE name = $1 AND is_active LIMIT 1`

	var productID id.ID
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, name).Scan(&productID); err != nil {
		if err == pgx.ErrNoRows {
			return id.Nil(), apperror.NewNotFound("product", name)
		}
		return id.Nil(), fmt.Errorf("find product: %w", err)
	}
	return productID, nil
}

// FindAssignment returns the most recent assignment with
// effective_date <= asOf; nil asOf means the latest overall.
func (r *RecipeRepo) FindAssignment(ctx context.Context, productID id.ID, asOf *time.Time) (recipes.Assignment, error) {
	q := r.builder.Select("id", "product_id", "bom_id", "effective_date", "note", "created_at").
		From(assignmentsTable).
		Where(squirrel.Eq{"product_id": productID})

	if asOf != nil {
		q = q.Where(squirrel.LtOrEq{"effective_date": *asOf})
	}

	q = q.OrderBy("effective_date DESC", "created_at DESC").Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return recipes.Assignment{}, fmt.Errorf("build query: %w", err)
	}

	var a recipes.Assignment
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return recipes.Assignment{}, apperror.NewNotFound("bom assignment", productID.String())
		}
		return recipes.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// GetBOM returns a master BOM with its lines.
func (r *RecipeRepo) GetBOM(ctx context.Context, bomID id.ID) (recipes.MasterBOM, error) {
	q := r.builder.Select("id", "name", "description", "effective_date", "is_active", "created_at").
		From(bomsTable).
		Where(squirrel.Eq{"id": bomID}).
		Limit(1)

	return r.getBOM(ctx, q, bomID.String())
}

// GetBOMByName returns a master BOM by its unique name.
func (r *RecipeRepo) GetBOMByName(ctx context.Context, name string) (recipes.MasterBOM, error) {
	q := r.builder.Select("id", "name", "description", "effective_date", "is_active", "created_at").
		From(bomsTable).
		Where(squirrel.Eq{"name": name}).
		Limit(1)

	return r.getBOM(ctx, q, name)
}

func (r *RecipeRepo) getBOM(ctx context.Context, q squirrel.SelectBuilder, key string) (recipes.MasterBOM, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return recipes.MasterBOM{}, fmt.Errorf("build query: %w", err)
	}

	var bom recipes.MasterBOM
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &bom, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return recipes.MasterBOM{}, apperror.NewNotFound("master bom", key)
		}
		return recipes.MasterBOM{}, fmt.Errorf("get bom: %w", err)
	}

	bom.Lines, err = r.getBOMLines(ctx, bom.ID)
	if err != nil {
		return recipes.MasterBOM{}, err
	}
	return bom, nil
}

func (r *RecipeRepo) getBOMLines(ctx context.Context, bomID id.ID) ([]recipes.Line, error) {
	sql := `
		SELECT bean_origin, bean_product, ratio_pct
		FROM master_bom_recipes
		WHERE bom_id = $1
		ORDER BY line_no
	`

	querier := r.txm.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, bomID)
	if err != nil {
		return nil, fmt.Errorf("select bom lines: %w", err)
	}
	defer rows.Close()

	var lines []recipes.Line
	for rows.Next() {
		var origin, product string
		var ratio float64
		if err := rows.Scan(&origin, &product, &ratio); err != nil {
			return nil, fmt.Errorf("scan bom line: %w", err)
		}
		lines = append(lines, recipes.Line{
			Bean:     bean.Bean{Origin: origin, Product: product},
			RatioPct: ratio,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bom lines: %w", err)
	}
	return lines, nil
}

// FindLegacyBatch returns the flat recipe batch at the max qualifying
// effective date. Undated rows qualify at any date and serve as the
// fallback batch.
func (r *RecipeRepo) FindLegacyBatch(ctx context.Context, productName string, asOf *time.Time) (recipes.LegacyBatch, error) {
	dateSQL := `
		SELECT MAX(effective_date)
		FROM blend_recipes
		WHERE product_name = $1
		  AND effective_date IS NOT NULL
		  AND ($2::timestamptz IS NULL OR effective_date <= $2)
	`

	querier := r.txm.GetQuerier(ctx)
	var batchDate *time.Time
	if err := querier.QueryRow(ctx, dateSQL, productName, asOf).Scan(&batchDate); err != nil && err != pgx.ErrNoRows {
		return recipes.LegacyBatch{}, fmt.Errorf("find batch date: %w", err)
	}

	q := r.builder.Select("bean_origin", "bean_product", "ratio_pct").
		From(legacyTable).
		Where(squirrel.Eq{"product_name": productName})
	if batchDate != nil {
		q = q.Where(squirrel.Eq{"effective_date": *batchDate})
	} else {
		q = q.Where("effective_date IS NULL")
	}
	q = q.OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return recipes.LegacyBatch{}, fmt.Errorf("build query: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return recipes.LegacyBatch{}, fmt.Errorf("select legacy lines: %w", err)
	}
	defer rows.Close()

	batch := recipes.LegacyBatch{ProductName: productName, EffectiveDate: batchDate}
	for rows.Next() {
		var origin, product string
		var ratio float64
		if err := rows.Scan(&origin, &product, &ratio); err != nil {
			return recipes.LegacyBatch{}, fmt.Errorf("scan legacy line: %w", err)
		}
		batch.Lines = append(batch.Lines, recipes.Line{
			Bean:     bean.Bean{Origin: origin, Product: product},
			RatioPct: ratio,
		})
	}
	if err := rows.Err(); err != nil {
		return recipes.LegacyBatch{}, fmt.Errorf("iterate legacy lines: %w", err)
	}

	if len(batch.Lines) == 0 {
		return recipes.LegacyBatch{}, apperror.NewNotFound("blend recipe", productName)
	}
	return batch, nil
}

// CreateBOM inserts a master BOM and its lines in one statement batch.
func (r *RecipeRepo) CreateBOM(ctx context.Context, bom *recipes.MasterBOM) error {
	q := r.builder.Insert(bomsTable).
		Columns("id", "name", "description", "effective_date", "is_active", "created_at").
		Values(bom.ID, bom.Name, bom.Description, bom.EffectiveDate, bom.IsActive, bom.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bom: %w", err)
	}

	rows := make([][]any, len(bom.Lines))
	for i, line := range bom.Lines {
		rows[i] = []any{bom.ID, i + 1, line.Bean.Origin, line.Bean.Product, line.RatioPct}
	}
	if _, err := r.batch.CopyFromSlice(ctx, bomLinesTable,
		[]string{"bom_id", "line_no", "bean_origin", "bean_product", "ratio_pct"}, rows); err != nil {
		return fmt.Errorf("insert bom lines: %w", err)
	}
	return nil
}

// ListBOMs returns master BOMs with lines, newest first.
func (r *RecipeRepo) ListBOMs(ctx context.Context, includeInactive bool) ([]recipes.MasterBOM, error) {
	q := r.builder.Select("id", "name", "description", "effective_date", "is_active", "created_at").
		From(bomsTable)

	if !includeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	q = q.OrderBy("created_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var boms []recipes.MasterBOM
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &boms, sql, args...); err != nil {
		return nil, fmt.Errorf("select boms: %w", err)
	}

	for i := range boms {
		boms[i].Lines, err = r.getBOMLines(ctx, boms[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return boms, nil
}

// SetBOMActive toggles a BOM's active flag.
func (r *RecipeRepo) SetBOMActive(ctx context.Context, bomID id.ID, active bool) error {
	q := r.builder.Update(bomsTable).
		Set("is_active", active).
		Where(squirrel.Eq{"id": bomID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update bom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("master bom", bomID.String())
	}
	return nil
}

// AppendAssignment records a new product-to-BOM assignment.
func (r *RecipeRepo) AppendAssignment(ctx context.Context, a *recipes.Assignment) error {
	q := r.builder.Insert(assignmentsTable).
		Columns("id", "product_id", "bom_id", "effective_date", "note", "created_at").
		Values(a.ID, a.ProductID, a.BOMID, a.EffectiveDate, a.Note, a.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// ListAssignments returns a product's assignment history, newest first.
func (r *RecipeRepo) ListAssignments(ctx context.Context, productID id.ID) ([]recipes.Assignment, error) {
	q := r.builder.Select("id", "product_id", "bom_id", "effective_date", "note", "created_at").
		From(assignmentsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("effective_date DESC", "created_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var assignments []recipes.Assignment
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &assignments, sql, args...); err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}
	return assignments, nil
}

// AppendLegacyBatch inserts one dated batch of flat recipe lines.
func (r *RecipeRepo) AppendLegacyBatch(ctx context.Context, batch recipes.LegacyBatch) error {
	rows := make([][]any, len(batch.Lines))
	for i, line := range batch.Lines {
		rows[i] = []any{batch.ProductName, batch.EffectiveDate, i + 1, line.Bean.Origin, line.Bean.Product, line.RatioPct}
	}
	if _, err := r.batch.CopyFromSlice(ctx, legacyTable,
		[]string{"product_name", "effective_date", "line_no", "bean_origin", "bean_product", "ratio_pct"}, rows); err != nil {
		return fmt.Errorf("insert legacy batch: %w", err)
	}
	return nil
}

// ListLegacyBatches returns all flat batches for a product, newest first.
// Rows sharing an effective date form one batch; undated rows form one
// batch of their own.
func (r *RecipeRepo) ListLegacyBatches(ctx context.Context, productName string) ([]recipes.LegacyBatch, error) {
	sql := `
		SELECT effective_date, bean_origin, bean_product, ratio_pct
		FROM blend_recipes
		WHERE product_name = $1
		ORDER BY effective_date DESC NULLS LAST, line_no
	`

	querier := r.txm.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, productName)
	if err != nil {
		return nil, fmt.Errorf("select legacy batches: %w", err)
	}
	defer rows.Close()

	var batches []recipes.LegacyBatch
	for rows.Next() {
		var effectiveDate *time.Time
		var origin, product string
		var ratio float64
		if err := rows.Scan(&effectiveDate, &origin, &product, &ratio); err != nil {
			return nil, fmt.Errorf("scan legacy row: %w", err)
		}

		line := recipes.Line{
			Bean:     bean.Bean{Origin: origin, Product: product},
			RatioPct: ratio,
		}

		if n := len(batches); n > 0 && sameDate(batches[n-1].EffectiveDate, effectiveDate) {
			batches[n-1].Lines = append(batches[n-1].Lines, line)
			continue
		}
		batches = append(batches, recipes.LegacyBatch{
			ProductName:   productName,
			EffectiveDate: effectiveDate,
			Lines:         []recipes.Line{line},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy rows: %w", err)
	}
	return batches, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Ensure interface compliance.
var _ recipes.Repository = (*RecipeRepo)(nil)
