package sale

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/audit"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/consumption"
	"roastledger/internal/domain/recipes"
	"roastledger/internal/domain/registers/stock"
	"roastledger/pkg/numerator"
)

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memSaleRepo struct {
	rows map[id.ID]Sale
}

func newMemSaleRepo() *memSaleRepo { return &memSaleRepo{rows: make(map[id.ID]Sale)} }

func (r *memSaleRepo) Create(ctx context.Context, s *Sale) error {
	r.rows[s.ID] = *s
	return nil
}

func (r *memSaleRepo) Update(ctx context.Context, s *Sale) error {
	if _, ok := r.rows[s.ID]; !ok {
		return apperror.NewNotFound("sale", s.ID)
	}
	r.rows[s.ID] = *s
	return nil
}

func (r *memSaleRepo) Delete(ctx context.Context, saleID id.ID) error {
	delete(r.rows, saleID)
	return nil
}

func (r *memSaleRepo) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	if s, ok := r.rows[saleID]; ok {
		return &s, nil
	}
	return nil, apperror.NewNotFound("sale", saleID)
}

func (r *memSaleRepo) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	var out []Sale
	for _, s := range r.rows {
		out = append(out, s)
	}
	return out, nil
}

// fakeResolver returns a fixed recipe per product, optionally switching
// on a cutover date to exercise time-versioned resolution.
type fakeResolver struct {
	byProduct map[string]recipes.Recipe
	cutover   *time.Time
	after     map[string]recipes.Recipe
}

func (f *fakeResolver) Resolve(ctx context.Context, productName string, asOf *time.Time) (recipes.Recipe, error) {
	if f.cutover != nil && asOf != nil && !asOf.Before(*f.cutover) {
		if r, ok := f.after[productName]; ok {
			return r, nil
		}
	}
	if r, ok := f.byProduct[productName]; ok {
		return r, nil
	}
	return recipes.Recipe{ProductName: productName, Source: recipes.SourceNone}, nil
}

type memStockRepo struct {
	balances map[bean.Bean]types.Quantity
	ledger   []stock.Transaction
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{balances: make(map[bean.Bean]types.Quantity)}
}

func (r *memStockRepo) UpsertBalance(ctx context.Context, b bean.Bean, delta types.Quantity) error {
	r.balances[b] += delta
	return nil
}

func (r *memStockRepo) GetBalance(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	return r.balances[b], nil
}

func (r *memStockRepo) GetBalanceForUpdate(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	return r.balances[b], nil
}

func (r *memStockRepo) ListBalances(ctx context.Context, excludeZero bool) ([]stock.Balance, error) {
	var out []stock.Balance
	for b, q := range r.balances {
		if excludeZero && q.IsZero() {
			continue
		}
		out = append(out, stock.Balance{BeanOrigin: b.Origin, BeanProduct: b.Product, QuantityKg: q})
	}
	return out, nil
}

func (r *memStockRepo) AppendTransaction(ctx context.Context, t *stock.Transaction) error {
	r.ledger = append(r.ledger, *t)
	return nil
}

func (r *memStockRepo) ListTransactions(ctx context.Context, b bean.Bean, filter stock.TransactionFilter) ([]stock.Transaction, error) {
	var out []stock.Transaction
	for _, t := range r.ledger {
		if t.Bean() == b {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memStockRepo) ListTransactionsByRef(ctx context.Context, refID id.ID) ([]stock.Transaction, error) {
	var out []stock.Transaction
	for _, t := range r.ledger {
		if t.RefID == refID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memStockRepo) SumDeltasByBean(ctx context.Context) (map[bean.Bean]types.Quantity, error) {
	sums := make(map[bean.Bean]types.Quantity)
	for _, t := range r.ledger {
		sums[t.Bean()] += t.DeltaKg
	}
	return sums, nil
}

type seqRow struct{ val int64 }

func (m *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = m.val
	}
	return nil
}

type numQuerier struct{ n int64 }

func (q *numQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.n++
	return &seqRow{val: q.n}
}

var (
	yirg  = bean.New("Ethiopia", "Yirgacheffe G1")
	huila = bean.New("Colombia", "Huila Supremo")
)

func houseBlend() recipes.Recipe {
	return recipes.Recipe{
		ProductName: "House Blend",
		Source:      recipes.SourceMasterBOM,
		Lines: []recipes.Line{
			{Bean: yirg, RatioPct: 70},
			{Bean: huila, RatioPct: 30},
		},
	}
}

func newTestService(resolver Resolver) (*Service, *memSaleRepo, *memStockRepo) {
	repo := newMemSaleRepo()
	stockRepo := newMemStockRepo()
	register := stock.NewService(stockRepo)
	calc := consumption.NewCalculator(1.2)
	num := numerator.New(&numQuerier{})
	svc := NewService(repo, resolver, calc, register, num, audit.Noop{}, noopTxManager{})
	return svc, repo, stockRepo
}

func stockKg(r *memStockRepo, b bean.Bean, kg float64) {
	r.balances[b] = types.NewQuantityFromFloat64(kg)
}

func testSale(qtyKg float64) *Sale {
	return &Sale{
		Date:        time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		ProductName: "House Blend",
		QuantityKg:  types.NewQuantityFromFloat64(qtyKg),
		UnitPrice:   types.NewMinorUnitsFromFloat(30000),
	}
}

func TestCreate_DeductsPerRecipe(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{"House Blend": houseBlend()}}
	svc, repo, stockRepo := newTestService(resolver)
	ctx := context.Background()
	stockKg(stockRepo, yirg, 10)
	stockKg(stockRepo, huila, 10)

	result, err := svc.Create(ctx, testSale(1))
	require.NoError(t, err)

	assert.True(t, result.Deducted)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "SAL-2026-00001", result.Sale.Number)
	assert.Len(t, repo.rows, 1)

	// 1 kg roasted -> 1.2 green -> 0.840 + 0.360
	assert.Equal(t, "9.160", stockRepo.balances[yirg].String())
	assert.Equal(t, "9.640", stockRepo.balances[huila].String())

	require.Len(t, stockRepo.ledger, 2)
	assert.Equal(t, stock.EntrySale, stockRepo.ledger[0].Type)
	assert.Equal(t, "-0.840", stockRepo.ledger[0].DeltaKg.String())
}

func TestCreate_ShortageSkipsAllDeductions(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{"House Blend": houseBlend()}}
	svc, repo, stockRepo := newTestService(resolver)
	ctx := context.Background()
	// Plenty of the first bean, not enough of the second.
	stockKg(stockRepo, yirg, 10)
	stockKg(stockRepo, huila, 0.1)

	result, err := svc.Create(ctx, testSale(1))
	require.NoError(t, err)

	// Sale recorded, nothing deducted.
	assert.Len(t, repo.rows, 1)
	assert.False(t, result.Deducted)
	assert.Empty(t, stockRepo.ledger)
	assert.Equal(t, "10.000", stockRepo.balances[yirg].String())
	assert.Equal(t, "0.100", stockRepo.balances[huila].String())

	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, WarnShortage, w.Code)
	assert.Contains(t, w.Message, "Colombia - Huila Supremo")
	assert.Equal(t, "0.360", w.RequiredKg.String())
	assert.Equal(t, "0.100", w.AvailableKg.String())
}

func TestCreate_NoRecipeStillRecordsSale(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{}}
	svc, repo, stockRepo := newTestService(resolver)
	ctx := context.Background()

	result, err := svc.Create(ctx, testSale(2))
	require.NoError(t, err)

	assert.Len(t, repo.rows, 1)
	assert.False(t, result.Deducted)
	assert.Empty(t, stockRepo.ledger)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnNoRecipe, result.Warnings[0].Code)
}

func TestUpdate_NoOpEditRoundTrips(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{"House Blend": houseBlend()}}
	svc, _, stockRepo := newTestService(resolver)
	ctx := context.Background()
	stockKg(stockRepo, yirg, 10)
	stockKg(stockRepo, huila, 10)

	created, err := svc.Create(ctx, testSale(1))
	require.NoError(t, err)

	edited := *created.Sale
	result, err := svc.Update(ctx, &edited)
	require.NoError(t, err)
	assert.True(t, result.Deducted)

	// Balances identical to post-create state.
	assert.Equal(t, "9.160", stockRepo.balances[yirg].String())
	assert.Equal(t, "9.640", stockRepo.balances[huila].String())
}

func TestUpdate_QuantityChange(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{"House Blend": houseBlend()}}
	svc, _, stockRepo := newTestService(resolver)
	ctx := context.Background()
	stockKg(stockRepo, yirg, 10)
	stockKg(stockRepo, huila, 10)

	created, err := svc.Create(ctx, testSale(1))
	require.NoError(t, err)

	edited := *created.Sale
	edited.QuantityKg = types.NewQuantityFromFloat64(2)
	result, err := svc.Update(ctx, &edited)
	require.NoError(t, err)
	require.True(t, result.Deducted)

	// 2 kg roasted -> 2.4 green -> 1.680 + 0.720
	assert.Equal(t, "8.320", stockRepo.balances[yirg].String())
	assert.Equal(t, "9.280", stockRepo.balances[huila].String())
}

func TestUpdate_UsesRecipeAtEachDate(t *testing.T) {
	// Recipe switches to 100% huila from June 1.
	cutover := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	newRecipe := recipes.Recipe{
		ProductName: "House Blend",
		Source:      recipes.SourceMasterBOM,
		Lines:       []recipes.Line{{Bean: huila, RatioPct: 100}},
	}
	resolver := &fakeResolver{
		byProduct: map[string]recipes.Recipe{"House Blend": houseBlend()},
		cutover:   &cutover,
		after:     map[string]recipes.Recipe{"House Blend": newRecipe},
	}
	svc, _, stockRepo := newTestService(resolver)
	ctx := context.Background()
	stockKg(stockRepo, yirg, 10)
	stockKg(stockRepo, huila, 10)

	created, err := svc.Create(ctx, testSale(1)) // May: 70/30
	require.NoError(t, err)

	// Move the sale to July: restore uses the May recipe, the new
	// deduction uses the July recipe.
	edited := *created.Sale
	edited.Date = time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	result, err := svc.Update(ctx, &edited)
	require.NoError(t, err)
	require.True(t, result.Deducted)

	assert.Equal(t, "10.000", stockRepo.balances[yirg].String())
	assert.Equal(t, "8.800", stockRepo.balances[huila].String())
}

func TestDelete_RestoresConsumption(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{"House Blend": houseBlend()}}
	svc, repo, stockRepo := newTestService(resolver)
	ctx := context.Background()
	stockKg(stockRepo, yirg, 10)
	stockKg(stockRepo, huila, 10)

	created, err := svc.Create(ctx, testSale(1))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.Sale.ID))

	assert.Empty(t, repo.rows)
	assert.Equal(t, "10.000", stockRepo.balances[yirg].String())
	assert.Equal(t, "10.000", stockRepo.balances[huila].String())

	// sale -0.840/-0.360 then sale_delete +0.840/+0.360
	require.Len(t, stockRepo.ledger, 4)
	assert.Equal(t, stock.EntrySaleDelete, stockRepo.ledger[2].Type)
}

func TestCreate_TinySaleLineRoundsToZero(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{"House Blend": houseBlend()}}
	svc, repo, stockRepo := newTestService(resolver)
	ctx := context.Background()
	stockKg(stockRepo, yirg, 10)
	stockKg(stockRepo, huila, 10)

	// 0.001 kg roasted -> 0.001 green; the 30% line rounds to 0.000 kg
	// and must not block the sale.
	result, err := svc.Create(ctx, testSale(0.001))
	require.NoError(t, err)

	assert.Len(t, repo.rows, 1)
	assert.True(t, result.Deducted)
	assert.Empty(t, result.Warnings)

	require.Len(t, stockRepo.ledger, 1)
	assert.Equal(t, yirg, stockRepo.ledger[0].Bean())
	assert.Equal(t, "-0.001", stockRepo.ledger[0].DeltaKg.String())
	assert.Equal(t, "10.000", stockRepo.balances[huila].String())

	// Deleting it restores only the line that was deducted.
	require.NoError(t, svc.Delete(ctx, result.Sale.ID))
	assert.Equal(t, "10.000", stockRepo.balances[yirg].String())
	assert.Equal(t, "10.000", stockRepo.balances[huila].String())
}

func TestCreate_Validation(t *testing.T) {
	resolver := &fakeResolver{byProduct: map[string]recipes.Recipe{}}
	svc, _, _ := newTestService(resolver)
	ctx := context.Background()

	doc := testSale(1)
	doc.ProductName = ""
	_, err := svc.Create(ctx, doc)
	assert.Error(t, err)

	doc = testSale(0)
	_, err = svc.Create(ctx, doc)
	assert.Error(t, err)
}
