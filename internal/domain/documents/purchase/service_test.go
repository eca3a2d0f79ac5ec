package purchase

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
	"roastledger/internal/domain/registers/stock"
	"roastledger/pkg/numerator"
)

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memPurchaseRepo struct {
	rows map[id.ID]Purchase
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{rows: make(map[id.ID]Purchase)}
}

func (r *memPurchaseRepo) Create(ctx context.Context, p *Purchase) error {
	r.rows[p.ID] = *p
	return nil
}

func (r *memPurchaseRepo) Update(ctx context.Context, p *Purchase) error {
	if _, ok := r.rows[p.ID]; !ok {
		return apperror.NewNotFound("purchase", p.ID)
	}
	r.rows[p.ID] = *p
	return nil
}

func (r *memPurchaseRepo) Delete(ctx context.Context, purchaseID id.ID) error {
	delete(r.rows, purchaseID)
	return nil
}

func (r *memPurchaseRepo) GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	if p, ok := r.rows[purchaseID]; ok {
		return &p, nil
	}
	return nil, apperror.NewNotFound("purchase", purchaseID)
}

func (r *memPurchaseRepo) List(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	var out []Purchase
	for _, p := range r.rows {
		out = append(out, p)
	}
	return out, nil
}

// memStockRepo backs the real register service in these tests.
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

// numQuerier hands out sequential document numbers.
type numQuerier struct{ n int64 }

func (q *numQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.n++
	return &seqRow{val: q.n}
}

func newTestService() (*Service, *memPurchaseRepo, *memStockRepo) {
	repo := newMemPurchaseRepo()
	stockRepo := newMemStockRepo()
	register := stock.NewService(stockRepo)
	num := numerator.New(&numQuerier{})
	svc := NewService(repo, register, num, audit.Noop{}, noopTxManager{})
	return svc, repo, stockRepo
}

func testPurchase(origin, product string, kg, pricePerKg float64) *Purchase {
	return &Purchase{
		Date:        time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		BeanOrigin:  origin,
		BeanProduct: product,
		QuantityKg:  types.NewQuantityFromFloat64(kg),
		UnitPrice:   types.NewMinorUnitsFromFloat(pricePerKg),
		Supplier:    "Direct Trade Co",
	}
}

func TestCreate_AddsStockAndNumber(t *testing.T) {
	svc, repo, stockRepo := newTestService()
	ctx := context.Background()

	p := testPurchase("Ethiopia", "Yirgacheffe G1", 10, 12000)
	require.NoError(t, svc.Create(ctx, p))

	assert.Equal(t, "PUR-2026-00001", p.Number)
	assert.Equal(t, "120000.00", p.TotalAmount.String())
	assert.Len(t, repo.rows, 1)

	balance := stockRepo.balances[bean.New("Ethiopia", "Yirgacheffe G1")]
	assert.Equal(t, "10.000", balance.String())

	require.Len(t, stockRepo.ledger, 1)
	assert.Equal(t, stock.EntryPurchase, stockRepo.ledger[0].Type)
	assert.Equal(t, p.ID, stockRepo.ledger[0].RefID)
}

func TestUpdate_ReversesThenReapplies(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()

	p := testPurchase("Ethiopia", "Yirgacheffe G1", 10, 12000)
	require.NoError(t, svc.Create(ctx, p))

	edited := *p
	edited.QuantityKg = types.NewQuantityFromFloat64(12)
	require.NoError(t, svc.Update(ctx, &edited))

	balance := stockRepo.balances[bean.New("Ethiopia", "Yirgacheffe G1")]
	assert.Equal(t, "12.000", balance.String())

	// create +10, edit -10, edit +12
	require.Len(t, stockRepo.ledger, 3)
	assert.Equal(t, stock.EntryPurchaseEdit, stockRepo.ledger[1].Type)
	assert.Equal(t, "-10.000", stockRepo.ledger[1].DeltaKg.String())
	assert.Equal(t, "12.000", stockRepo.ledger[2].DeltaKg.String())
}

func TestUpdate_BeanChangeMovesStock(t *testing.T) {
	svc, _, stockRepo := newTestService()
	ctx := context.Background()

	p := testPurchase("Ethiopia", "Yirgacheffe G1", 10, 12000)
	require.NoError(t, svc.Create(ctx, p))

	edited := *p
	edited.BeanOrigin = "Colombia"
	edited.BeanProduct = "Huila Supremo"
	require.NoError(t, svc.Update(ctx, &edited))

	assert.Equal(t, "0.000", stockRepo.balances[bean.New("Ethiopia", "Yirgacheffe G1")].String())
	assert.Equal(t, "10.000", stockRepo.balances[bean.New("Colombia", "Huila Supremo")].String())
}

func TestDelete_DeductsStock(t *testing.T) {
	svc, repo, stockRepo := newTestService()
	ctx := context.Background()

	p := testPurchase("Brazil", "Santos", 25, 8000)
	require.NoError(t, svc.Create(ctx, p))
	require.NoError(t, svc.Delete(ctx, p.ID))

	assert.Empty(t, repo.rows)
	assert.Equal(t, "0.000", stockRepo.balances[bean.New("Brazil", "Santos")].String())

	require.Len(t, stockRepo.ledger, 2)
	assert.Equal(t, stock.EntryPurchaseDelete, stockRepo.ledger[1].Type)
	assert.Equal(t, "-25.000", stockRepo.ledger[1].DeltaKg.String())
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p := testPurchase("", "Santos", 25, 8000)
	assert.Error(t, svc.Create(ctx, p))

	p = testPurchase("Brazil", "Santos", 0, 8000)
	assert.Error(t, svc.Create(ctx, p))

	p = testPurchase("Brazil", "Santos", 25, 8000)
	p.Date = time.Time{}
	assert.Error(t, svc.Create(ctx, p))
}
