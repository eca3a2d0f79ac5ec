package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
)

// memRepo is an in-memory Repository for register tests.
type memRepo struct {
	balances map[bean.Bean]types.Quantity
	ledger   []Transaction
}

func newMemRepo() *memRepo {
	return &memRepo{balances: make(map[bean.Bean]types.Quantity)}
}

func (r *memRepo) UpsertBalance(ctx context.Context, b bean.Bean, delta types.Quantity) error {
	r.balances[b] += delta
	return nil
}

func (r *memRepo) GetBalance(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	return r.balances[b], nil
}

func (r *memRepo) GetBalanceForUpdate(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	return r.balances[b], nil
}

func (r *memRepo) ListBalances(ctx context.Context, excludeZero bool) ([]Balance, error) {
	var out []Balance
	for b, q := range r.balances {
		if excludeZero && q.IsZero() {
			continue
		}
		out = append(out, Balance{BeanOrigin: b.Origin, BeanProduct: b.Product, QuantityKg: q})
	}
	return out, nil
}

func (r *memRepo) AppendTransaction(ctx context.Context, t *Transaction) error {
	r.ledger = append(r.ledger, *t)
	return nil
}

func (r *memRepo) ListTransactions(ctx context.Context, b bean.Bean, filter TransactionFilter) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.ledger {
		if t.Bean() == b {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) ListTransactionsByRef(ctx context.Context, refID id.ID) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.ledger {
		if t.RefID == refID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) SumDeltasByBean(ctx context.Context) (map[bean.Bean]types.Quantity, error) {
	sums := make(map[bean.Bean]types.Quantity)
	for _, t := range r.ledger {
		sums[t.Bean()] += t.DeltaKg
	}
	return sums, nil
}

func entry(b bean.Bean, kg float64, typ EntryType) Entry {
	return Entry{
		Bean:    b,
		DeltaKg: types.NewQuantityFromFloat64(kg),
		Type:    typ,
		RefID:   id.New(),
		Date:    time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestApply_UpdatesBalanceAndLedger(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()
	yirg := bean.New("Ethiopia", "Yirgacheffe G1")

	require.NoError(t, svc.Apply(ctx, entry(yirg, 10, EntryPurchase)))
	require.NoError(t, svc.Apply(ctx, entry(yirg, -0.84, EntrySale)))

	got, err := svc.Availability(ctx, yirg)
	require.NoError(t, err)
	assert.Equal(t, "9.160", got.String())

	history, err := svc.History(ctx, yirg, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, EntryPurchase, history[0].Type)
	assert.Equal(t, EntrySale, history[1].Type)
}

func TestApply_AllowsNegativeBalance(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()
	b := bean.New("Colombia", "Huila Supremo")

	// Reversing a historical document may overdraw; the register accepts it.
	require.NoError(t, svc.Apply(ctx, entry(b, -2.5, EntryPurchaseDelete)))

	got, err := svc.Availability(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "-2.500", got.String())
}

func TestApply_Validation(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	b := bean.New("Kenya", "AA")

	e := entry(b, 1, EntryPurchase)
	e.DeltaKg = 0
	assert.Error(t, svc.Apply(ctx, e))

	e = entry(b, 1, EntryType("mystery"))
	assert.Error(t, svc.Apply(ctx, e))

	e = entry(b, 1, EntryPurchase)
	e.RefID = id.Nil()
	assert.Error(t, svc.Apply(ctx, e))

	e = entry(bean.Bean{}, 1, EntryPurchase)
	assert.Error(t, svc.Apply(ctx, e))
}

func TestApplyAll_AndHistoryByRef(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()
	yirg := bean.New("Ethiopia", "Yirgacheffe G1")
	huila := bean.New("Colombia", "Huila Supremo")

	refID := id.New()
	e1 := entry(yirg, -0.84, EntrySale)
	e1.RefID = refID
	e2 := entry(huila, -0.36, EntrySale)
	e2.RefID = refID
	require.NoError(t, svc.ApplyAll(ctx, []Entry{e1, e2}))
	require.NoError(t, svc.Apply(ctx, entry(yirg, 10, EntryPurchase)))

	rows, err := svc.HistoryByRef(ctx, refID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "-0.840", rows[0].DeltaKg.String())
	assert.Equal(t, huila, rows[1].Bean())
}

func TestCheckConsistency(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()
	b := bean.New("Brazil", "Santos")

	require.NoError(t, svc.Apply(ctx, entry(b, 5, EntryPurchase)))
	require.NoError(t, svc.Apply(ctx, entry(b, -1.2, EntrySale)))

	drift, err := svc.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)

	// Corrupt the materialized balance behind the ledger's back.
	repo.balances[b] = types.NewQuantityFromFloat64(99)

	drift, err = svc.CheckConsistency(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, b, drift[0].Bean)
	assert.Equal(t, "99.000", drift[0].BalanceKg.String())
	assert.Equal(t, "3.800", drift[0].LedgerSum.String())
	assert.Equal(t, "95.200", drift[0].DriftKg.String())
}
