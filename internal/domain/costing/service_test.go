package costing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/consumption"
	"roastledger/internal/domain/documents/sale"
	"roastledger/internal/domain/recipes"
)

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type purchaseRow struct {
	bean   bean.Bean
	date   time.Time
	qty    types.Quantity
	amount types.MinorUnits
}

type memCostingRepo struct {
	purchases []purchaseRow
	sales     []sale.Sale
	rates     []VariableCost
}

func (r *memCostingRepo) SumPurchases(ctx context.Context, b bean.Bean, cutoff time.Time) (types.MinorUnits, types.Quantity, error) {
	var total types.MinorUnits
	var qty types.Quantity
	for _, p := range r.purchases {
		if p.bean == b && !p.date.After(cutoff) {
			total += p.amount
			qty += p.qty
		}
	}
	return total, qty, nil
}

func (r *memCostingRepo) ListSalesBetween(ctx context.Context, from, to time.Time) ([]sale.Sale, error) {
	var out []sale.Sale
	for _, s := range r.sales {
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memCostingRepo) UpsertVariableCost(ctx context.Context, vc *VariableCost) error {
	for i, existing := range r.rates {
		if existing.Year == vc.Year && existing.Month == vc.Month {
			r.rates[i] = *vc
			return nil
		}
	}
	r.rates = append(r.rates, *vc)
	return nil
}

func (r *memCostingRepo) FindVariableCost(ctx context.Context, year int, month time.Month) (VariableCost, error) {
	var best *VariableCost
	for i := range r.rates {
		vc := r.rates[i]
		if vc.Year > year || (vc.Year == year && vc.Month > month) {
			continue
		}
		if best == nil || vc.Year > best.Year || (vc.Year == best.Year && vc.Month > best.Month) {
			best = &vc
		}
	}
	if best == nil {
		return VariableCost{}, apperror.NewNotFound("variable cost", year)
	}
	return *best, nil
}

func (r *memCostingRepo) ListVariableCosts(ctx context.Context) ([]VariableCost, error) {
	return r.rates, nil
}

type fixedResolver struct {
	recipe recipes.Recipe
}

func (f *fixedResolver) Resolve(ctx context.Context, productName string, asOf *time.Time) (recipes.Recipe, error) {
	return f.recipe, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var santos = bean.New("Brazil", "Santos")

func purchase(b bean.Bean, d time.Time, kg, totalWon float64) purchaseRow {
	return purchaseRow{
		bean:   b,
		date:   d,
		qty:    types.NewQuantityFromFloat64(kg),
		amount: types.NewMinorUnitsFromFloat(totalWon),
	}
}

func TestWeightedAvgPrice_Exact(t *testing.T) {
	repo := &memCostingRepo{purchases: []purchaseRow{
		purchase(santos, date(2026, 1, 5), 10, 10*100),
		purchase(santos, date(2026, 2, 5), 20, 20*130),
		purchase(santos, date(2026, 3, 5), 10, 10*160),
	}}
	svc := NewService(repo, &fixedResolver{}, consumption.NewCalculator(1.2), noopTxManager{})

	// (1000 + 2600 + 1600) / 40 = 130 exactly.
	avg, err := svc.WeightedAvgPrice(context.Background(), santos, date(2026, 12, 31))
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.NewFromInt(130)), "got %s", avg)
}

func TestWeightedAvgPrice_RespectsCutoff(t *testing.T) {
	repo := &memCostingRepo{purchases: []purchaseRow{
		purchase(santos, date(2026, 1, 5), 10, 10*100),
		purchase(santos, date(2026, 6, 5), 10, 10*200),
	}}
	svc := NewService(repo, &fixedResolver{}, consumption.NewCalculator(1.2), noopTxManager{})

	avg, err := svc.WeightedAvgPrice(context.Background(), santos, date(2026, 3, 1))
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.NewFromInt(100)), "got %s", avg)
}

func TestWeightedAvgPrice_ZeroWhenNoPurchases(t *testing.T) {
	svc := NewService(&memCostingRepo{}, &fixedResolver{}, consumption.NewCalculator(1.2), noopTxManager{})
	avg, err := svc.WeightedAvgPrice(context.Background(), santos, date(2026, 3, 1))
	require.NoError(t, err)
	assert.True(t, avg.IsZero())
}

func TestMonthlyMargin(t *testing.T) {
	// 100% Santos blend; bean bought at a flat 100 won/kg.
	resolver := &fixedResolver{recipe: recipes.Recipe{
		Source: recipes.SourceMasterBOM,
		Lines:  []recipes.Line{{Bean: santos, RatioPct: 100}},
	}}
	repo := &memCostingRepo{
		purchases: []purchaseRow{purchase(santos, date(2026, 1, 5), 100, 100*100)},
		sales: []sale.Sale{
			{
				Number: "SAL-2026-00001", Date: date(2026, 3, 10),
				ProductName: "Dark Roast",
				QuantityKg:  types.NewQuantityFromFloat64(10),
				TotalAmount: types.NewMinorUnitsFromFloat(10000),
			},
		},
		rates: []VariableCost{{Year: 2026, Month: time.January, CostPerKg: types.NewMinorUnitsFromFloat(200)}},
	}
	svc := NewService(repo, resolver, consumption.NewCalculator(1.2), noopTxManager{})

	rows, err := svc.MonthlyMargin(context.Background(), date(2026, 3, 1), date(2026, 4, 30))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	march := rows[0]
	assert.Equal(t, 2026, march.Year)
	assert.Equal(t, time.March, march.Month)
	assert.Equal(t, "10.000", march.QuantityKg.String())
	assert.Equal(t, "10000.00", march.Revenue.String())
	// 10 kg roasted -> 12 kg green at 100 won/kg = 1200.
	assert.Equal(t, "1200.00", march.BeanCost.String())
	// January rate carries forward: 10 kg x 200 = 2000.
	assert.Equal(t, "2000.00", march.VariableCost.String())
	assert.Equal(t, "3200.00", march.COGS.String())
	assert.Equal(t, "6800.00", march.GrossProfit.String())
	assert.InDelta(t, 68.0, march.GrossMarginPct, 1e-9)

	// April has no sales: all zero, margin 0.
	april := rows[1]
	assert.Equal(t, time.April, april.Month)
	assert.True(t, april.Revenue.IsZero())
	assert.Zero(t, april.GrossMarginPct)
}

func TestVariableCostRate_ZeroWhenUnset(t *testing.T) {
	svc := NewService(&memCostingRepo{}, &fixedResolver{}, consumption.NewCalculator(1.2), noopTxManager{})
	rate, err := svc.VariableCostRate(context.Background(), 2026, time.March)
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestSetVariableCost_Validation(t *testing.T) {
	svc := NewService(&memCostingRepo{}, &fixedResolver{}, consumption.NewCalculator(1.2), noopTxManager{})
	ctx := context.Background()

	assert.Error(t, svc.SetVariableCost(ctx, VariableCost{Year: 1900, Month: time.March}))
	assert.Error(t, svc.SetVariableCost(ctx, VariableCost{Year: 2026, Month: 13}))
	assert.Error(t, svc.SetVariableCost(ctx, VariableCost{
		Year: 2026, Month: time.March, CostPerKg: types.MinorUnits(-1),
	}))
	assert.NoError(t, svc.SetVariableCost(ctx, VariableCost{
		Year: 2026, Month: time.March, CostPerKg: types.NewMinorUnitsFromFloat(150),
	}))
}
