package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/tx"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/consumption"
	"roastledger/internal/domain/recipes"
	"roastledger/pkg/logger"
)

// Resolver resolves a product's blend recipe as of a date.
type Resolver interface {
	Resolve(ctx context.Context, productName string, asOf *time.Time) (recipes.Recipe, error)
}

// Service computes weighted-average bean prices and monthly margins.
type Service struct {
	repo      Repository
	resolver  Resolver
	calc      *consumption.Calculator
	txManager tx.Manager
}

// NewService creates a costing service. The calculator must be the same
// instance the sale side uses so consumption and costing agree.
func NewService(repo Repository, resolver Resolver, calc *consumption.Calculator, txManager tx.Manager) *Service {
	return &Service{repo: repo, resolver: resolver, calc: calc, txManager: txManager}
}

// WeightedAvgPrice returns the quantity-weighted mean purchase price per
// kg of a bean over all purchases dated at or before cutoff. Zero when
// the bean has no qualifying purchases.
func (s *Service) WeightedAvgPrice(ctx context.Context, b bean.Bean, cutoff time.Time) (decimal.Decimal, error) {
	total, qty, err := s.repo.SumPurchases(ctx, b, cutoff)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum purchases for %s: %w", b.FullName(), err)
	}
	if !qty.IsPositive() {
		return decimal.Zero, nil
	}
	return total.Decimal().Div(qty.Decimal()), nil
}

// SetVariableCost stores the per-kg overhead rate for one month.
func (s *Service) SetVariableCost(ctx context.Context, vc VariableCost) error {
	if vc.Year < 2000 || vc.Year > 2200 {
		return apperror.NewValidation("variable cost year out of range")
	}
	if vc.Month < time.January || vc.Month > time.December {
		return apperror.NewValidation("variable cost month out of range")
	}
	if vc.CostPerKg.IsNegative() {
		return apperror.NewValidation("variable cost must not be negative")
	}
	vc.UpdatedAt = time.Now().UTC()

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.UpsertVariableCost(ctx, &vc)
	})
}

// VariableCostRate returns the per-kg rate effective for a month: the
// most recent row at or before it, zero when none exists.
func (s *Service) VariableCostRate(ctx context.Context, year int, month time.Month) (types.MinorUnits, error) {
	vc, err := s.repo.FindVariableCost(ctx, year, month)
	if err != nil {
		if apperror.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return vc.CostPerKg, nil
}

// ListVariableCosts returns all stored rates.
func (s *Service) ListVariableCosts(ctx context.Context) ([]VariableCost, error) {
	return s.repo.ListVariableCosts(ctx)
}

// MonthlyMargin builds the profitability series for the inclusive month
// range [from, to].
//
// Bean cost uses each sale's recipe resolved at that sale's date, but
// prices every bean at its weighted average as of the month end. The
// month-end price cutoff is a deliberate approximation: intra-month
// purchase timing does not change the allocation.
func (s *Service) MonthlyMargin(ctx context.Context, from, to time.Time) ([]MarginRow, error) {
	if to.Before(from) {
		return nil, apperror.NewValidation("period end before period start")
	}

	var rows []MarginRow
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !cursor.After(end) {
		row, err := s.monthMargin(ctx, cursor.Year(), cursor.Month())
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return rows, nil
}

func (s *Service) monthMargin(ctx context.Context, year int, month time.Month) (MarginRow, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)

	sales, err := s.repo.ListSalesBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return MarginRow{}, fmt.Errorf("list sales %d-%02d: %w", year, month, err)
	}

	row := MarginRow{Year: year, Month: month}
	beanCost := decimal.Zero
	priceCache := make(map[bean.Bean]decimal.Decimal)

	for _, sl := range sales {
		row.QuantityKg += sl.QuantityKg
		row.Revenue += sl.TotalAmount

		saleDate := sl.Date
		recipe, err := s.resolver.Resolve(ctx, sl.ProductName, &saleDate)
		if err != nil {
			return MarginRow{}, err
		}
		if !recipe.IsResolved() {
			logger.Debug(ctx, "sale without recipe excluded from bean cost",
				"sale", sl.Number, "product", sl.ProductName)
			continue
		}

		for _, req := range s.calc.Required(sl.QuantityKg, recipe.Lines) {
			price, ok := priceCache[req.Bean]
			if !ok {
				price, err = s.WeightedAvgPrice(ctx, req.Bean, monthEnd)
				if err != nil {
					return MarginRow{}, err
				}
				priceCache[req.Bean] = price
			}
			beanCost = beanCost.Add(req.RequiredKg.Decimal().Mul(price))
		}
	}

	rate, err := s.VariableCostRate(ctx, year, month)
	if err != nil {
		return MarginRow{}, err
	}
	variable := row.QuantityKg.Decimal().Mul(rate.Decimal())

	row.BeanCost = types.NewMinorUnitsFromDecimal(beanCost)
	row.VariableCost = types.NewMinorUnitsFromDecimal(variable)
	row.COGS = row.BeanCost + row.VariableCost
	row.GrossProfit = row.Revenue - row.COGS
	if row.Revenue > 0 {
		row.GrossMarginPct, _ = row.GrossProfit.Decimal().
			Div(row.Revenue.Decimal()).Mul(decimal.NewFromInt(100)).Float64()
	}
	return row, nil
}
