package reports

import (
	"context"
	"time"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/consumption"
	"roastledger/internal/domain/costing"
	"roastledger/internal/domain/recipes"
	"roastledger/internal/domain/registers/stock"
)

// Resolver resolves a product's blend recipe as of a date.
type Resolver interface {
	Resolve(ctx context.Context, productName string, asOf *time.Time) (recipes.Recipe, error)
}

// Service builds reports from the register, costing and recipe services.
type Service struct {
	register   *stock.Service
	costing    *costing.Service
	resolver   Resolver
	calc       *consumption.Calculator
	lowStockKg types.Quantity
}

// NewService creates a report service. lowStockKg is the threshold under
// which a bean is flagged in the stock summary.
func NewService(
	register *stock.Service,
	costingSvc *costing.Service,
	resolver Resolver,
	calc *consumption.Calculator,
	lowStockKg types.Quantity,
) *Service {
	return &Service{
		register:   register,
		costing:    costingSvc,
		resolver:   resolver,
		calc:       calc,
		lowStockKg: lowStockKg,
	}
}

// StockSummary returns every bean's current stock, weighted-average
// price as of now, and stock value.
func (s *Service) StockSummary(ctx context.Context) (StockSummary, error) {
	balances, err := s.register.Balances(ctx, false)
	if err != nil {
		return StockSummary{}, err
	}

	now := time.Now().UTC()
	summary := StockSummary{}
	for _, b := range balances {
		avg, err := s.costing.WeightedAvgPrice(ctx, b.Bean(), now)
		if err != nil {
			return StockSummary{}, err
		}

		line := StockLine{
			Bean:       b.Bean(),
			QuantityKg: b.QuantityKg,
			AvgPrice:   types.NewMinorUnitsFromDecimal(avg),
			StockValue: types.NewMinorUnitsFromDecimal(b.QuantityKg.Decimal().Mul(avg)),
			LowStock:   b.QuantityKg < s.lowStockKg,
		}
		if line.LowStock {
			summary.LowStockBean++
		}
		summary.TotalValue += line.StockValue
		summary.Lines = append(summary.Lines, line)
	}
	return summary, nil
}

// ProductionPlan computes per-bean green requirements for roasting
// batchKg of a product against current availability.
func (s *Service) ProductionPlan(ctx context.Context, productName string, batchKg types.Quantity) (ProductionPlan, error) {
	recipe, err := s.resolver.Resolve(ctx, productName, nil)
	if err != nil {
		return ProductionPlan{}, err
	}

	plan := ProductionPlan{
		ProductName: productName,
		BatchKg:     batchKg,
		GreenKg:     s.calc.GreenRequired(batchKg),
		Recipe:      recipe,
	}
	if !recipe.IsResolved() {
		return plan, nil
	}

	plan.Feasible = true
	for _, req := range s.calc.Required(batchKg, recipe.Lines) {
		available, err := s.register.Availability(ctx, req.Bean)
		if err != nil {
			return ProductionPlan{}, err
		}
		line := PlanLine{
			Bean:        req.Bean,
			RatioPct:    req.RatioPct,
			RequiredKg:  req.RequiredKg,
			AvailableKg: available,
		}
		if available < req.RequiredKg {
			line.ShortKg = req.RequiredKg - available
			plan.Feasible = false
		}
		plan.Lines = append(plan.Lines, line)
	}
	return plan, nil
}

// Consistency runs the register drift check.
func (s *Service) Consistency(ctx context.Context) (ConsistencyReport, error) {
	drift, err := s.register.CheckConsistency(ctx)
	if err != nil {
		return ConsistencyReport{}, err
	}
	return ConsistencyReport{Consistent: len(drift) == 0, Drift: drift}, nil
}

// ResolvedRecipe returns the recipe view for a product at a date.
func (s *Service) ResolvedRecipe(ctx context.Context, productName string, asOf *time.Time) (recipes.Recipe, error) {
	return s.resolver.Resolve(ctx, productName, asOf)
}

// MonthlyMargin proxies the costing series for the report surface.
func (s *Service) MonthlyMargin(ctx context.Context, from, to time.Time) ([]costing.MarginRow, error) {
	return s.costing.MonthlyMargin(ctx, from, to)
}
