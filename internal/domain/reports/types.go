// Package reports assembles operational views over stock, recipes and
// costing: current stock summary, production planning and the ledger
// consistency check.
package reports

import (
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/recipes"
	"roastledger/internal/domain/registers/stock"
)

// StockLine is one bean in the current stock summary.
type StockLine struct {
	Bean       bean.Bean        `json:"bean"`
	QuantityKg types.Quantity   `json:"quantityKg"`
	AvgPrice   types.MinorUnits `json:"avgPrice"`
	StockValue types.MinorUnits `json:"stockValue"`
	LowStock   bool             `json:"lowStock"`
}

// StockSummary is the current stock report.
type StockSummary struct {
	Lines        []StockLine      `json:"lines"`
	TotalValue   types.MinorUnits `json:"totalValue"`
	LowStockBean int              `json:"lowStockBeans"`
}

// PlanLine is one bean requirement in a production plan.
type PlanLine struct {
	Bean        bean.Bean      `json:"bean"`
	RatioPct    float64        `json:"ratioPct"`
	RequiredKg  types.Quantity `json:"requiredKg"`
	AvailableKg types.Quantity `json:"availableKg"`
	ShortKg     types.Quantity `json:"shortKg"`
}

// ProductionPlan answers "can we roast N kg of this product today".
type ProductionPlan struct {
	ProductName string         `json:"productName"`
	BatchKg     types.Quantity `json:"batchKg"`
	GreenKg     types.Quantity `json:"greenKg"`
	Recipe      recipes.Recipe `json:"recipe"`
	Lines       []PlanLine     `json:"lines,omitempty"`
	Feasible    bool           `json:"feasible"`
}

// ConsistencyReport is the ledger-vs-balance drift check result.
type ConsistencyReport struct {
	Consistent bool                  `json:"consistent"`
	Drift      []stock.Inconsistency `json:"drift,omitempty"`
}
