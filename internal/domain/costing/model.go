// Package costing allocates bean and variable costs to sold products
// and derives monthly margins.
package costing

import (
	"time"

	"roastledger/internal/core/types"
)

// VariableCost is the per-kg overhead rate (labor, gas, packaging) for
// one calendar month. One row per (year, month); upserts replace.
type VariableCost struct {
	Year      int              `json:"year" db:"year"`
	Month     time.Month       `json:"month" db:"month"`
	CostPerKg types.MinorUnits `json:"costPerKg" db:"cost_per_kg"`
	Notes     string           `json:"notes,omitempty" db:"notes"`
	UpdatedAt time.Time        `json:"updatedAt" db:"updated_at"`
}

// MarginRow is one month of the profitability report.
type MarginRow struct {
	Year           int              `json:"year"`
	Month          time.Month       `json:"month"`
	QuantityKg     types.Quantity   `json:"quantityKg"`
	Revenue        types.MinorUnits `json:"revenue"`
	BeanCost       types.MinorUnits `json:"beanCost"`
	VariableCost   types.MinorUnits `json:"variableCost"`
	COGS           types.MinorUnits `json:"cogs"`
	GrossProfit    types.MinorUnits `json:"grossProfit"`
	GrossMarginPct float64          `json:"grossMarginPct"`
}
