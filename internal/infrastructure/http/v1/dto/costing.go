package dto

import (
	"time"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/costing"
)

// SetVariableCostRequest sets the monthly variable cost rate per kg.
type SetVariableCostRequest struct {
	Year      int              `json:"year" binding:"required"`
	Month     int              `json:"month" binding:"required,min=1,max=12"`
	CostPerKg types.MinorUnits `json:"costPerKg"`
	Notes     string           `json:"notes"`
}

// ToEntity converts the request to a variable cost row.
func (r SetVariableCostRequest) ToEntity() costing.VariableCost {
	return costing.VariableCost{
		Year:      r.Year,
		Month:     time.Month(r.Month),
		CostPerKg: r.CostPerKg,
		Notes:     r.Notes,
	}
}
