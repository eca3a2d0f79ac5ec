// Package consumption converts roasted output into green bean requirements.
package consumption

import (
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/recipes"
)

// DefaultLossRate is the green-to-roasted weight factor: roasting loses
// moisture, so 1 kg of roasted product consumes 1.2 kg of green beans.
const DefaultLossRate = 1.2

// Requirement is the green bean amount one blend line consumes.
type Requirement struct {
	Bean       bean.Bean      `json:"bean"`
	RatioPct   float64        `json:"ratioPct"`
	RequiredKg types.Quantity `json:"requiredKg"`
}

// Calculator derives green bean requirements from finished quantities.
// The loss rate is fixed at construction so sale-side consumption and
// costing always agree.
type Calculator struct {
	lossRate float64
}

// NewCalculator creates a calculator with the given loss rate.
// Non-positive rates fall back to the default.
func NewCalculator(lossRate float64) *Calculator {
	if lossRate <= 0 {
		lossRate = DefaultLossRate
	}
	return &Calculator{lossRate: lossRate}
}

// LossRate returns the configured green-to-roasted factor.
func (c *Calculator) LossRate() float64 { return c.lossRate }

// GreenRequired converts finished (roasted) kg to total green kg,
// rounded to 3 decimals.
func (c *Calculator) GreenRequired(finishedKg types.Quantity) types.Quantity {
	return finishedKg.MulRound(c.lossRate)
}

// Required splits the green weight across blend lines.
// The total green quantity is rounded first, then each line is rounded
// independently; both use the same 3-decimal rule.
func (c *Calculator) Required(finishedKg types.Quantity, lines []recipes.Line) []Requirement {
	green := c.GreenRequired(finishedKg)

	reqs := make([]Requirement, 0, len(lines))
	for _, line := range lines {
		reqs = append(reqs, Requirement{
			Bean:       line.Bean,
			RatioPct:   line.RatioPct,
			RequiredKg: green.MulRound(line.RatioPct / 100),
		})
	}
	return reqs
}
