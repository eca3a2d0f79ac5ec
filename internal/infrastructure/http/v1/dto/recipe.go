package dto

import (
	"time"

	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/recipes"
)

// RecipeLineRequest is one blend component in a recipe payload.
type RecipeLineRequest struct {
	Origin   string  `json:"origin" binding:"required"`
	Product  string  `json:"product" binding:"required"`
	RatioPct float64 `json:"ratioPct" binding:"required"`
}

func toRecipeLines(reqs []RecipeLineRequest) []recipes.Line {
	lines := make([]recipes.Line, len(reqs))
	for i, r := range reqs {
		lines[i] = recipes.Line{
			Bean:     bean.New(r.Origin, r.Product),
			RatioPct: r.RatioPct,
		}
	}
	return lines
}

// CreateBOMRequest for creating master BOMs.
type CreateBOMRequest struct {
	Name          string              `json:"name" binding:"required"`
	Description   string              `json:"description"`
	EffectiveDate *time.Time          `json:"effectiveDate"`
	Lines         []RecipeLineRequest `json:"lines" binding:"required,min=1"`
}

// ToEntity converts the request to a master BOM.
func (r CreateBOMRequest) ToEntity() recipes.MasterBOM {
	return recipes.MasterBOM{
		Name:          r.Name,
		Description:   r.Description,
		EffectiveDate: r.EffectiveDate,
		Lines:         toRecipeLines(r.Lines),
	}
}

// AssignBOMRequest links a product to a BOM from a date. A null bomId
// unlinks the product so legacy recipes apply again.
type AssignBOMRequest struct {
	BOMID         *string   `json:"bomId"`
	EffectiveDate time.Time `json:"effectiveDate" binding:"required"`
	Note          string    `json:"note"`
}

// CreateLegacyRecipeRequest for appending a flat recipe batch.
type CreateLegacyRecipeRequest struct {
	ProductName   string              `json:"productName" binding:"required"`
	EffectiveDate *time.Time          `json:"effectiveDate"`
	Lines         []RecipeLineRequest `json:"lines" binding:"required,min=1"`
}

// ToEntity converts the request to a legacy batch.
func (r CreateLegacyRecipeRequest) ToEntity() recipes.LegacyBatch {
	return recipes.LegacyBatch{
		ProductName:   r.ProductName,
		EffectiveDate: r.EffectiveDate,
		Lines:         toRecipeLines(r.Lines),
	}
}
