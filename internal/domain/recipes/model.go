// Package recipes provides blend recipe storage and time-versioned
// resolution for roasted products.
package recipes

import (
	"time"

	"roastledger/internal/core/id"
	"roastledger/internal/domain/bean"
)

// Source tells which recipe path produced a resolution result.
type Source string

const (
	// SourceMasterBOM means the product had an assigned master BOM
	// effective at the requested date.
	SourceMasterBOM Source = "master_bom"

	// SourceLegacy means resolution fell back to the flat per-product
	// recipe table.
	SourceLegacy Source = "legacy"

	// SourceNone means no recipe could be found. Not an error:
	// callers record the sale and skip stock effects.
	SourceNone Source = "none"
)

// Line is one blend component: a bean and its share of the green weight.
type Line struct {
	Bean     bean.Bean `json:"bean"`
	RatioPct float64   `json:"ratioPct"`
}

// Recipe is a resolved blend for a product at a point in time.
type Recipe struct {
	ProductName string `json:"productName"`
	Source      Source `json:"source"`
	Lines       []Line `json:"lines,omitempty"`

	// BOMID and BOMName are set when Source is master_bom.
	BOMID   *id.ID `json:"bomId,omitempty"`
	BOMName string `json:"bomName,omitempty"`

	// EffectiveDate of the matched assignment or legacy batch, when known.
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}

// IsResolved reports whether the recipe has usable lines.
func (r Recipe) IsResolved() bool {
	return r.Source != SourceNone && len(r.Lines) > 0
}

// MasterBOM is a named, reusable blend definition.
type MasterBOM struct {
	ID            id.ID      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description,omitempty" db:"description"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty" db:"effective_date"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	Lines         []Line     `json:"lines,omitempty" db:"-"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// Assignment links a product to a master BOM from an effective date on.
// Assignments are append-only; the latest one at or before a sale date wins.
type Assignment struct {
	ID            id.ID     `json:"id" db:"id"`
	ProductID     id.ID     `json:"productId" db:"product_id"`
	BOMID         *id.ID    `json:"bomId" db:"bom_id"`
	EffectiveDate time.Time `json:"effectiveDate" db:"effective_date"`
	Note          string    `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// LegacyBatch is one dated set of flat recipe lines for a product.
// A nil EffectiveDate means the batch predates date tracking and is
// eligible at any date.
type LegacyBatch struct {
	ProductName   string     `json:"productName"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	Lines         []Line     `json:"lines"`
}
