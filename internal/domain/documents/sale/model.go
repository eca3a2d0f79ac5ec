// Package sale provides roasted product sale documents. Sales drive
// bean consumption: each sale resolves the product's recipe at the sale
// date and deducts green beans from stock in the same transaction.
package sale

import (
	"time"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/recipes"
)

// Sale is one roasted product sale document. UnitPrice and TotalAmount
// are net of VAT.
type Sale struct {
	ID          id.ID            `json:"id" db:"id"`
	Number      string           `json:"number" db:"number"`
	Date        time.Time        `json:"date" db:"sale_date"`
	ProductName string           `json:"productName" db:"product_name"`
	QuantityKg  types.Quantity   `json:"quantityKg" db:"quantity_kg"`
	UnitPrice   types.MinorUnits `json:"unitPrice" db:"unit_price"`
	TotalAmount types.MinorUnits `json:"totalAmount" db:"total_amount"`
	Customer    string           `json:"customer,omitempty" db:"customer"`
	Notes       string           `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// Validate checks document invariants before any write.
func (s *Sale) Validate() error {
	if s.ProductName == "" {
		return apperror.NewValidation("product name is required")
	}
	if !s.QuantityKg.IsPositive() {
		return apperror.NewValidation("sale quantity must be positive")
	}
	if s.UnitPrice.IsNegative() || s.TotalAmount.IsNegative() {
		return apperror.NewValidation("sale amounts must not be negative")
	}
	if s.Date.IsZero() {
		return apperror.NewValidation("sale date is required")
	}
	return nil
}

// Normalize fills the total from quantity and unit price when missing.
func (s *Sale) Normalize() {
	if s.TotalAmount.IsZero() && !s.UnitPrice.IsZero() {
		s.TotalAmount = s.UnitPrice.MulQuantity(s.QuantityKg)
	}
}

// snapshot captures audit-relevant fields.
func (s *Sale) snapshot() map[string]any {
	return map[string]any{
		"number":       s.Number,
		"date":         s.Date.Format("2006-01-02"),
		"product_name": s.ProductName,
		"quantity_kg":  s.QuantityKg.String(),
		"unit_price":   s.UnitPrice.String(),
		"total_amount": s.TotalAmount.String(),
		"customer":     s.Customer,
		"notes":        s.Notes,
	}
}

// Warning codes attached to sale results.
const (
	WarnNoRecipe = "no_recipe"
	WarnShortage = "shortage"
)

// Warning is a non-fatal condition produced while processing a sale.
// The sale is recorded either way.
type Warning struct {
	Code        string          `json:"code"`
	Message     string          `json:"message"`
	Bean        *bean.Bean      `json:"bean,omitempty"`
	RequiredKg  *types.Quantity `json:"requiredKg,omitempty"`
	AvailableKg *types.Quantity `json:"availableKg,omitempty"`
}

// Result reports what a sale mutation did: the stored document, the
// recipe it resolved, whether stock was deducted, and any warnings.
type Result struct {
	Sale     *Sale          `json:"sale"`
	Recipe   recipes.Recipe `json:"recipe"`
	Deducted bool           `json:"deducted"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	ProductName string
	FromDate    *time.Time
	ToDate      *time.Time
	Customer    string
	Limit       int
	Offset      int
}
