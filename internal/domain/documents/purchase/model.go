// Package purchase provides green bean purchase documents. Every
// create, edit and delete drives the stock register inside one
// transaction.
package purchase

import (
	"time"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
)

// Purchase is one green bean purchase document.
type Purchase struct {
	ID          id.ID            `json:"id" db:"id"`
	Number      string           `json:"number" db:"number"`
	Date        time.Time        `json:"date" db:"purchase_date"`
	BeanOrigin  string           `json:"beanOrigin" db:"bean_origin"`
	BeanProduct string           `json:"beanProduct" db:"bean_product"`
	QuantityKg  types.Quantity   `json:"quantityKg" db:"quantity_kg"`
	UnitPrice   types.MinorUnits `json:"unitPrice" db:"unit_price"`
	TotalAmount types.MinorUnits `json:"totalAmount" db:"total_amount"`
	Supplier    string           `json:"supplier,omitempty" db:"supplier"`
	Notes       string           `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// Bean returns the purchase's bean identity.
func (p *Purchase) Bean() bean.Bean {
	return bean.Bean{Origin: p.BeanOrigin, Product: p.BeanProduct}
}

// Validate checks document invariants before any write.
func (p *Purchase) Validate() error {
	if err := p.Bean().Validate(); err != nil {
		return err
	}
	if !p.QuantityKg.IsPositive() {
		return apperror.NewValidation("purchase quantity must be positive")
	}
	if p.UnitPrice.IsNegative() || p.TotalAmount.IsNegative() {
		return apperror.NewValidation("purchase amounts must not be negative")
	}
	if p.Date.IsZero() {
		return apperror.NewValidation("purchase date is required")
	}
	return nil
}

// Normalize fills derived fields: total from unit price, or unit price
// from total, whichever is missing.
func (p *Purchase) Normalize() {
	if p.TotalAmount.IsZero() && !p.UnitPrice.IsZero() {
		p.TotalAmount = p.UnitPrice.MulQuantity(p.QuantityKg)
	}
	if p.UnitPrice.IsZero() && !p.TotalAmount.IsZero() && p.QuantityKg.IsPositive() {
		p.UnitPrice = types.NewMinorUnitsFromDecimal(
			p.TotalAmount.Decimal().Div(p.QuantityKg.Decimal()))
	}
}

// snapshot captures audit-relevant fields.
func (p *Purchase) snapshot() map[string]any {
	return map[string]any{
		"number":       p.Number,
		"date":         p.Date.Format("2006-01-02"),
		"bean_origin":  p.BeanOrigin,
		"bean_product": p.BeanProduct,
		"quantity_kg":  p.QuantityKg.String(),
		"unit_price":   p.UnitPrice.String(),
		"total_amount": p.TotalAmount.String(),
		"supplier":     p.Supplier,
		"notes":        p.Notes,
	}
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	Bean     *bean.Bean
	FromDate *time.Time
	ToDate   *time.Time
	Supplier string
	Limit    int
	Offset   int
}
