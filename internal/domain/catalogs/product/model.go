// Package product provides the roasted product catalog.
package product

import (
	"strings"
	"time"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
)

// Product is one sellable roasted product. Recipe links live in the BOM
// assignment history, not on the product row.
type Product struct {
	ID        id.ID     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks catalog invariants.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("product name is required")
	}
	return nil
}

// ListFilter narrows product listings.
type ListFilter struct {
	IncludeInactive bool
	NameContains    string
}
