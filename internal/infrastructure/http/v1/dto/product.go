package dto

import (
	"roastledger/internal/domain/catalogs/product"
)

// CreateProductRequest for creating catalog products.
type CreateProductRequest struct {
	Name  string `json:"name" binding:"required"`
	Notes string `json:"notes"`
}

// ToEntity converts the request to a product.
func (r CreateProductRequest) ToEntity() *product.Product {
	return &product.Product{
		Name:  r.Name,
		Notes: r.Notes,
	}
}

// UpdateProductRequest for updating catalog products.
type UpdateProductRequest struct {
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
}

// ApplyTo applies non-nil fields to an existing product.
func (r UpdateProductRequest) ApplyTo(p *product.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
}

// SetActiveRequest toggles a product's active flag.
type SetActiveRequest struct {
	Active bool `json:"active"`
}
