package dto

import (
	"time"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/documents/sale"
)

// CreateSaleRequest for recording a roasted product sale.
type CreateSaleRequest struct {
	Date        time.Time        `json:"date" binding:"required"`
	ProductName string           `json:"productName" binding:"required"`
	QuantityKg  types.Quantity   `json:"quantityKg" binding:"required"`
	UnitPrice   types.MinorUnits `json:"unitPrice"`
	TotalAmount types.MinorUnits `json:"totalAmount"`
	Customer    string           `json:"customer"`
	Notes       string           `json:"notes"`
}

// ToEntity converts the request to a sale document.
func (r CreateSaleRequest) ToEntity() *sale.Sale {
	return &sale.Sale{
		Date:        r.Date,
		ProductName: r.ProductName,
		QuantityKg:  r.QuantityKg,
		UnitPrice:   r.UnitPrice,
		TotalAmount: r.TotalAmount,
		Customer:    r.Customer,
		Notes:       r.Notes,
	}
}

// UpdateSaleRequest replaces the editable fields of a sale.
type UpdateSaleRequest struct {
	Date        time.Time        `json:"date" binding:"required"`
	ProductName string           `json:"productName" binding:"required"`
	QuantityKg  types.Quantity   `json:"quantityKg" binding:"required"`
	UnitPrice   types.MinorUnits `json:"unitPrice"`
	TotalAmount types.MinorUnits `json:"totalAmount"`
	Customer    string           `json:"customer"`
	Notes       string           `json:"notes"`
}

// ApplyTo applies the request to an existing sale.
func (r UpdateSaleRequest) ApplyTo(s *sale.Sale) {
	s.Date = r.Date
	s.ProductName = r.ProductName
	s.QuantityKg = r.QuantityKg
	s.UnitPrice = r.UnitPrice
	s.TotalAmount = r.TotalAmount
	s.Customer = r.Customer
	s.Notes = r.Notes
}
