package dto

import (
	"time"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/documents/purchase"
)

// CreatePurchaseRequest for recording a green bean purchase.
type CreatePurchaseRequest struct {
	Date        time.Time        `json:"date" binding:"required"`
	BeanOrigin  string           `json:"beanOrigin" binding:"required"`
	BeanProduct string           `json:"beanProduct" binding:"required"`
	QuantityKg  types.Quantity   `json:"quantityKg" binding:"required"`
	UnitPrice   types.MinorUnits `json:"unitPrice"`
	TotalAmount types.MinorUnits `json:"totalAmount"`
	Supplier    string           `json:"supplier"`
	Notes       string           `json:"notes"`
}

// ToEntity converts the request to a purchase document.
func (r CreatePurchaseRequest) ToEntity() *purchase.Purchase {
	return &purchase.Purchase{
		Date:        r.Date,
		BeanOrigin:  r.BeanOrigin,
		BeanProduct: r.BeanProduct,
		QuantityKg:  r.QuantityKg,
		UnitPrice:   r.UnitPrice,
		TotalAmount: r.TotalAmount,
		Supplier:    r.Supplier,
		Notes:       r.Notes,
	}
}

// UpdatePurchaseRequest replaces the editable fields of a purchase.
type UpdatePurchaseRequest struct {
	Date        time.Time        `json:"date" binding:"required"`
	BeanOrigin  string           `json:"beanOrigin" binding:"required"`
	BeanProduct string           `json:"beanProduct" binding:"required"`
	QuantityKg  types.Quantity   `json:"quantityKg" binding:"required"`
	UnitPrice   types.MinorUnits `json:"unitPrice"`
	TotalAmount types.MinorUnits `json:"totalAmount"`
	Supplier    string           `json:"supplier"`
	Notes       string           `json:"notes"`
}

// ApplyTo applies the request to an existing purchase.
func (r UpdatePurchaseRequest) ApplyTo(p *purchase.Purchase) {
	p.Date = r.Date
	p.BeanOrigin = r.BeanOrigin
	p.BeanProduct = r.BeanProduct
	p.QuantityKg = r.QuantityKg
	p.UnitPrice = r.UnitPrice
	p.TotalAmount = r.TotalAmount
	p.Supplier = r.Supplier
	p.Notes = r.Notes
}
