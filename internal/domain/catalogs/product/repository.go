package product

import (
	"context"

	"roastledger/internal/core/id"
)

// Repository defines storage operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
}
