package sale

import (
	"context"
	"time"

	"roastledger/internal/core/id"
	"roastledger/internal/domain/recipes"
)

// Repository defines storage operations for sale documents.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	Update(ctx context.Context, s *Sale) error
	Delete(ctx context.Context, saleID id.ID) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
}

// Resolver resolves a product's blend recipe as of a date.
// Satisfied by recipes.Service.
type Resolver interface {
	Resolve(ctx context.Context, productName string, asOf *time.Time) (recipes.Recipe, error)
}
