package purchase

import (
	"context"

	"roastledger/internal/core/id"
)

// Repository defines storage operations for purchase documents.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	Update(ctx context.Context, p *Purchase) error
	Delete(ctx context.Context, purchaseID id.ID) error
	GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error)
	List(ctx context.Context, filter ListFilter) ([]Purchase, error)
}
