package recipes

import (
	"context"
	"time"

	"roastledger/internal/core/id"
)

// Repository defines storage operations for recipe resolution and authoring.
// Lookups return apperror.NewNotFound when nothing matches; the resolver
// treats not-found as a signal to try the next recipe path.
type Repository interface {
	// Resolution path

	// FindActiveProduct returns the id of an active product by exact name.
	FindActiveProduct(ctx context.Context, name string) (id.ID, error)

	// FindAssignment returns the most recent BOM assignment for a product
	// with effective_date <= asOf. A nil asOf means the latest assignment
	// overall. Assignments with a null BOM (unlink) are returned as-is.
	FindAssignment(ctx context.Context, productID id.ID, asOf *time.Time) (Assignment, error)

	// GetBOM returns a master BOM with its lines.
	GetBOM(ctx context.Context, bomID id.ID) (MasterBOM, error)

	// FindLegacyBatch returns the flat recipe batch for a product at the
	// max qualifying effective date (null effective dates always qualify).
	FindLegacyBatch(ctx context.Context, productName string, asOf *time.Time) (LegacyBatch, error)

	// Authoring

	// CreateBOM inserts a master BOM and its lines.
	CreateBOM(ctx context.Context, bom *MasterBOM) error

	// GetBOMByName returns a master BOM by its unique name.
	GetBOMByName(ctx context.Context, name string) (MasterBOM, error)

	// ListBOMs returns master BOMs, optionally including inactive ones.
	ListBOMs(ctx context.Context, includeInactive bool) ([]MasterBOM, error)

	// SetBOMActive toggles a BOM's active flag.
	SetBOMActive(ctx context.Context, bomID id.ID, active bool) error

	// AppendAssignment records a new product-to-BOM assignment.
	AppendAssignment(ctx context.Context, a *Assignment) error

	// ListAssignments returns a product's assignment history, newest first.
	ListAssignments(ctx context.Context, productID id.ID) ([]Assignment, error)

	// AppendLegacyBatch inserts one dated batch of flat recipe lines.
	AppendLegacyBatch(ctx context.Context, batch LegacyBatch) error

	// ListLegacyBatches returns all flat batches for a product, newest first.
	ListLegacyBatches(ctx context.Context, productName string) ([]LegacyBatch, error)
}
