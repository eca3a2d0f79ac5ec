package costing

import (
	"context"
	"time"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/documents/sale"
)

// Repository defines storage operations for costing.
type Repository interface {
	// SumPurchases returns the total amount and total quantity of all
	// purchases of a bean dated at or before cutoff.
	SumPurchases(ctx context.Context, b bean.Bean, cutoff time.Time) (types.MinorUnits, types.Quantity, error)

	// ListSalesBetween returns sales with from <= sale_date <= to.
	ListSalesBetween(ctx context.Context, from, to time.Time) ([]sale.Sale, error)

	// UpsertVariableCost replaces the rate for one (year, month).
	UpsertVariableCost(ctx context.Context, vc *VariableCost) error

	// FindVariableCost returns the most recent rate at or before the
	// given period; apperror.NewNotFound when no rate exists yet.
	FindVariableCost(ctx context.Context, year int, month time.Month) (VariableCost, error)

	// ListVariableCosts returns all rates, newest first.
	ListVariableCosts(ctx context.Context) ([]VariableCost, error)
}
