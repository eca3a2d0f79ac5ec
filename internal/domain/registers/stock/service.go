package stock

import (
	"context"
	"fmt"
	"time"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/pkg/logger"
)

// Service is the only writer of bean balances. Document services call
// Apply inside their own transaction; each entry updates the balance and
// appends exactly one ledger row.
type Service struct {
	repo Repository
}

// NewService creates a stock register service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Apply records one stock mutation. Balances may go negative: reversals
// of historical documents must always succeed, shortage control is the
// sale service's concern.
func (s *Service) Apply(ctx context.Context, e Entry) error {
	if err := e.Bean.Validate(); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return apperror.NewValidation(fmt.Sprintf("unknown entry type %q", e.Type))
	}
	if e.DeltaKg.IsZero() {
		return apperror.NewValidation("entry delta must be non-zero")
	}
	if id.IsNil(e.RefID) {
		return apperror.NewValidation("entry reference id is required")
	}

	if err := s.repo.UpsertBalance(ctx, e.Bean, e.DeltaKg); err != nil {
		return fmt.Errorf("upsert balance for %s: %w", e.Bean.FullName(), err)
	}

	t := Transaction{
		ID:          id.New(),
		Date:        e.Date,
		Type:        e.Type,
		BeanOrigin:  e.Bean.Origin,
		BeanProduct: e.Bean.Product,
		DeltaKg:     e.DeltaKg,
		RefID:       e.RefID,
		Note:        e.Note,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.AppendTransaction(ctx, &t); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	logger.Debug(ctx, "applied stock entry",
		"bean", e.Bean.FullName(),
		"delta_kg", e.DeltaKg.String(),
		"type", e.Type,
		"ref_id", e.RefID,
	)
	return nil
}

// ApplyAll records a batch of entries in order.
func (s *Service) ApplyAll(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if err := s.Apply(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Availability returns the current balance of a bean (zero when unseen).
func (s *Service) Availability(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	return s.repo.GetBalance(ctx, b)
}

// AvailabilityForUpdate returns the balance with a row lock, for
// check-then-deduct sequences inside a transaction.
func (s *Service) AvailabilityForUpdate(ctx context.Context, b bean.Bean) (types.Quantity, error) {
	return s.repo.GetBalanceForUpdate(ctx, b)
}

// Balances returns all bean balances.
func (s *Service) Balances(ctx context.Context, excludeZero bool) ([]Balance, error) {
	return s.repo.ListBalances(ctx, excludeZero)
}

// History returns a bean's ledger rows, newest first.
func (s *Service) History(ctx context.Context, b bean.Bean, filter TransactionFilter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, b, filter)
}

// HistoryByRef returns the ledger rows one document produced.
func (s *Service) HistoryByRef(ctx context.Context, refID id.ID) ([]Transaction, error) {
	return s.repo.ListTransactionsByRef(ctx, refID)
}

// CheckConsistency compares every materialized balance against the sum
// of its ledger deltas and reports the beans that drifted.
func (s *Service) CheckConsistency(ctx context.Context) ([]Inconsistency, error) {
	sums, err := s.repo.SumDeltasByBean(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum ledger deltas: %w", err)
	}

	balances, err := s.repo.ListBalances(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}

	balanceByBean := make(map[bean.Bean]types.Quantity, len(balances))
	for _, b := range balances {
		balanceByBean[b.Bean()] = b.QuantityKg
	}

	var drift []Inconsistency
	seen := make(map[bean.Bean]bool, len(sums))
	for b, sum := range sums {
		seen[b] = true
		bal := balanceByBean[b]
		if bal != sum {
			drift = append(drift, Inconsistency{
				Bean:      b,
				BalanceKg: bal,
				LedgerSum: sum,
				DriftKg:   bal - sum,
			})
		}
	}
	// Balances with no ledger rows at all are drift too.
	for b, bal := range balanceByBean {
		if !seen[b] && !bal.IsZero() {
			drift = append(drift, Inconsistency{
				Bean:      b,
				BalanceKg: bal,
				LedgerSum: 0,
				DriftKg:   bal,
			})
		}
	}

	if len(drift) > 0 {
		logger.Warn(ctx, "stock register inconsistent", "beans", len(drift))
	}
	return drift, nil
}
