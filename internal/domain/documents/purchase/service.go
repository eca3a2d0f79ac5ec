package purchase

import (
	"context"
	"fmt"
	"time"

	"roastledger/internal/core/id"
	"roastledger/internal/core/tx"
	"roastledger/internal/domain/audit"
	"roastledger/internal/domain/registers/stock"
	"roastledger/pkg/logger"
	"roastledger/pkg/numerator"
)

// NumberPrefix for generated purchase document numbers.
const NumberPrefix = "PUR"

// Service provides business operations for purchase documents.
type Service struct {
	repo      Repository
	register  *stock.Service
	numerator *numerator.Service
	auditor   audit.Recorder
	txManager tx.Manager
}

// NewService creates a purchase service.
func NewService(
	repo Repository,
	register *stock.Service,
	num *numerator.Service,
	auditor audit.Recorder,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		register:  register,
		numerator: num,
		auditor:   auditor,
		txManager: txManager,
	}
}

// Create stores a purchase and adds its quantity to stock.
func (s *Service) Create(ctx context.Context, p *Purchase) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if p.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix), nil, p.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		p.Number = number
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		if err := s.register.Apply(ctx, stock.Entry{
			Bean:    p.Bean(),
			DeltaKg: p.QuantityKg,
			Type:    stock.EntryPurchase,
			RefID:   p.ID,
			Date:    p.Date,
			Note:    fmt.Sprintf("purchase %s", p.Number),
		}); err != nil {
			return err
		}
		return s.auditor.Record(ctx, "purchase", p.ID, audit.ActionCreate, p.snapshot())
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase created",
		"id", p.ID, "number", p.Number,
		"bean", p.Bean().FullName(), "quantity_kg", p.QuantityKg.String())
	return nil
}

// Update edits a purchase, reversing the old stock effect and applying
// the new one in the same transaction. The reversal targets the bean and
// quantity as they were, so bean changes move stock between beans.
func (s *Service) Update(ctx context.Context, p *Purchase) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}

		p.Number = existing.Number
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = time.Now().UTC()

		if err := s.register.Apply(ctx, stock.Entry{
			Bean:    existing.Bean(),
			DeltaKg: existing.QuantityKg.Neg(),
			Type:    stock.EntryPurchaseEdit,
			RefID:   existing.ID,
			Date:    existing.Date,
			Note:    fmt.Sprintf("reverse purchase %s", existing.Number),
		}); err != nil {
			return err
		}
		if err := s.register.Apply(ctx, stock.Entry{
			Bean:    p.Bean(),
			DeltaKg: p.QuantityKg,
			Type:    stock.EntryPurchaseEdit,
			RefID:   p.ID,
			Date:    p.Date,
			Note:    fmt.Sprintf("reapply purchase %s", p.Number),
		}); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update purchase: %w", err)
		}

		return s.auditor.Record(ctx, "purchase", p.ID, audit.ActionUpdate,
			diffSnapshots(existing.snapshot(), p.snapshot()))
	})
}

// Delete removes a purchase and deducts its quantity from stock.
func (s *Service) Delete(ctx context.Context, purchaseID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, purchaseID)
		if err != nil {
			return err
		}

		if err := s.register.Apply(ctx, stock.Entry{
			Bean:    existing.Bean(),
			DeltaKg: existing.QuantityKg.Neg(),
			Type:    stock.EntryPurchaseDelete,
			RefID:   existing.ID,
			Date:    existing.Date,
			Note:    fmt.Sprintf("delete purchase %s", existing.Number),
		}); err != nil {
			return err
		}

		if err := s.repo.Delete(ctx, purchaseID); err != nil {
			return fmt.Errorf("delete purchase: %w", err)
		}

		return s.auditor.Record(ctx, "purchase", purchaseID, audit.ActionDelete, existing.snapshot())
	})
}

// GetByID retrieves a purchase.
func (s *Service) GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	return s.repo.GetByID(ctx, purchaseID)
}

// List retrieves purchases with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	return s.repo.List(ctx, filter)
}

// diffSnapshots returns old/new pairs for changed fields.
func diffSnapshots(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		if oldVal, ok := oldState[key]; !ok || oldVal != newVal {
			changes[key] = map[string]any{"old": oldState[key], "new": newVal}
		}
	}
	return changes
}
