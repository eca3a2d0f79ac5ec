package sale

import (
	"context"
	"fmt"
	"time"

	"roastledger/internal/core/id"
	"roastledger/internal/core/tx"
	"roastledger/internal/domain/audit"
	"roastledger/internal/domain/consumption"
	"roastledger/internal/domain/recipes"
	"roastledger/internal/domain/registers/stock"
	"roastledger/pkg/logger"
	"roastledger/pkg/numerator"
)

// NumberPrefix for generated sale document numbers.
const NumberPrefix = "SAL"

// Service provides business operations for sale documents.
type Service struct {
	repo      Repository
	resolver  Resolver
	calc      *consumption.Calculator
	register  *stock.Service
	numerator *numerator.Service
	auditor   audit.Recorder
	txManager tx.Manager
}

// NewService creates a sale service.
func NewService(
	repo Repository,
	resolver Resolver,
	calc *consumption.Calculator,
	register *stock.Service,
	num *numerator.Service,
	auditor audit.Recorder,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		resolver:  resolver,
		calc:      calc,
		register:  register,
		numerator: num,
		auditor:   auditor,
		txManager: txManager,
	}
}

// Create records a sale and deducts green bean consumption.
//
// Failure policy: an unresolved recipe or insufficient stock never
// rejects the sale. The document is stored, deductions are skipped as a
// whole, and the result carries warnings.
func (s *Service) Create(ctx context.Context, doc *Sale) (*Result, error) {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if id.IsNil(doc.ID) {
		doc.ID = id.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix), nil, doc.Date)
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	result := &Result{Sale: doc}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		var err error
		result.Recipe, result.Deducted, result.Warnings, err =
			s.deduct(ctx, doc, stock.EntrySale)
		if err != nil {
			return err
		}

		return s.auditor.Record(ctx, "sale", doc.ID, audit.ActionCreate, doc.snapshot())
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale created",
		"id", doc.ID, "number", doc.Number, "product", doc.ProductName,
		"quantity_kg", doc.QuantityKg.String(),
		"deducted", result.Deducted, "warnings", len(result.Warnings))
	return result, nil
}

// Update edits a sale. Consumption at the original date and quantity is
// restored first, then consumption at the new date and quantity is
// deducted under the usual skip-and-warn policy. Both phases and the row
// update run in one transaction, so a no-op edit round-trips exactly.
func (s *Service) Update(ctx context.Context, doc *Sale) (*Result, error) {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	result := &Result{Sale: doc}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}

		doc.Number = existing.Number
		doc.CreatedAt = existing.CreatedAt
		doc.UpdatedAt = time.Now().UTC()

		if err := s.restore(ctx, existing, stock.EntrySaleEdit); err != nil {
			return err
		}

		result.Recipe, result.Deducted, result.Warnings, err =
			s.deduct(ctx, doc, stock.EntrySaleEdit)
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}

		return s.auditor.Record(ctx, "sale", doc.ID, audit.ActionUpdate,
			diffSnapshots(existing.snapshot(), doc.snapshot()))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale updated",
		"id", doc.ID, "number", doc.Number,
		"deducted", result.Deducted, "warnings", len(result.Warnings))
	return result, nil
}

// Delete removes a sale and restores the consumption it caused, using
// the recipe at the original sale date and quantity.
func (s *Service) Delete(ctx context.Context, saleID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, saleID)
		if err != nil {
			return err
		}

		if err := s.restore(ctx, existing, stock.EntrySaleDelete); err != nil {
			return err
		}

		if err := s.repo.Delete(ctx, saleID); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}

		return s.auditor.Record(ctx, "sale", saleID, audit.ActionDelete, existing.snapshot())
	})
}

// GetByID retrieves a sale.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.List(ctx, filter)
}

// deduct resolves the recipe at the sale's date and deducts consumption.
// If any bean falls short the whole deduction is skipped and each short
// bean produces a warning with required vs available.
func (s *Service) deduct(ctx context.Context, doc *Sale, entryType stock.EntryType) (rec recipes.Recipe, deducted bool, warnings []Warning, err error) {
	recipe, err := s.resolver.Resolve(ctx, doc.ProductName, &doc.Date)
	if err != nil {
		return recipe, false, nil, err
	}
	if !recipe.IsResolved() {
		warnings = append(warnings, Warning{
			Code:    WarnNoRecipe,
			Message: fmt.Sprintf("no recipe found for %q; stock not updated", doc.ProductName),
		})
		return recipe, false, warnings, nil
	}

	var entries []stock.Entry
	for _, req := range s.calc.Required(doc.QuantityKg, recipe.Lines) {
		// Tiny sales can round a line's requirement down to nothing.
		if req.RequiredKg.IsZero() {
			continue
		}

		available, err := s.register.AvailabilityForUpdate(ctx, req.Bean)
		if err != nil {
			return recipe, false, nil, fmt.Errorf("check stock for %s: %w", req.Bean.FullName(), err)
		}
		if available < req.RequiredKg {
			b := req.Bean
			required := req.RequiredKg
			avail := available
			warnings = append(warnings, Warning{
				Code: WarnShortage,
				Message: fmt.Sprintf("insufficient stock for %s: need %s kg, have %s kg",
					b.FullName(), required.String(), avail.String()),
				Bean:        &b,
				RequiredKg:  &required,
				AvailableKg: &avail,
			})
			continue
		}

		entries = append(entries, stock.Entry{
			Bean:    req.Bean,
			DeltaKg: req.RequiredKg.Neg(),
			Type:    entryType,
			RefID:   doc.ID,
			Date:    doc.Date,
			Note:    fmt.Sprintf("sale %s: %s", doc.Number, doc.ProductName),
		})
	}
	if len(warnings) > 0 {
		logger.Warn(ctx, "sale recorded without deductions",
			"sale_id", doc.ID, "product", doc.ProductName, "short_beans", len(warnings))
		return recipe, false, warnings, nil
	}

	if err := s.register.ApplyAll(ctx, entries); err != nil {
		return recipe, false, nil, err
	}
	return recipe, len(entries) > 0, nil, nil
}

// restore adds back the consumption a sale caused, resolved at its own
// date and quantity. Restores always apply in full.
func (s *Service) restore(ctx context.Context, doc *Sale, entryType stock.EntryType) error {
	recipe, err := s.resolver.Resolve(ctx, doc.ProductName, &doc.Date)
	if err != nil {
		return err
	}
	if !recipe.IsResolved() {
		return nil
	}

	var entries []stock.Entry
	for _, req := range s.calc.Required(doc.QuantityKg, recipe.Lines) {
		if req.RequiredKg.IsZero() {
			continue
		}
		entries = append(entries, stock.Entry{
			Bean:    req.Bean,
			DeltaKg: req.RequiredKg,
			Type:    entryType,
			RefID:   doc.ID,
			Date:    doc.Date,
			Note:    fmt.Sprintf("restore sale %s: %s", doc.Number, doc.ProductName),
		})
	}
	return s.register.ApplyAll(ctx, entries)
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
