package recipes

import (
	"context"
	"fmt"
	"math"
	"time"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/core/tx"
	"roastledger/pkg/logger"
)

// ratioTolerance is the allowed deviation of a blend's ratio sum from 100%.
const ratioTolerance = 0.01

// Service resolves recipes for sales and costing, and owns recipe authoring.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a recipe service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Resolve returns the blend recipe for a product as of a date.
//
// Order: master BOM assignment history first (latest assignment with
// effective_date <= asOf; nil asOf means latest overall), then the flat
// legacy recipe table, then Source none. An unresolved recipe is a valid
// degraded result, never an error.
func (s *Service) Resolve(ctx context.Context, productName string, asOf *time.Time) (Recipe, error) {
	recipe := Recipe{ProductName: productName, Source: SourceNone}

	productID, err := s.repo.FindActiveProduct(ctx, productName)
	switch {
	case err == nil:
		resolved, err := s.resolveMasterBOM(ctx, productID, asOf)
		if err != nil {
			return Recipe{}, err
		}
		if resolved != nil {
			resolved.ProductName = productName
			return *resolved, nil
		}
	case !apperror.IsNotFound(err):
		return Recipe{}, fmt.Errorf("find product %q: %w", productName, err)
	}

	batch, err := s.repo.FindLegacyBatch(ctx, productName, asOf)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Debug(ctx, "no recipe found", "product", productName)
			return recipe, nil
		}
		return Recipe{}, fmt.Errorf("find legacy recipe for %q: %w", productName, err)
	}

	recipe.Source = SourceLegacy
	recipe.Lines = batch.Lines
	recipe.EffectiveDate = batch.EffectiveDate
	return recipe, nil
}

// resolveMasterBOM returns the assigned BOM recipe, or nil when the product
// has no usable assignment at the date (caller falls through to legacy).
func (s *Service) resolveMasterBOM(ctx context.Context, productID id.ID, asOf *time.Time) (*Recipe, error) {
	assignment, err := s.repo.FindAssignment(ctx, productID, asOf)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find bom assignment: %w", err)
	}

	// An unlink assignment (null BOM) deliberately detaches the product.
	if assignment.BOMID == nil {
		return nil, nil
	}

	bom, err := s.repo.GetBOM(ctx, *assignment.BOMID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bom %s: %w", *assignment.BOMID, err)
	}
	if len(bom.Lines) == 0 {
		return nil, nil
	}

	effective := assignment.EffectiveDate
	return &Recipe{
		Source:        SourceMasterBOM,
		Lines:         bom.Lines,
		BOMID:         &bom.ID,
		BOMName:       bom.Name,
		EffectiveDate: &effective,
	}, nil
}

// CreateMasterBOM validates ratios and stores a new named blend.
func (s *Service) CreateMasterBOM(ctx context.Context, bom MasterBOM) (MasterBOM, error) {
	if bom.Name == "" {
		return MasterBOM{}, apperror.NewValidation("bom name is required")
	}
	if err := ValidateRatios(bom.Lines); err != nil {
		return MasterBOM{}, err
	}
	for _, line := range bom.Lines {
		if err := line.Bean.Validate(); err != nil {
			return MasterBOM{}, err
		}
	}

	if _, err := s.repo.GetBOMByName(ctx, bom.Name); err == nil {
		return MasterBOM{}, apperror.NewDuplicate("master bom", "name", bom.Name)
	} else if !apperror.IsNotFound(err) {
		return MasterBOM{}, fmt.Errorf("check bom name: %w", err)
	}

	bom.ID = id.New()
	bom.CreatedAt = time.Now().UTC()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateBOM(ctx, &bom)
	})
	if err != nil {
		return MasterBOM{}, fmt.Errorf("create bom: %w", err)
	}

	logger.Info(ctx, "created master bom", "name", bom.Name, "lines", len(bom.Lines))
	return bom, nil
}

// AssignBOM records a product-to-BOM link effective from a date.
// A nil bomID unlinks the product while keeping the assignment history.
func (s *Service) AssignBOM(ctx context.Context, productID id.ID, bomID *id.ID, effectiveDate time.Time, note string) (Assignment, error) {
	if bomID != nil {
		if _, err := s.repo.GetBOM(ctx, *bomID); err != nil {
			return Assignment{}, err
		}
	}

	a := Assignment{
		ID:            id.New(),
		ProductID:     productID,
		BOMID:         bomID,
		EffectiveDate: effectiveDate,
		Note:          note,
		CreatedAt:     time.Now().UTC(),
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.AppendAssignment(ctx, &a)
	})
	if err != nil {
		return Assignment{}, fmt.Errorf("append assignment: %w", err)
	}

	logger.Info(ctx, "assigned bom", "product_id", productID, "bom_id", bomID, "effective", effectiveDate)
	return a, nil
}

// AddLegacyRecipe appends one dated batch of flat recipe lines.
// History is never rewritten; the resolver picks the newest qualifying batch.
func (s *Service) AddLegacyRecipe(ctx context.Context, batch LegacyBatch) error {
	if batch.ProductName == "" {
		return apperror.NewValidation("product name is required")
	}
	if err := ValidateRatios(batch.Lines); err != nil {
		return err
	}
	for _, line := range batch.Lines {
		if err := line.Bean.Validate(); err != nil {
			return err
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.AppendLegacyBatch(ctx, batch)
	})
	if err != nil {
		return fmt.Errorf("append legacy batch: %w", err)
	}

	logger.Info(ctx, "added legacy recipe batch",
		"product", batch.ProductName, "lines", len(batch.Lines))
	return nil
}

// ListBOMs returns master BOMs.
func (s *Service) ListBOMs(ctx context.Context, includeInactive bool) ([]MasterBOM, error) {
	return s.repo.ListBOMs(ctx, includeInactive)
}

// SetBOMActive toggles a BOM's active flag.
func (s *Service) SetBOMActive(ctx context.Context, bomID id.ID, active bool) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetBOMActive(ctx, bomID, active)
	})
}

// ListAssignments returns a product's BOM assignment history.
func (s *Service) ListAssignments(ctx context.Context, productID id.ID) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx, productID)
}

// ListLegacyBatches returns a product's flat recipe history, newest
// batch first.
func (s *Service) ListLegacyBatches(ctx context.Context, productName string) ([]LegacyBatch, error) {
	if productName == "" {
		return nil, apperror.NewValidation("product name is required")
	}
	return s.repo.ListLegacyBatches(ctx, productName)
}

// ValidateRatios checks that blend ratios sum to 100% within tolerance.
func ValidateRatios(lines []Line) error {
	if len(lines) == 0 {
		return apperror.NewValidation("recipe needs at least one line")
	}
	var total float64
	for _, line := range lines {
		if line.RatioPct <= 0 {
			return apperror.NewValidation("ratio must be positive")
		}
		total += line.RatioPct
	}
	if math.Abs(total-100) > ratioTolerance {
		return apperror.NewRatioSum(total)
	}
	return nil
}
