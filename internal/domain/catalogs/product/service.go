package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/core/tx"
	"roastledger/pkg/logger"
)

// Service provides business operations for the product catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a product catalog service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create registers a new product. Names are unique across the catalog.
func (s *Service) Create(ctx context.Context, p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return err
	}

	if _, err := s.repo.GetByName(ctx, p.Name); err == nil {
		return apperror.NewDuplicate("product", "name", p.Name)
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check product name: %w", err)
	}

	p.ID = id.New()
	p.IsActive = true
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "id", p.ID, "name", p.Name)
	return nil
}

// Update edits product name and notes.
func (s *Service) Update(ctx context.Context, p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing.Name != p.Name {
			if _, err := s.repo.GetByName(ctx, p.Name); err == nil {
				return apperror.NewDuplicate("product", "name", p.Name)
			} else if !apperror.IsNotFound(err) {
				return fmt.Errorf("check product name: %w", err)
			}
		}
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, p)
	})
}

// SetActive toggles a product's active flag. Inactive products stop
// resolving through the master BOM path; history is untouched.
func (s *Service) SetActive(ctx context.Context, productID id.ID, active bool) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		p.IsActive = active
		p.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, p)
	})
}

// GetByID retrieves a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetByName retrieves a product by exact name.
func (s *Service) GetByName(ctx context.Context, name string) (*Product, error) {
	return s.repo.GetByName(ctx, strings.TrimSpace(name))
}

// List retrieves products.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}
