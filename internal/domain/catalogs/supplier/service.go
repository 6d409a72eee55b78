package supplier

import (
	"context"
	"fmt"
	"time"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/core/tx"
	"bevstock/internal/domain"
	"bevstock/pkg/numerator"
)

// Service provides business logic for the Supplier catalog. Uses
// composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Supplier]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Supplier service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  num,
		EntityName: "supplier",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkTaxNumber)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, sup *Supplier) error {
	if sup.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SUP"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		sup.Code = code
	}

	return s.checkTaxNumber(ctx, sup)
}

// checkTaxNumber enforces tax number uniqueness across suppliers.
func (s *Service) checkTaxNumber(ctx context.Context, sup *Supplier) error {
	if sup.TaxNumber == nil || *sup.TaxNumber == "" {
		return nil
	}

	exists, err := s.taxNumberTaken(ctx, *sup.TaxNumber, sup.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewConflict("supplier with this tax number already exists").
			WithDetail("taxNumber", *sup.TaxNumber)
	}
	return nil
}

func (s *Service) taxNumberTaken(ctx context.Context, taxNumber string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByTaxNumber(ctx, taxNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}

// FindByTaxNumber retrieves supplier by tax number.
func (s *Service) FindByTaxNumber(ctx context.Context, taxNumber string) (*Supplier, error) {
	return s.repo.FindByTaxNumber(ctx, taxNumber)
}
