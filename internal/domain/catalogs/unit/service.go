package unit

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

// Service provides business logic for the Unit catalog and its
// conversion edges. Uses composition with domain.CatalogService for
// common CRUD operations.
type Service struct {
	*domain.CatalogService[*Unit]
	repo      Repository
	convRepo  ConversionRepository
	txManager tx.Manager
	numerator *numerator.Service
}

// NewService creates a new Unit service.
func NewService(
	repo Repository,
	convRepo ConversionRepository,
	txManager tx.Manager,
	num *numerator.Service,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Unit]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  num,
		EntityName: "unit",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		convRepo:       convRepo,
		txManager:      txManager,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)
	base.Hooks().OnBeforeDelete(svc.guardDelete)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, u *Unit) error {
	if u.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("UN"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		u.Code = code
	}

	if exists, _ := s.checkSymbolExists(ctx, u.Symbol, u.ID); exists {
		return apperror.NewConflict("unit with this symbol already exists").
			WithDetail("symbol", u.Symbol)
	}

	return nil
}

// prepareForUpdate handles uniqueness checks.
func (s *Service) prepareForUpdate(ctx context.Context, u *Unit) error {
	if exists, _ := s.checkSymbolExists(ctx, u.Symbol, u.ID); exists {
		return apperror.NewConflict("unit with this symbol already exists").
			WithDetail("symbol", u.Symbol)
	}

	return nil
}

// guardDelete refuses to delete a unit that still carries conversion edges.
func (s *Service) guardDelete(ctx context.Context, u *Unit) error {
	edges, err := s.convRepo.ListConversions(ctx, u.ID)
	if err != nil {
		return err
	}
	if len(edges) > 0 {
		return apperror.NewBusinessRule("UNIT_IN_USE", "unit has conversion edges and cannot be deleted").
			WithDetail("unitId", u.ID.String()).
			WithDetail("edges", len(edges))
	}
	return nil
}

func (s *Service) checkSymbolExists(ctx context.Context, symbol string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindBySymbol(ctx, symbol)
	if err != nil {
		return false, nil
	}
	return existing.ID != excludeID, nil
}

// FindBySymbol retrieves unit by symbol.
func (s *Service) FindBySymbol(ctx context.Context, symbol string) (*Unit, error) {
	return s.repo.FindBySymbol(ctx, symbol)
}

// GetUnit implements Source.
func (s *Service) GetUnit(ctx context.Context, unitID id.ID) (*Unit, error) {
	return s.GetByID(ctx, unitID)
}

// ActiveConversionFrom implements Source.
func (s *Service) ActiveConversionFrom(ctx context.Context, fromUnitID id.ID) (*Conversion, error) {
	return s.convRepo.ActiveConversionFrom(ctx, fromUnitID)
}

// Resolver returns a conversion resolver backed by this service.
func (s *Service) Resolver() *Resolver {
	return NewResolver(s)
}

// --- Conversion edge management ---

// CreateConversion registers a conversion edge after checking the
// canonical direction: FromUnit must not be base, ToUnit must be base,
// and at most one active edge may leave a non-base unit.
func (s *Service) CreateConversion(ctx context.Context, conv *Conversion) error {
	if err := conv.Validate(ctx); err != nil {
		return err
	}

	if err := s.checkDirection(ctx, conv); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if existing, err := s.convRepo.FindConversion(ctx, conv.FromUnitID, conv.ToUnitID); err == nil && existing != nil {
			return apperror.NewDuplicate("conversion", "unit pair",
				conv.FromUnitID.String()+" -> "+conv.ToUnitID.String())
		}

		if conv.IsActive {
			if active, err := s.convRepo.ActiveConversionFrom(ctx, conv.FromUnitID); err == nil && active != nil {
				return apperror.NewConflict("unit already has an active conversion edge").
					WithDetail("fromUnitId", conv.FromUnitID.String()).
					WithDetail("existingConversionId", active.ID.String())
			}
		}

		if err := s.convRepo.CreateConversion(ctx, conv); err != nil {
			return fmt.Errorf("create conversion: %w", err)
		}
		return nil
	})
}

// UpdateConversion modifies an existing edge. Direction rules are
// re-checked because the units may have been re-pointed.
func (s *Service) UpdateConversion(ctx context.Context, conv *Conversion) error {
	if err := conv.Validate(ctx); err != nil {
		return err
	}

	if err := s.checkDirection(ctx, conv); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if conv.IsActive {
			if active, err := s.convRepo.ActiveConversionFrom(ctx, conv.FromUnitID); err == nil && active != nil && active.ID != conv.ID {
				return apperror.NewConflict("unit already has an active conversion edge").
					WithDetail("fromUnitId", conv.FromUnitID.String()).
					WithDetail("existingConversionId", active.ID.String())
			}
		}

		if err := s.convRepo.UpdateConversion(ctx, conv); err != nil {
			return fmt.Errorf("update conversion: %w", err)
		}
		return nil
	})
}

// DeleteConversion removes an edge.
func (s *Service) DeleteConversion(ctx context.Context, convID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.convRepo.DeleteConversion(ctx, convID)
	})
}

// GetConversion retrieves an edge by ID.
func (s *Service) GetConversion(ctx context.Context, convID id.ID) (*Conversion, error) {
	return s.convRepo.GetConversion(ctx, convID)
}

// ListConversions retrieves all edges touching the given unit.
func (s *Service) ListConversions(ctx context.Context, unitID id.ID) ([]*Conversion, error) {
	return s.convRepo.ListConversions(ctx, unitID)
}

// checkDirection enforces the canonical edge direction at write time.
func (s *Service) checkDirection(ctx context.Context, conv *Conversion) error {
	from, err := s.GetByID(ctx, conv.FromUnitID)
	if err != nil {
		return err
	}
	to, err := s.GetByID(ctx, conv.ToUnitID)
	if err != nil {
		return err
	}

	if from.IsBase {
		return apperror.NewValidation("conversion must start from a non-base unit").
			WithDetail("fromUnitId", from.ID.String()).
			WithDetail("symbol", from.Symbol)
	}
	if !to.IsBase {
		return apperror.NewValidation("conversion must resolve into a base unit").
			WithDetail("toUnitId", to.ID.String()).
			WithDetail("symbol", to.Symbol)
	}

	return nil
}
