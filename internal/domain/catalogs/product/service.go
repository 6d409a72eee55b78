package product

import (
	"context"
	"fmt"
	"time"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/core/tx"
	"bevstock/internal/core/types"
	"bevstock/internal/domain"
	"bevstock/internal/domain/catalogs/unit"
	"bevstock/pkg/logger"
	"bevstock/pkg/numerator"
)

// Service provides business logic for the Product catalog and its
// per-unit pricing rows.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	unitRepo  UnitRepository
	units     unit.Source
	resolver  *unit.Resolver
	txManager tx.Manager
	numerator *numerator.Service
}

// NewService creates a new Product service.
func NewService(
	repo Repository,
	unitRepo UnitRepository,
	units unit.Source,
	txManager tx.Manager,
	num *numerator.Service,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  num,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		unitRepo:       unitRepo,
		units:          units,
		resolver:       unit.NewResolver(units),
		txManager:      txManager,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkBaseUnit)
	base.Hooks().On(domain.AfterCreate, svc.ensureBaseUnitRow)
	base.Hooks().On(domain.AfterUpdate, svc.ensureBaseUnitRow)

	return svc
}

// prepareForCreate handles code generation and reference checks.
func (s *Service) prepareForCreate(ctx context.Context, p *Product) error {
	if p.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PR"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		p.Code = code
	}

	if p.SKU != nil && *p.SKU != "" {
		if existing, err := s.repo.FindBySKU(ctx, *p.SKU); err == nil && existing.ID != p.ID {
			return apperror.NewDuplicate("product", "sku", *p.SKU)
		}
	}

	return s.checkBaseUnit(ctx, p)
}

// checkBaseUnit verifies the referenced base unit exists and is a base unit.
func (s *Service) checkBaseUnit(ctx context.Context, p *Product) error {
	if p.IsFolder {
		return nil
	}

	u, err := s.units.GetUnit(ctx, p.BaseUnitID)
	if err != nil {
		return err
	}
	if !u.IsBase {
		return apperror.NewValidation("product base unit must be a base unit").
			WithDetail("unitId", u.ID.String()).
			WithDetail("symbol", u.Symbol)
	}
	return nil
}

// ensureBaseUnitRow self-heals the unit list: every product carries a
// row for its base unit, default unless another default already exists.
// Runs after create and after update, so changing the base unit
// backfills a row for the new one.
func (s *Service) ensureBaseUnitRow(ctx context.Context, p *Product) error {
	if p.IsFolder {
		return nil
	}

	if existing, err := s.unitRepo.FindUnit(ctx, p.ID, p.BaseUnitID); err == nil && existing != nil {
		return nil
	}

	pu := NewProductUnit(p.ID, p.BaseUnitID)
	rows, err := s.unitRepo.ListUnits(ctx, p.ID)
	if err != nil {
		return err
	}
	pu.IsDefault = true
	for _, row := range rows {
		if row.IsDefault {
			pu.IsDefault = false
			break
		}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.unitRepo.CreateUnit(ctx, pu)
	})
}

// FindBySKU retrieves product by SKU.
func (s *Service) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.repo.FindBySKU(ctx, sku)
}

// FindByBarcode retrieves product by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	return s.repo.FindByBarcode(ctx, barcode)
}

// ListLowStock retrieves active products below their minimum level.
func (s *Service) ListLowStock(ctx context.Context) ([]*Product, error) {
	return s.repo.ListLowStock(ctx)
}

// --- Unit rows ---

// Units retrieves the unit rows attached to a product.
func (s *Service) Units(ctx context.Context, productID id.ID) ([]*ProductUnit, error) {
	return s.unitRepo.ListUnits(ctx, productID)
}

// AddUnit attaches a unit to a product. The unit must be convertible to
// the product's base unit; the pair must not already exist.
func (s *Service) AddUnit(ctx context.Context, pu *ProductUnit) error {
	if err := pu.Validate(ctx); err != nil {
		return err
	}

	p, err := s.GetByID(ctx, pu.ProductID)
	if err != nil {
		return err
	}

	// Convertibility gate: a unit that cannot reach the base unit would
	// make every quantity on this row meaningless.
	if _, err := s.resolver.QuantityFactor(ctx, pu.UnitID, p.BaseUnitID); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if existing, err := s.unitRepo.FindUnit(ctx, pu.ProductID, pu.UnitID); err == nil && existing != nil {
			return apperror.NewDuplicate("product_unit", "unit", pu.UnitID.String())
		}

		if pu.IsDefault {
			if err := s.unitRepo.ClearDefault(ctx, pu.ProductID); err != nil {
				return err
			}
		}

		if err := s.unitRepo.CreateUnit(ctx, pu); err != nil {
			return fmt.Errorf("add product unit: %w", err)
		}
		return nil
	})
}

// UpdateUnit modifies a product-unit row.
func (s *Service) UpdateUnit(ctx context.Context, pu *ProductUnit) error {
	if err := pu.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if pu.IsDefault {
			if err := s.unitRepo.ClearDefault(ctx, pu.ProductID); err != nil {
				return err
			}
		}
		return s.unitRepo.UpdateUnit(ctx, pu)
	})
}

// RemoveUnit detaches a unit row. The base unit row cannot be removed.
func (s *Service) RemoveUnit(ctx context.Context, puID id.ID) error {
	pu, err := s.unitRepo.GetUnit(ctx, puID)
	if err != nil {
		return err
	}

	p, err := s.GetByID(ctx, pu.ProductID)
	if err != nil {
		return err
	}
	if pu.UnitID == p.BaseUnitID {
		return apperror.NewBusinessRule("BASE_UNIT_ROW", "base unit row cannot be removed").
			WithDetail("productId", p.ID.String()).
			WithDetail("unitId", pu.UnitID.String())
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.unitRepo.DeleteUnit(ctx, puID); err != nil {
			return err
		}
		// Deleting the default falls back to the base unit row.
		if pu.IsDefault {
			baseRow, err := s.unitRepo.FindUnit(ctx, pu.ProductID, p.BaseUnitID)
			if err != nil {
				return err
			}
			baseRow.IsDefault = true
			return s.unitRepo.UpdateUnit(ctx, baseRow)
		}
		return nil
	})
}

// SetDefaultUnit makes the given unit the product's default. Clears the
// previous default in the same transaction so at most one row holds the flag.
func (s *Service) SetDefaultUnit(ctx context.Context, productID, unitID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		row, err := s.unitRepo.FindUnit(ctx, productID, unitID)
		if err != nil {
			return err
		}
		if row == nil {
			return apperror.NewNotFound("product_unit", unitID.String())
		}

		if err := s.unitRepo.ClearDefault(ctx, productID); err != nil {
			return err
		}

		row.IsDefault = true
		return s.unitRepo.UpdateUnit(ctx, row)
	})
}

// DefaultUnit returns the product's default unit row, falling back to
// the base unit row when no default is marked.
func (s *Service) DefaultUnit(ctx context.Context, productID id.ID) (*ProductUnit, error) {
	rows, err := s.unitRepo.ListUnits(ctx, productID)
	if err != nil {
		return nil, err
	}

	var baseRow *ProductUnit
	p, err := s.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.IsDefault {
			return row, nil
		}
		if row.UnitID == p.BaseUnitID {
			baseRow = row
		}
	}
	if baseRow != nil {
		logger.Warn(ctx, "product has no default unit, falling back to base",
			"product_id", productID.String())
		return baseRow, nil
	}
	return nil, apperror.NewNotFound("product_unit", productID.String())
}

// --- Derived values ---

// PriceInUnit returns the list price of the product expressed in the
// given unit: the row override when set, otherwise the base-unit list
// price scaled by the price factor. Rounded to money scale.
func (s *Service) PriceInUnit(ctx context.Context, productID, unitID id.ID, mode PriceMode) (types.Money, error) {
	if !ValidPriceMode(mode) {
		return types.Zero(), apperror.NewValidation("invalid price mode").
			WithDetail("mode", string(mode))
	}

	p, err := s.GetByID(ctx, productID)
	if err != nil {
		return types.Zero(), err
	}

	if row, err := s.unitRepo.FindUnit(ctx, productID, unitID); err == nil && row != nil {
		if override := row.Override(mode); override != nil {
			return types.RoundMoney(*override), nil
		}
	}

	converted, err := s.resolver.ConvertPrice(ctx, p.ListPrice(mode), p.BaseUnitID, unitID)
	if err != nil {
		return types.Zero(), err
	}
	return types.RoundMoney(converted), nil
}

// CostPriceInUnit returns the purchase cost expressed in the given unit.
// Cost has no per-unit overrides.
func (s *Service) CostPriceInUnit(ctx context.Context, productID, unitID id.ID) (types.Money, error) {
	p, err := s.GetByID(ctx, productID)
	if err != nil {
		return types.Zero(), err
	}

	converted, err := s.resolver.ConvertPrice(ctx, p.CostPrice, p.BaseUnitID, unitID)
	if err != nil {
		return types.Zero(), err
	}
	return types.RoundMoney(converted), nil
}

// StockInUnit returns the on-hand balance expressed in the given unit.
func (s *Service) StockInUnit(ctx context.Context, productID, unitID id.ID) (types.Quantity, error) {
	p, err := s.GetByID(ctx, productID)
	if err != nil {
		return types.Zero(), err
	}
	return s.resolver.ConvertQuantity(ctx, p.StockQuantity, p.BaseUnitID, unitID)
}
