package stock

import (
	"context"
	"fmt"
	"time"

	"bevstock/internal/core/apperror"
	appctx "bevstock/internal/core/context"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/tx"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/unit"
	"bevstock/pkg/logger"
)

// RecordInput describes one movement to record.
type RecordInput struct {
	ProductID id.ID
	Type      entity.MovementType

	// Quantity in UnitID terms; in base units when UnitID is nil.
	// Signed only for adjustments.
	Quantity types.Quantity
	UnitID   *id.ID

	ReferenceNumber string
	Note            string
}

// Requirement is an availability check request in base units.
type Requirement struct {
	ProductID id.ID
	BaseQty   types.Quantity
}

// Service provides business operations for the stock ledger.
type Service struct {
	repo      Repository
	products  ProductStore
	resolver  *unit.Resolver
	txManager tx.Manager

	now func() time.Time
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, products ProductStore, resolver *unit.Resolver, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		resolver:  resolver,
		txManager: txManager,
		now:       time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordMovement records one movement atomically: the product row is
// locked, the quantity converted to base units, the ledger row inserted
// and the balance mutated in a single transaction.
//
// Balance effects: in and return add, out subtracts clamped at zero,
// adjustment applies the signed delta, cost_update changes nothing.
func (s *Service) RecordMovement(ctx context.Context, in RecordInput) (*entity.StockMovement, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	var result *entity.StockMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		baseQty := in.Quantity
		if in.UnitID != nil && *in.UnitID != p.BaseUnitID {
			factor, convErr := s.resolver.QuantityFactor(ctx, *in.UnitID, p.BaseUnitID)
			switch {
			case convErr == nil:
				baseQty = in.Quantity.Mul(factor)
			case apperror.IsNoConversionPath(convErr):
				// Degraded mode: record the raw quantity rather than
				// losing the movement.
				logger.Warn(ctx, "no conversion path, recording raw quantity",
					"product_id", in.ProductID.String(),
					"unit_id", in.UnitID.String(),
					"base_unit_id", p.BaseUnitID.String())
			default:
				return convErr
			}
		}

		m := &entity.StockMovement{
			LineID:          id.New(),
			ProductID:       in.ProductID,
			Type:            in.Type,
			Quantity:        baseQty,
			UnitID:          in.UnitID,
			EnteredQuantity: in.Quantity,
			ReferenceNumber: in.ReferenceNumber,
			Note:            in.Note,
			CreatedBy:       appctx.GetActorID(ctx),
			CreatedAt:       s.now(),
		}

		if err := s.repo.CreateMovement(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		if m.AffectsBalance() {
			newBalance := p.StockQuantity.Add(m.SignedQuantity())
			if newBalance.IsNegative() {
				switch m.Type {
				case entity.MovementOut:
					// Out never drives the balance below zero.
					logger.Warn(ctx, "stock out exceeds balance, clamping at zero",
						"product_id", p.ID.String(),
						"balance", p.StockQuantity.String(),
						"requested", baseQty.String())
					newBalance = types.Zero()
				default:
					return apperror.NewInvalidMovement("adjustment would drive balance below zero").
						WithDetail("productId", p.ID.String()).
						WithDetail("balance", p.StockQuantity.String()).
						WithDetail("delta", m.SignedQuantity().String())
				}
			}

			if err := s.products.UpdateStock(ctx, p.ID, newBalance); err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
		}

		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "recorded stock movement",
		"product_id", in.ProductID.String(),
		"type", string(in.Type),
		"quantity", result.Quantity.String(),
		"reference", in.ReferenceNumber)

	return result, nil
}

func (s *Service) validate(in RecordInput) error {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product is required")
	}
	if !entity.ValidMovementType(in.Type) {
		return apperror.NewInvalidMovement("unknown movement type").
			WithDetail("type", string(in.Type))
	}

	switch in.Type {
	case entity.MovementAdjustment:
		if in.Quantity.IsZero() {
			return apperror.NewInvalidMovement("adjustment delta cannot be zero")
		}
	case entity.MovementCostUpdate:
		// quantity carries no meaning here
	default:
		if !in.Quantity.IsPositive() {
			return apperror.NewInvalidMovement("quantity must be positive").
				WithDetail("type", string(in.Type)).
				WithDetail("quantity", in.Quantity.String())
		}
	}

	return nil
}

// UpdateCostPrice sets a new cost price and records the cost_update
// audit row in the same transaction.
func (s *Service) UpdateCostPrice(ctx context.Context, productID id.ID, newCost types.Money, reference, note string) error {
	if newCost.IsNegative() {
		return apperror.NewValidation("cost price cannot be negative").
			WithDetail("value", newCost.String())
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		if err := s.products.UpdateCostPrice(ctx, p.ID, newCost); err != nil {
			return fmt.Errorf("update cost price: %w", err)
		}

		m := &entity.StockMovement{
			LineID:          id.New(),
			ProductID:       productID,
			Type:            entity.MovementCostUpdate,
			Quantity:        types.Zero(),
			EnteredQuantity: types.Zero(),
			ReferenceNumber: reference,
			Note:            note,
			CreatedBy:       appctx.GetActorID(ctx),
			CreatedAt:       s.now(),
		}
		if err := s.repo.CreateMovement(ctx, m); err != nil {
			return fmt.Errorf("create cost_update movement: %w", err)
		}

		logger.Info(ctx, "updated cost price",
			"product_id", productID.String(),
			"old_cost", p.CostPrice.String(),
			"new_cost", newCost.String())
		return nil
	})
}

// CheckAvailability verifies every requirement against the current
// balance under product row locks. Call inside the transaction that will
// record the corresponding out movements.
func (s *Service) CheckAvailability(ctx context.Context, reqs []Requirement) error {
	for _, req := range reqs {
		p, err := s.products.GetForUpdate(ctx, req.ProductID)
		if err != nil {
			return fmt.Errorf("check availability for %s: %w", req.ProductID, err)
		}

		if p.StockQuantity.LessThan(req.BaseQty) {
			return apperror.NewInsufficientStock(
				req.ProductID.String(),
				req.BaseQty.String(),
				p.StockQuantity.String(),
			)
		}
	}
	return nil
}

// MovementHistory retrieves the ledger rows of a product.
func (s *Service) MovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]*entity.StockMovement, error) {
	return s.repo.ListMovements(ctx, productID, filter)
}

// VerifyBalance replays the ledger and returns the replayed sum next to
// the stored balance. The two may legitimately differ when out
// movements were clamped.
func (s *Service) VerifyBalance(ctx context.Context, productID id.ID) (ledger types.Quantity, balance types.Quantity, err error) {
	sum, err := s.repo.SumMovements(ctx, productID)
	if err != nil {
		return types.Zero(), types.Zero(), err
	}
	p, err := s.products.GetForUpdate(ctx, productID)
	if err != nil {
		return types.Zero(), types.Zero(), err
	}
	return sum, p.StockQuantity, nil
}
