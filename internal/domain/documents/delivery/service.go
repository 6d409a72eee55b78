package delivery

import (
	"context"
	"fmt"
	"time"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/tx"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/unit"
	"bevstock/internal/domain/lineengine"
	"bevstock/internal/domain/registers/stock"
	"bevstock/pkg/logger"
	"bevstock/pkg/numerator"
)

// ProductSource is the slice of the product service the delivery needs.
type ProductSource interface {
	GetByID(ctx context.Context, id id.ID) (*product.Product, error)
}

// Ledger is the slice of the stock service the delivery needs.
type Ledger interface {
	RecordMovement(ctx context.Context, in stock.RecordInput) (*entity.StockMovement, error)
	UpdateCostPrice(ctx context.Context, productID id.ID, newCost types.Money, reference, note string) error
}

// Orders receives confirmed quantities back on the purchase order.
type Orders interface {
	RegisterReceipt(ctx context.Context, orderID id.ID, received map[id.ID]types.Quantity) error
}

// Service provides business operations for delivery documents.
type Service struct {
	repo      Repository
	products  ProductSource
	engine    *lineengine.Engine
	resolver  *unit.Resolver
	ledger    Ledger
	orders    Orders
	numerator *numerator.Service
	txManager tx.Manager

	now func() time.Time
}

// NewService creates a new delivery service.
func NewService(
	repo Repository,
	products ProductSource,
	engine *lineengine.Engine,
	resolver *unit.Resolver,
	ledger Ledger,
	orders Orders,
	num *numerator.Service,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		engine:    engine,
		resolver:  resolver,
		ledger:    ledger,
		orders:    orders,
		numerator: num,
		txManager: txManager,
		now:       time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create creates a new pending delivery.
func (s *Service) Create(ctx context.Context, doc *Delivery) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("DEL"),
			&numerator.Options{Strategy: numerator.StrategyCached}, s.now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	doc.RecalculateTotals()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveItems(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "delivery created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves a delivery with items.
func (s *Service) GetByID(ctx context.Context, deliveryID id.ID) (*Delivery, error) {
	doc, err := s.repo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	doc.Items = items

	return doc, nil
}

// List retrieves delivery headers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Delivery, error) {
	return s.repo.List(ctx, filter)
}

// AddItem appends one received line. The line engine derives the base
// quantity; the received cost stays in UnitID terms until confirmation.
func (s *Service) AddItem(ctx context.Context, doc *Delivery, orderLineID, productID, unitID id.ID, qty types.Quantity, unitCost types.Money) error {
	if err := doc.CanModify(); err != nil {
		return err
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	line, err := s.engine.BuildLine(ctx, p, unitID, qty, unitCost)
	if err != nil {
		return err
	}

	doc.Items = append(doc.Items, DeliveryItem{
		LineID:       id.New(),
		LineNo:       len(doc.Items) + 1,
		OrderLineID:  orderLineID,
		ProductID:    line.ProductID,
		UnitID:       line.UnitID,
		Quantity:     line.Quantity,
		BaseQuantity: line.BaseQuantity,
		UnitCost:     line.UnitPrice,
		LineTotal:    line.LineTotal,
	})
	doc.RecalculateTotals()
	return nil
}

// Update persists header and items of a pending delivery.
func (s *Service) Update(ctx context.Context, doc *Delivery) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	doc.RecalculateTotals()

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveItems(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return nil
	})
}

// Confirm books the delivery in one transaction: an in movement per
// line, the product cost price moved to the received cost expressed in
// base units, a cost_update audit row, and the received quantities
// registered on the purchase order. A second confirmation attempt fails
// with a concurrent modification error.
func (s *Service) Confirm(ctx context.Context, deliveryID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}

		switch doc.Status {
		case StatusPending:
			// proceed
		case StatusCompleted:
			return apperror.NewConcurrentModification("delivery", deliveryID.String())
		default:
			return apperror.NewBusinessRule("DELIVERY_NOT_PENDING", "only pending deliveries can be confirmed").
				WithDetail("deliveryId", deliveryID.String()).
				WithDetail("status", string(doc.Status))
		}

		items, err := s.repo.GetItems(ctx, deliveryID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		if len(items) == 0 {
			return apperror.NewValidation("delivery has no items").
				WithDetail("deliveryId", deliveryID.String())
		}

		received := make(map[id.ID]types.Quantity, len(items))
		for _, item := range items {
			if _, err := s.ledger.RecordMovement(ctx, stock.RecordInput{
				ProductID:       item.ProductID,
				Type:            entity.MovementIn,
				Quantity:        item.BaseQuantity,
				ReferenceNumber: doc.Number,
				Note:            fmt.Sprintf("delivery line %d", item.LineNo),
			}); err != nil {
				return err
			}

			if err := s.updateCost(ctx, doc, item); err != nil {
				return err
			}

			if !id.IsNil(item.OrderLineID) {
				received[item.OrderLineID] = received[item.OrderLineID].Add(item.Quantity)
			}
		}

		if len(received) > 0 {
			if err := s.orders.RegisterReceipt(ctx, doc.OrderID, received); err != nil {
				return err
			}
		}

		doc.Items = items
		doc.RecalculateTotals()
		doc.Status = StatusCompleted
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "delivery confirmed", "id", deliveryID)
	return nil
}

// Cancel moves a pending delivery to cancelled. No stock effect.
func (s *Service) Cancel(ctx context.Context, deliveryID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if doc.Status != StatusPending {
			return apperror.NewBusinessRule("DELIVERY_NOT_PENDING", "only pending deliveries can be cancelled").
				WithDetail("deliveryId", deliveryID.String()).
				WithDetail("status", string(doc.Status))
		}

		doc.Status = StatusCancelled
		return s.repo.Update(ctx, doc)
	})
}

// updateCost rewrites the product's cost price from the received line:
// the per-UnitID cost scaled down to one base unit.
func (s *Service) updateCost(ctx context.Context, doc *Delivery, item DeliveryItem) error {
	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return err
	}

	newCost := item.UnitCost
	if item.UnitID != p.BaseUnitID {
		converted, err := s.resolver.ConvertPrice(ctx, item.UnitCost, item.UnitID, p.BaseUnitID)
		if err != nil {
			// Degraded mode mirrors the ledger: an unresolvable unit
			// keeps the old cost instead of writing a wrong one.
			if apperror.IsNoConversionPath(err) {
				logger.Warn(ctx, "no conversion path, keeping previous cost price",
					"product_id", p.ID.String(),
					"unit_id", item.UnitID.String())
				return nil
			}
			return err
		}
		newCost = converted
	}

	return s.ledger.UpdateCostPrice(ctx, p.ID, types.RoundMoney(newCost), doc.Number,
		fmt.Sprintf("delivery line %d", item.LineNo))
}
