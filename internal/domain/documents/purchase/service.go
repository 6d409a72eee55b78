package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/core/tx"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/supplier"
	"bevstock/internal/domain/catalogs/taxclass"
	"bevstock/internal/domain/lineengine"
	"bevstock/pkg/logger"
	"bevstock/pkg/numerator"
)

// ProductSource is the slice of the product service the order needs.
type ProductSource interface {
	GetByID(ctx context.Context, id id.ID) (*product.Product, error)
}

// TaxSource resolves tax classes.
type TaxSource interface {
	GetByID(ctx context.Context, id id.ID) (*taxclass.TaxClass, error)
}

// SupplierSource resolves the supplier an order is placed with.
type SupplierSource interface {
	GetByID(ctx context.Context, id id.ID) (*supplier.Supplier, error)
}

// Service provides business operations for purchase orders. Orders
// never touch stock; the delivery document does that on confirmation.
type Service struct {
	repo      Repository
	products  ProductSource
	taxes     TaxSource
	suppliers SupplierSource
	engine    *lineengine.Engine
	numerator *numerator.Service
	txManager tx.Manager

	now func() time.Time
}

// NewService creates a new purchase order service.
func NewService(
	repo Repository,
	products ProductSource,
	taxes TaxSource,
	suppliers SupplierSource,
	engine *lineengine.Engine,
	num *numerator.Service,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		taxes:     taxes,
		suppliers: suppliers,
		engine:    engine,
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

// Create creates a new purchase order.
func (s *Service) Create(ctx context.Context, doc *PurchaseOrder) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	sup, err := s.suppliers.GetByID(ctx, doc.SupplierID)
	if err != nil {
		return err
	}
	if !sup.IsActive {
		return apperror.NewBusinessRule("SUPPLIER_INACTIVE", "orders cannot be placed with an inactive supplier").
			WithDetail("supplierId", sup.ID.String())
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PO"),
			&numerator.Options{Strategy: numerator.StrategyCached}, s.now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	doc.RecalculateTotals()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
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

	logger.Info(ctx, "purchase order created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves an order with items.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	doc, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	doc.Items = items

	return doc, nil
}

// List retrieves order headers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*PurchaseOrder, error) {
	return s.repo.List(ctx, filter)
}

// AddItem appends one ordered line at the agreed per-unit cost.
func (s *Service) AddItem(ctx context.Context, doc *PurchaseOrder, productID, unitID id.ID, qty types.Quantity, unitCost types.Money) error {
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

	doc.Items = append(doc.Items, newItem(len(doc.Items)+1, line, s.taxRate(ctx, p)))
	doc.RecalculateTotals()
	return nil
}

// Update persists header and items of a draft order.
func (s *Service) Update(ctx context.Context, doc *PurchaseOrder) error {
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

// SetStatus moves the order along its lifecycle, rejecting moves the
// transition table does not allow.
func (s *Service) SetStatus(ctx context.Context, orderID id.ID, next Status) error {
	if !isValidStatus(next) {
		return apperror.NewValidation("invalid order status").
			WithDetail("status", string(next))
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if !CanTransition(doc.Status, next) {
			return apperror.NewBusinessRule("INVALID_TRANSITION",
				fmt.Sprintf("order cannot move from %s to %s", doc.Status, next)).
				WithDetail("orderId", orderID.String())
		}

		doc.Status = next
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase order status changed", "id", orderID, "status", string(next))
	return nil
}

// RegisterReceipt accumulates received quantities on the order's items
// and rolls the status forward. Called by the delivery document inside
// its confirmation transaction.
func (s *Service) RegisterReceipt(ctx context.Context, orderID id.ID, received map[id.ID]types.Quantity) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		switch doc.Status {
		case StatusConfirmed, StatusPartiallyDelivered:
			// receivable
		default:
			return apperror.NewBusinessRule("ORDER_NOT_RECEIVABLE", "order is not awaiting deliveries").
				WithDetail("orderId", orderID.String()).
				WithDetail("status", string(doc.Status))
		}

		items, err := s.repo.GetItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		for i := range items {
			if qty, ok := received[items[i].LineID]; ok {
				items[i].ReceivedQuantity = items[i].ReceivedQuantity.Add(qty)
			}
		}
		doc.Items = items

		if next := doc.DeliveryStatus(); next != doc.Status {
			doc.Status = next
		}

		if err := s.repo.SaveItems(ctx, orderID, items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.repo.Update(ctx, doc)
	})
}

func (s *Service) taxRate(ctx context.Context, p *product.Product) *decimal.Decimal {
	if p.TaxClassID == nil {
		return nil
	}
	tc, err := s.taxes.GetByID(ctx, *p.TaxClassID)
	if err != nil {
		logger.Warn(ctx, "tax class lookup failed, ordering untaxed",
			"product_id", p.ID.String(), "error", err)
		return nil
	}
	if !tc.IsActive {
		return nil
	}
	rate := tc.Rate
	return &rate
}
