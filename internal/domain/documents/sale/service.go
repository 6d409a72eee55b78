package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/tx"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/taxclass"
	"bevstock/internal/domain/lineengine"
	"bevstock/internal/domain/registers/stock"
	"bevstock/pkg/logger"
	"bevstock/pkg/numerator"
)

// ProductSource is the slice of the product service the sale needs.
type ProductSource interface {
	GetByID(ctx context.Context, id id.ID) (*product.Product, error)
	PriceInUnit(ctx context.Context, productID, unitID id.ID, mode product.PriceMode) (types.Money, error)
}

// TaxSource resolves tax classes.
type TaxSource interface {
	GetByID(ctx context.Context, id id.ID) (*taxclass.TaxClass, error)
}

// Ledger is the slice of the stock service the sale needs.
type Ledger interface {
	RecordMovement(ctx context.Context, in stock.RecordInput) (*entity.StockMovement, error)
	CheckAvailability(ctx context.Context, reqs []stock.Requirement) error
}

// Service provides business operations for sale documents.
type Service struct {
	repo      Repository
	products  ProductSource
	taxes     TaxSource
	engine    *lineengine.Engine
	ledger    Ledger
	numerator *numerator.Service
	txManager tx.Manager

	now func() time.Time
}

// NewService creates a new sale service.
func NewService(
	repo Repository,
	products ProductSource,
	taxes TaxSource,
	engine *lineengine.Engine,
	ledger Ledger,
	num *numerator.Service,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		taxes:     taxes,
		engine:    engine,
		ledger:    ledger,
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

// Create creates a new sale document.
func (s *Service) Create(ctx context.Context, doc *Sale) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SALE"), nil, s.now())
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

	logger.Info(ctx, "sale created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves a sale with items.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	doc.Items = items

	payments, err := s.repo.GetPayments(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	doc.Payments = payments

	return doc, nil
}

// List retrieves sale headers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	return s.repo.List(ctx, filter)
}

// AddItem prices and appends one item. The price comes from the
// product's list price in the requested unit under the sale's price
// mode; cost and tax rate are frozen on the item now.
func (s *Service) AddItem(ctx context.Context, doc *Sale, productID, unitID id.ID, qty types.Quantity) error {
	if err := doc.CanModify(); err != nil {
		return err
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return apperror.NewBusinessRule("PRODUCT_INACTIVE", "inactive product cannot be sold").
			WithDetail("productId", p.ID.String())
	}

	price, err := s.products.PriceInUnit(ctx, productID, unitID, doc.PriceMode)
	if err != nil {
		return err
	}

	line, err := s.engine.BuildLine(ctx, p, unitID, qty, price)
	if err != nil {
		return err
	}

	doc.Items = append(doc.Items, newItem(len(doc.Items)+1, line, s.taxRate(ctx, p)))
	doc.RecalculateTotals()
	return nil
}

// Update persists header and items of a pending sale.
func (s *Service) Update(ctx context.Context, doc *Sale) error {
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

// Complete deducts stock for every item and moves the sale to
// completed, all in one transaction. Availability is pre-checked under
// product row locks: an insufficient line rejects the whole document
// before any movement is written. A second completion attempt fails
// with a concurrent modification error and deducts nothing.
func (s *Service) Complete(ctx context.Context, saleID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}

		switch doc.Status {
		case StatusPending:
			// proceed
		case StatusCompleted:
			return apperror.NewConcurrentModification("sale", saleID.String())
		default:
			return apperror.NewBusinessRule("SALE_NOT_PENDING", "only pending sales can be completed").
				WithDetail("saleId", saleID.String()).
				WithDetail("status", string(doc.Status))
		}

		items, err := s.repo.GetItems(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		if len(items) == 0 {
			return apperror.NewValidation("sale has no items").
				WithDetail("saleId", saleID.String())
		}

		reqs := make([]stock.Requirement, 0, len(items))
		for _, item := range items {
			reqs = append(reqs, stock.Requirement{
				ProductID: item.ProductID,
				BaseQty:   item.BaseQuantity,
			})
		}
		if err := s.ledger.CheckAvailability(ctx, reqs); err != nil {
			return err
		}

		for _, item := range items {
			// BaseQuantity was frozen at item creation; recording it
			// directly keeps the deduction immune to later factor edits.
			if _, err := s.ledger.RecordMovement(ctx, stock.RecordInput{
				ProductID:       item.ProductID,
				Type:            entity.MovementOut,
				Quantity:        item.BaseQuantity,
				ReferenceNumber: doc.Number,
				Note:            fmt.Sprintf("sale line %d", item.LineNo),
			}); err != nil {
				return err
			}
		}

		doc.Items = items
		doc.RecalculateTotals()
		doc.Status = StatusCompleted
		completedAt := s.now()
		doc.CompletedAt = &completedAt

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale completed", "id", saleID)
	return nil
}

// RecordPayment appends one payment to a pending or completed sale.
// Payments never exceed the document total, so a partially paid sale
// always has a non-negative outstanding amount.
func (s *Service) RecordPayment(ctx context.Context, saleID id.ID, method PaymentMethod, amount types.Money, referenceNumber, note string) (*Payment, error) {
	if !ValidPaymentMethod(method) {
		return nil, apperror.NewValidation("invalid payment method").
			WithDetail("method", string(method))
	}
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").
			WithDetail("amount", amount.String())
	}

	payment := Payment{
		LineID:          id.New(),
		Method:          method,
		Amount:          amount,
		ReferenceNumber: referenceNumber,
		Note:            note,
		CreatedAt:       s.now(),
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}

		switch doc.Status {
		case StatusPending, StatusCompleted:
			// proceed
		default:
			return apperror.NewBusinessRule("SALE_NOT_PAYABLE", "payments can only be taken on pending or completed sales").
				WithDetail("saleId", saleID.String()).
				WithDetail("status", string(doc.Status))
		}

		payments, err := s.repo.GetPayments(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get payments: %w", err)
		}
		doc.Payments = payments

		if doc.PaidAmount().Add(amount).GreaterThan(doc.TotalAmount) {
			return apperror.NewBusinessRule("PAYMENT_EXCEEDS_TOTAL", "payment would exceed the sale total").
				WithDetail("saleId", saleID.String()).
				WithDetail("outstanding", doc.OutstandingAmount().String()).
				WithDetail("amount", amount.String())
		}

		return s.repo.AddPayment(ctx, saleID, payment)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment recorded",
		"sale_id", saleID, "method", method, "amount", amount)
	return &payment, nil
}

// Cancel moves a pending sale to cancelled. No stock effect.
func (s *Service) Cancel(ctx context.Context, saleID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if doc.Status != StatusPending {
			return apperror.NewBusinessRule("SALE_NOT_PENDING", "only pending sales can be cancelled").
				WithDetail("saleId", saleID.String()).
				WithDetail("status", string(doc.Status))
		}

		doc.Status = StatusCancelled
		return s.repo.Update(ctx, doc)
	})
}

// Refund restocks every item of a completed sale with return movements
// and moves the document to refunded.
func (s *Service) Refund(ctx context.Context, saleID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if doc.Status != StatusCompleted {
			return apperror.NewBusinessRule("SALE_NOT_COMPLETED", "only completed sales can be refunded").
				WithDetail("saleId", saleID.String()).
				WithDetail("status", string(doc.Status))
		}

		items, err := s.repo.GetItems(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		for _, item := range items {
			if _, err := s.ledger.RecordMovement(ctx, stock.RecordInput{
				ProductID:       item.ProductID,
				Type:            entity.MovementReturn,
				Quantity:        item.BaseQuantity,
				ReferenceNumber: doc.Number,
				Note:            fmt.Sprintf("refund line %d", item.LineNo),
			}); err != nil {
				return err
			}
		}

		doc.Status = StatusRefunded
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale refunded", "id", saleID)
	return nil
}

// taxRate resolves the frozen tax rate for a product: nil when the
// product has no tax class or the class is inactive.
func (s *Service) taxRate(ctx context.Context, p *product.Product) *decimal.Decimal {
	if p.TaxClassID == nil {
		return nil
	}
	tc, err := s.taxes.GetByID(ctx, *p.TaxClassID)
	if err != nil {
		logger.Warn(ctx, "tax class lookup failed, selling untaxed",
			"product_id", p.ID.String(), "error", err)
		return nil
	}
	if !tc.IsActive {
		return nil
	}
	rate := tc.Rate
	return &rate
}
