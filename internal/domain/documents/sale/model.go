// Package sale provides the Sale document. A sale freezes prices and
// costs on its items at creation time and deducts stock on completion.
package sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/lineengine"
)

// Status is the sale lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Sale represents a sale document.
type Sale struct {
	entity.Document

	// CustomerName is free-form; sales have no counterparty catalog
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	// Status is the lifecycle state
	Status Status `db:"status" json:"status"`

	// PriceMode selects standard or wholesale list prices for new items
	PriceMode product.PriceMode `db:"price_mode" json:"priceMode"`

	// Totals, recalculated from items
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`
	TotalNet    types.Money `db:"total_net" json:"totalNet"`
	TotalTax    types.Money `db:"total_tax" json:"totalTax"`
	TotalCost   types.Money `db:"total_cost" json:"totalCost"`

	// CompletedAt is set when stock was deducted
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	// Table part
	Items []SaleItem `db:"-" json:"items"`

	// Payments taken against this sale, append-only
	Payments []Payment `db:"-" json:"payments,omitempty"`
}

// PaymentMethod is how a payment was taken.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentMobileMoney  PaymentMethod = "mobile_money"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentBankTransfer:
		return true
	}
	return false
}

// Payment records one payment taken against a sale. A sale may be
// settled by several partial payments.
type Payment struct {
	LineID          id.ID         `db:"line_id" json:"lineId"`
	Method          PaymentMethod `db:"method" json:"method"`
	Amount          types.Money   `db:"amount" json:"amount"`
	ReferenceNumber string        `db:"reference_number" json:"referenceNumber,omitempty"`
	Note            string        `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
}

// SaleItem represents one sold line. Quantity is as entered,
// BaseQuantity is the stock-relevant amount in the product's base unit.
// UnitCost and TaxRate are frozen at item creation.
type SaleItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`
	UnitID    id.ID `db:"unit_id" json:"unitId"`

	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	BaseQuantity types.Quantity `db:"base_quantity" json:"baseQuantity"`

	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`

	LineTotal types.Money `db:"line_total" json:"lineTotal"`
	TotalCost types.Money `db:"total_cost" json:"totalCost"`

	// TaxRate is the tax-inclusive percentage frozen from the product's
	// tax class; nil means no tax
	TaxRate *decimal.Decimal `db:"tax_rate" json:"taxRate,omitempty"`

	NetAmount types.Money `db:"net_amount" json:"netAmount"`
	TaxAmount types.Money `db:"tax_amount" json:"taxAmount"`
}

// NewSale creates a new pending sale.
func NewSale(priceMode product.PriceMode) *Sale {
	return &Sale{
		Document:    entity.NewDocument(),
		Status:      StatusPending,
		PriceMode:   priceMode,
		TotalAmount: decimal.Zero,
		TotalNet:    decimal.Zero,
		TotalTax:    decimal.Zero,
		TotalCost:   decimal.Zero,
		Items:       make([]SaleItem, 0),
	}
}

// newItem builds a sale item from a computed line and its settlement.
func newItem(lineNo int, line lineengine.Line, taxRate *decimal.Decimal) SaleItem {
	settlement := lineengine.Settle(line.LineTotal, taxRate)
	return SaleItem{
		LineID:       id.New(),
		LineNo:       lineNo,
		ProductID:    line.ProductID,
		UnitID:       line.UnitID,
		Quantity:     line.Quantity,
		BaseQuantity: line.BaseQuantity,
		UnitPrice:    line.UnitPrice,
		UnitCost:     line.UnitCost,
		LineTotal:    line.LineTotal,
		TotalCost:    line.TotalCost,
		TaxRate:      taxRate,
		NetAmount:    settlement.Net,
		TaxAmount:    settlement.Tax,
	}
}

// RecalculateTotals recomputes the document totals as sums of the
// per-item settlements.
func (s *Sale) RecalculateTotals() {
	s.TotalAmount = decimal.Zero
	s.TotalNet = decimal.Zero
	s.TotalTax = decimal.Zero
	s.TotalCost = decimal.Zero

	for _, item := range s.Items {
		s.TotalAmount = s.TotalAmount.Add(item.LineTotal)
		s.TotalNet = s.TotalNet.Add(item.NetAmount)
		s.TotalTax = s.TotalTax.Add(item.TaxAmount)
		s.TotalCost = s.TotalCost.Add(item.TotalCost)
	}
}

// PaidAmount sums the recorded payments.
func (s *Sale) PaidAmount() types.Money {
	paid := decimal.Zero
	for _, p := range s.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// OutstandingAmount is what remains to be paid.
func (s *Sale) OutstandingAmount() types.Money {
	return s.TotalAmount.Sub(s.PaidAmount())
}

// CanModify reports whether items may still be changed.
func (s *Sale) CanModify() error {
	if s.Status != StatusPending {
		return apperror.NewBusinessRule("SALE_NOT_PENDING", "only pending sales can be modified").
			WithDetail("saleId", s.ID.String()).
			WithDetail("status", string(s.Status))
	}
	return nil
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if !product.ValidPriceMode(s.PriceMode) {
		return apperror.NewValidation("invalid price mode").
			WithDetail("priceMode", string(s.PriceMode))
	}

	if !isValidStatus(s.Status) {
		return apperror.NewValidation("invalid sale status").
			WithDetail("status", string(s.Status))
	}

	for i, item := range s.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}
