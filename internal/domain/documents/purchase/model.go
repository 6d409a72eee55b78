// Package purchase provides the PurchaseOrder document. Orders track
// what was requested from a supplier; stock only moves when a delivery
// against the order is confirmed.
package purchase

import (
	"context"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/lineengine"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusSent               Status = "sent"
	StatusConfirmed          Status = "confirmed"
	StatusPartiallyDelivered Status = "partially_delivered"
	StatusDelivered          Status = "delivered"
	StatusCancelled          Status = "cancelled"
)

// transitions lists the allowed status moves.
var transitions = map[Status][]Status{
	StatusDraft:              {StatusSent, StatusCancelled},
	StatusSent:               {StatusConfirmed, StatusCancelled},
	StatusConfirmed:          {StatusPartiallyDelivered, StatusDelivered, StatusCancelled},
	StatusPartiallyDelivered: {StatusDelivered},
}

// CanTransition reports whether the move from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PurchaseOrder represents an order to a supplier.
type PurchaseOrder struct {
	entity.Document

	// SupplierID is reference to the Supplier catalog
	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// Status is the lifecycle state
	Status Status `db:"status" json:"status"`

	// Totals, recalculated from items
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`
	TotalNet    types.Money `db:"total_net" json:"totalNet"`
	TotalTax    types.Money `db:"total_tax" json:"totalTax"`

	// Table part
	Items []OrderItem `db:"-" json:"items"`
}

// OrderItem represents one ordered line. UnitCost is the agreed
// purchase price per UnitID; ReceivedQuantity accumulates as deliveries
// against the order are confirmed.
type OrderItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`
	UnitID    id.ID `db:"unit_id" json:"unitId"`

	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	BaseQuantity types.Quantity `db:"base_quantity" json:"baseQuantity"`

	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	LineTotal types.Money `db:"line_total" json:"lineTotal"`

	// TaxRate is the tax-inclusive percentage frozen from the product's
	// tax class; nil means no tax
	TaxRate *decimal.Decimal `db:"tax_rate" json:"taxRate,omitempty"`

	NetAmount types.Money `db:"net_amount" json:"netAmount"`
	TaxAmount types.Money `db:"tax_amount" json:"taxAmount"`

	// ReceivedQuantity is in UnitID terms
	ReceivedQuantity types.Quantity `db:"received_quantity" json:"receivedQuantity"`
}

// IsFullyReceived reports whether the line was delivered in full.
func (i *OrderItem) IsFullyReceived() bool {
	return i.ReceivedQuantity.GreaterThanOrEqual(i.Quantity)
}

// NewPurchaseOrder creates a new draft order for the given supplier.
func NewPurchaseOrder(supplierID id.ID) *PurchaseOrder {
	return &PurchaseOrder{
		Document:     entity.NewDocument(),
		SupplierID:   supplierID,
		Status:       StatusDraft,
		TotalAmount:  decimal.Zero,
		TotalNet:     decimal.Zero,
		TotalTax:     decimal.Zero,
		Items:        make([]OrderItem, 0),
	}
}

// newItem builds an order item from a computed line and its settlement.
// The line's UnitPrice carries the agreed purchase cost.
func newItem(lineNo int, line lineengine.Line, taxRate *decimal.Decimal) OrderItem {
	settlement := lineengine.Settle(line.LineTotal, taxRate)
	return OrderItem{
		LineID:           id.New(),
		LineNo:           lineNo,
		ProductID:        line.ProductID,
		UnitID:           line.UnitID,
		Quantity:         line.Quantity,
		BaseQuantity:     line.BaseQuantity,
		UnitCost:         line.UnitPrice,
		LineTotal:        line.LineTotal,
		TaxRate:          taxRate,
		NetAmount:        settlement.Net,
		TaxAmount:        settlement.Tax,
		ReceivedQuantity: decimal.Zero,
	}
}

// RecalculateTotals recomputes the document totals from items.
func (po *PurchaseOrder) RecalculateTotals() {
	po.TotalAmount = decimal.Zero
	po.TotalNet = decimal.Zero
	po.TotalTax = decimal.Zero

	for _, item := range po.Items {
		po.TotalAmount = po.TotalAmount.Add(item.LineTotal)
		po.TotalNet = po.TotalNet.Add(item.NetAmount)
		po.TotalTax = po.TotalTax.Add(item.TaxAmount)
	}
}

// CanModify reports whether items may still be changed.
func (po *PurchaseOrder) CanModify() error {
	if po.Status != StatusDraft {
		return apperror.NewBusinessRule("ORDER_NOT_DRAFT", "only draft orders can be modified").
			WithDetail("orderId", po.ID.String()).
			WithDetail("status", string(po.Status))
	}
	return nil
}

// DeliveryStatus derives the receiving status from the items: delivered
// when every line is fully received, partially_delivered when anything
// arrived, otherwise the current status.
func (po *PurchaseOrder) DeliveryStatus() Status {
	if len(po.Items) == 0 {
		return po.Status
	}

	full := true
	any := false
	for _, item := range po.Items {
		if item.ReceivedQuantity.IsPositive() {
			any = true
		}
		if !item.IsFullyReceived() {
			full = false
		}
	}

	switch {
	case full:
		return StatusDelivered
	case any:
		return StatusPartiallyDelivered
	default:
		return po.Status
	}
}

// Validate implements entity.Validatable.
func (po *PurchaseOrder) Validate(ctx context.Context) error {
	if err := po.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(po.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}

	if !isValidStatus(po.Status) {
		return apperror.NewValidation("invalid order status").
			WithDetail("status", string(po.Status))
	}

	for i, item := range po.Items {
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
		if item.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSent, StatusConfirmed, StatusPartiallyDelivered, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
