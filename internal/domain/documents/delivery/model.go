// Package delivery provides the Delivery document: goods received
// against a purchase order. Confirmation is the only place stock comes
// in and the only place product cost prices move.
package delivery

import (
	"context"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
)

// Status is the delivery lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Delivery represents a goods receipt against a purchase order.
type Delivery struct {
	entity.Document

	// OrderID is the purchase order this delivery fulfils
	OrderID id.ID `db:"order_id" json:"orderId"`

	// Status is the lifecycle state
	Status Status `db:"status" json:"status"`

	// TotalAmount is the received value, recalculated from items
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	// Table part
	Items []DeliveryItem `db:"-" json:"items"`
}

// DeliveryItem represents one received line. Quantity is as entered in
// UnitID terms; BaseQuantity is the stock-relevant amount. UnitCost is
// the actual per-UnitID cost on the supplier's papers.
type DeliveryItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// OrderLineID links back to the purchase order line
	OrderLineID id.ID `db:"order_line_id" json:"orderLineId"`

	ProductID id.ID `db:"product_id" json:"productId"`
	UnitID    id.ID `db:"unit_id" json:"unitId"`

	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	BaseQuantity types.Quantity `db:"base_quantity" json:"baseQuantity"`

	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	LineTotal types.Money `db:"line_total" json:"lineTotal"`
}

// NewDelivery creates a new pending delivery against an order.
func NewDelivery(orderID id.ID) *Delivery {
	return &Delivery{
		Document:    entity.NewDocument(),
		OrderID:     orderID,
		Status:      StatusPending,
		TotalAmount: decimal.Zero,
		Items:       make([]DeliveryItem, 0),
	}
}

// RecalculateTotals recomputes the document total from items.
func (d *Delivery) RecalculateTotals() {
	d.TotalAmount = decimal.Zero
	for _, item := range d.Items {
		d.TotalAmount = d.TotalAmount.Add(item.LineTotal)
	}
}

// CanModify reports whether items may still be changed.
func (d *Delivery) CanModify() error {
	if d.Status != StatusPending {
		return apperror.NewBusinessRule("DELIVERY_NOT_PENDING", "only pending deliveries can be modified").
			WithDetail("deliveryId", d.ID.String()).
			WithDetail("status", string(d.Status))
	}
	return nil
}

// Validate implements entity.Validatable.
func (d *Delivery) Validate(ctx context.Context) error {
	if err := d.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(d.OrderID) {
		return apperror.NewValidation("purchase order is required").
			WithDetail("field", "orderId")
	}

	if !isValidStatus(d.Status) {
		return apperror.NewValidation("invalid delivery status").
			WithDetail("status", string(d.Status))
	}

	for i, item := range d.Items {
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
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
