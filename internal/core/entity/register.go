// Package entity provides core domain entities.
package entity

import (
	"time"

	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
)

// MovementType defines the effect of a stock movement on the product balance.
type MovementType string

const (
	// MovementIn increases balance (receipt from a delivery or manual stock-in)
	MovementIn MovementType = "in"
	// MovementOut decreases balance, clamped at zero
	MovementOut MovementType = "out"
	// MovementReturn increases balance (identical effect to MovementIn)
	MovementReturn MovementType = "return"
	// MovementAdjustment applies a caller-supplied signed delta
	MovementAdjustment MovementType = "adjustment"
	// MovementCostUpdate records a cost-price change; no balance effect
	MovementCostUpdate MovementType = "cost_update"
)

// ValidMovementType reports whether t is one of the five movement types.
func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementIn, MovementOut, MovementReturn, MovementAdjustment, MovementCostUpdate:
		return true
	}
	return false
}

// StockMovement is an immutable row in the stock ledger. Movements are
// never updated or deleted; corrections are new movements of the
// opposite sign.
type StockMovement struct {
	// LineID is the unique identifier for this ledger row (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// ProductID is the product whose balance this movement mutates
	ProductID id.ID `db:"product_id" json:"productId"`

	// Type is the movement type
	Type MovementType `db:"movement_type" json:"movementType"`

	// Quantity is ALWAYS expressed in the product's base unit.
	// Signed only for adjustments; other types carry positive quantities.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitID is the display unit the quantity was entered in, kept for
	// audit readability only. Nil means the quantity was entered in base units.
	UnitID *id.ID `db:"unit_id" json:"unitId,omitempty"`

	// EnteredQuantity is the quantity as entered in UnitID terms (audit only).
	EnteredQuantity types.Quantity `db:"entered_quantity" json:"enteredQuantity"`

	// ReferenceNumber links the movement to its source document (sale
	// number, delivery number, etc.)
	ReferenceNumber string `db:"reference_number" json:"referenceNumber,omitempty"`

	// Note is a free-form comment
	Note string `db:"note" json:"note,omitempty"`

	// CreatedBy is the acting user ID (audit attribution)
	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`

	// CreatedAt is when the movement was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AffectsBalance reports whether this movement type mutates the product balance.
func (m *StockMovement) AffectsBalance() bool {
	return m.Type != MovementCostUpdate
}

// SignedQuantity returns the balance delta this movement applies:
// positive for in/return, negative for out, as-is for adjustment,
// zero for cost_update. Out clamping is applied by the ledger service,
// not here.
func (m *StockMovement) SignedQuantity() types.Quantity {
	switch m.Type {
	case MovementOut:
		return m.Quantity.Neg()
	case MovementCostUpdate:
		return types.Zero()
	default:
		return m.Quantity
	}
}
