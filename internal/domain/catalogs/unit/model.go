// Package unit provides the measurement unit catalog and the conversion
// graph between units. Every product quantity in the system is stored in
// the product's base unit; this package owns the factors that translate
// display units (cases, packs, crates) to and from base units.
package unit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
)

// UnitType defines the type of measurement unit.
type UnitType string

const (
	TypePiece  UnitType = "piece"
	TypeWeight UnitType = "weight" // kg, g
	TypeVolume UnitType = "volume" // l, ml
	TypePack   UnitType = "pack"   // case, crate, six-pack
)

// Unit represents a measurement unit.
type Unit struct {
	entity.Catalog

	// Type defines the unit category
	Type UnitType `db:"type" json:"type"`

	// Symbol is the short unique symbol (e.g., "pcs", "l", "cs12")
	Symbol string `db:"symbol" json:"symbol"`

	// IsBase marks a unit products may use as their base unit.
	// Conversion edges always point from a non-base unit to a base unit.
	IsBase bool `db:"is_base" json:"isBase"`

	// IsActive controls whether the unit can be used on new records
	IsActive bool `db:"is_active" json:"isActive"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewUnit creates a new Unit with required fields.
func NewUnit(code, name, symbol string, unitType UnitType) *Unit {
	u := &Unit{
		Catalog:  entity.NewCatalog(code, name),
		Type:     unitType,
		Symbol:   symbol,
		IsActive: true,
	}
	return u
}

// NewBaseUnit creates a new base Unit.
func NewBaseUnit(code, name, symbol string, unitType UnitType) *Unit {
	u := NewUnit(code, name, symbol, unitType)
	u.IsBase = true
	return u
}

// Validate implements entity.Validatable interface.
func (u *Unit) Validate(ctx context.Context) error {
	if err := u.Catalog.Validate(ctx); err != nil {
		return err
	}

	if u.Symbol == "" {
		return apperror.NewValidation("symbol is required").
			WithDetail("field", "symbol")
	}

	if !isValidUnitType(u.Type) {
		return apperror.NewValidation("invalid unit type").
			WithDetail("field", "type").
			WithDetail("value", string(u.Type))
	}

	return nil
}

func isValidUnitType(t UnitType) bool {
	switch t {
	case TypePiece, TypeWeight, TypeVolume, TypePack:
		return true
	}
	return false
}

// Conversion is a directed edge of the conversion graph. The canonical
// direction is always non-base unit to base unit: one FromUnit equals
// Factor ToUnits. The factor for the reverse direction is derived, never
// stored.
type Conversion struct {
	entity.BaseEntity

	// FromUnitID is the non-base unit being defined
	FromUnitID id.ID `db:"from_unit_id" json:"fromUnitId"`

	// ToUnitID is the base unit the factor resolves into
	ToUnitID id.ID `db:"to_unit_id" json:"toUnitId"`

	// Factor is how many ToUnits one FromUnit equals. Must be positive.
	Factor decimal.Decimal `db:"factor" json:"factor"`

	// IsActive controls whether the edge participates in resolution
	IsActive bool `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewConversion creates a conversion edge.
func NewConversion(fromUnitID, toUnitID id.ID, factor decimal.Decimal) *Conversion {
	return &Conversion{
		BaseEntity: entity.NewBaseEntity(),
		FromUnitID: fromUnitID,
		ToUnitID:   toUnitID,
		Factor:     factor,
		IsActive:   true,
	}
}

// Validate implements entity.Validatable interface.
func (c *Conversion) Validate(ctx context.Context) error {
	if id.IsNil(c.FromUnitID) || id.IsNil(c.ToUnitID) {
		return apperror.NewValidation("conversion requires both units").
			WithDetail("fromUnitId", c.FromUnitID.String()).
			WithDetail("toUnitId", c.ToUnitID.String())
	}

	if c.FromUnitID == c.ToUnitID {
		return apperror.NewValidation("conversion cannot reference the same unit twice").
			WithDetail("unitId", c.FromUnitID.String())
	}

	if !c.Factor.IsPositive() {
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("field", "factor").
			WithDetail("value", c.Factor.String())
	}

	return nil
}
