package unit

import (
	"context"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
)

// Source supplies units and edges to the resolver. Satisfied by Service
// and by in-memory fakes in tests.
type Source interface {
	GetUnit(ctx context.Context, unitID id.ID) (*Unit, error)
	ActiveConversionFrom(ctx context.Context, fromUnitID id.ID) (*Conversion, error)
}

// Resolver translates quantities and prices between units through the
// conversion graph. Resolution never guesses: a pair of units without a
// shared base yields a typed no-conversion-path error, not a silent
// factor of one.
type Resolver struct {
	src Source
}

// NewResolver creates a resolver over the given source.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// QuantityFactor returns the multiplier f such that a quantity q in
// fromUnit equals q*f in toUnit. Same unit yields exactly one. The
// scalar may be a repeating fraction (1/12); callers converting actual
// quantities should use ConvertQuantity, which divides last and keeps
// exactly divisible results exact.
func (r *Resolver) QuantityFactor(ctx context.Context, fromUnitID, toUnitID id.ID) (decimal.Decimal, error) {
	num, den, err := r.factorParts(ctx, fromUnitID, toUnitID)
	if err != nil {
		return decimal.Zero, err
	}
	return num.Div(den), nil
}

// factorParts returns the quantity factor as an exact numerator and
// denominator pair: q in fromUnit equals q*num/den in toUnit.
func (r *Resolver) factorParts(ctx context.Context, fromUnitID, toUnitID id.ID) (num, den decimal.Decimal, err error) {
	one := decimal.NewFromInt(1)
	if fromUnitID == toUnitID {
		return one, one, nil
	}

	fromBase, fromFactor, err := r.baseFactor(ctx, fromUnitID, toUnitID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	toBase, toFactor, err := r.baseFactor(ctx, toUnitID, fromUnitID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	// Units are only convertible through a shared base.
	if fromBase != toBase {
		return decimal.Zero, decimal.Zero, apperror.NewNoConversionPath(fromUnitID.String(), toUnitID.String())
	}

	return fromFactor, toFactor, nil
}

// PriceFactor returns the multiplier f such that a per-unit price p in
// fromUnit terms equals p*f in toUnit terms. Price scales inversely to
// quantity: the price of a case is the piece price times pieces per case.
func (r *Resolver) PriceFactor(ctx context.Context, fromUnitID, toUnitID id.ID) (decimal.Decimal, error) {
	return r.QuantityFactor(ctx, toUnitID, fromUnitID)
}

// ConvertQuantity converts a quantity from one unit to another.
// Multiplies before dividing, so 30 pieces to 12-packs is exactly 2.5
// rather than a truncated repeating fraction.
func (r *Resolver) ConvertQuantity(ctx context.Context, qty decimal.Decimal, fromUnitID, toUnitID id.ID) (decimal.Decimal, error) {
	num, den, err := r.factorParts(ctx, fromUnitID, toUnitID)
	if err != nil {
		return decimal.Zero, err
	}
	return qty.Mul(num).Div(den), nil
}

// ConvertPrice converts a per-unit price from one unit to another.
// The result is unrounded; money rounding happens at line settlement.
func (r *Resolver) ConvertPrice(ctx context.Context, price decimal.Decimal, fromUnitID, toUnitID id.ID) (decimal.Decimal, error) {
	num, den, err := r.factorParts(ctx, toUnitID, fromUnitID)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(num).Div(den), nil
}

// baseFactor resolves a unit to its base: returns the base unit ID and
// how many base units one unit equals. A base unit resolves to itself
// with factor one. otherUnitID is only used to build the error.
func (r *Resolver) baseFactor(ctx context.Context, unitID, otherUnitID id.ID) (id.ID, decimal.Decimal, error) {
	u, err := r.src.GetUnit(ctx, unitID)
	if err != nil {
		return id.Nil(), decimal.Zero, err
	}

	if u.IsBase {
		return u.ID, decimal.NewFromInt(1), nil
	}

	edge, err := r.src.ActiveConversionFrom(ctx, unitID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return id.Nil(), decimal.Zero, apperror.NewNoConversionPath(unitID.String(), otherUnitID.String())
		}
		return id.Nil(), decimal.Zero, err
	}

	return edge.ToUnitID, edge.Factor, nil
}
