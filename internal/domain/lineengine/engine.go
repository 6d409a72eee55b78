// Package lineengine builds document lines. Sale items, purchase-order
// items and delivery items all derive their base quantity, frozen cost
// and totals here, so the three document types cannot drift apart.
package lineengine

import (
	"context"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/unit"
)

// Line is the computed core of a document line.
type Line struct {
	ProductID id.ID `json:"productId"`
	UnitID    id.ID `json:"unitId"`

	// Quantity as entered, in UnitID terms
	Quantity types.Quantity `json:"quantity"`

	// BaseQuantity is the stock-relevant quantity in the product's base
	// unit. The display quantity is re-derivable through the reverse factor.
	BaseQuantity types.Quantity `json:"baseQuantity"`

	// UnitPrice is the sale price per UnitID
	UnitPrice types.Money `json:"unitPrice"`

	// UnitCost is the cost per UnitID, frozen at line creation. Later
	// cost price changes never rewrite existing lines.
	UnitCost types.Money `json:"unitCost"`

	// LineTotal is Quantity * UnitPrice rounded to money scale
	LineTotal types.Money `json:"lineTotal"`

	// TotalCost is Quantity * UnitCost rounded to money scale
	TotalCost types.Money `json:"totalCost"`
}

// Engine computes document lines through the conversion graph.
type Engine struct {
	resolver *unit.Resolver
}

// NewEngine creates a line engine.
func NewEngine(resolver *unit.Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// BuildLine computes a line for the given product, unit, quantity and
// per-unit price. An unresolvable conversion rejects the line; only a
// unit equal to the base unit converts one to one implicitly.
func (e *Engine) BuildLine(ctx context.Context, p *product.Product, unitID id.ID, qty types.Quantity, unitPrice types.Money) (Line, error) {
	if !qty.IsPositive() {
		return Line{}, apperror.NewValidation("line quantity must be positive").
			WithDetail("quantity", qty.String())
	}
	if unitPrice.IsNegative() {
		return Line{}, apperror.NewValidation("unit price cannot be negative").
			WithDetail("unitPrice", unitPrice.String())
	}

	factor, err := e.resolver.QuantityFactor(ctx, unitID, p.BaseUnitID)
	if err != nil {
		return Line{}, err
	}

	unitCost, err := e.FrozenUnitCost(ctx, p, unitID)
	if err != nil {
		return Line{}, err
	}

	return Line{
		ProductID:    p.ID,
		UnitID:       unitID,
		Quantity:     qty,
		BaseQuantity: qty.Mul(factor),
		UnitPrice:    unitPrice,
		UnitCost:     unitCost,
		LineTotal:    types.RoundMoney(qty.Mul(unitPrice)),
		TotalCost:    types.RoundMoney(qty.Mul(unitCost)),
	}, nil
}

// FrozenUnitCost returns the product's cost price expressed in the given
// unit, to be frozen on the line at creation time.
func (e *Engine) FrozenUnitCost(ctx context.Context, p *product.Product, unitID id.ID) (types.Money, error) {
	if unitID == p.BaseUnitID {
		return types.RoundMoney(p.CostPrice), nil
	}

	converted, err := e.resolver.ConvertPrice(ctx, p.CostPrice, p.BaseUnitID, unitID)
	if err != nil {
		return types.Zero(), err
	}
	return types.RoundMoney(converted), nil
}

// Settlement splits a tax-inclusive gross total.
type Settlement struct {
	// Net is the amount without tax
	Net types.Money `json:"net"`

	// Tax is the tax share contained in the gross total
	Tax types.Money `json:"tax"`
}

// Settle extracts the tax share from a tax-inclusive line total:
// tax = total * r / (100 + r), net = total * 100 / (100 + r), both
// rounded half up to money scale. A nil, zero or inactive rate settles
// to (total, 0). Settlement is per line; document totals are sums of
// line settlements, never a blended rate.
func Settle(lineTotal types.Money, taxRate *decimal.Decimal) Settlement {
	if taxRate == nil || !taxRate.IsPositive() {
		return Settlement{Net: types.RoundMoney(lineTotal), Tax: types.Zero()}
	}

	den := taxRate.Add(decimal.NewFromInt(100))
	tax := lineTotal.Mul(*taxRate).Div(den)
	net := lineTotal.Mul(decimal.NewFromInt(100)).Div(den)

	return Settlement{
		Net: types.RoundMoney(net),
		Tax: types.RoundMoney(tax),
	}
}
