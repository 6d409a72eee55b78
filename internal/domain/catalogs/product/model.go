// Package product provides the Product catalog and its per-unit pricing
// rows. A product stores its balance and list prices in its base unit;
// ProductUnit rows attach alternative sale units with optional price
// overrides.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
)

// PriceMode selects which list price a document line uses.
type PriceMode string

const (
	PriceStandard  PriceMode = "standard"
	PriceWholesale PriceMode = "wholesale"
)

// ValidPriceMode reports whether m is a known price mode.
func ValidPriceMode(m PriceMode) bool {
	return m == PriceStandard || m == PriceWholesale
}

// Product represents a sellable item. Prices and stock are always in
// terms of BaseUnitID.
type Product struct {
	entity.Catalog

	// SKU is the stock keeping unit (unique when set)
	SKU *string `db:"sku" json:"sku,omitempty"`

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// CategoryID is reference to the product category
	CategoryID *id.ID `db:"category_id" json:"categoryId,omitempty"`

	// BaseUnitID is the unit all quantities and prices resolve into
	BaseUnitID id.ID `db:"base_unit_id" json:"baseUnitId"`

	// TaxClassID is reference to the tax class (tax-inclusive rate)
	TaxClassID *id.ID `db:"tax_class_id" json:"taxClassId,omitempty"`

	// Price is the standard sale price per base unit
	Price types.Money `db:"price" json:"price"`

	// WholesalePrice is the wholesale sale price per base unit
	WholesalePrice types.Money `db:"wholesale_price" json:"wholesalePrice"`

	// CostPrice is the current purchase cost per base unit
	CostPrice types.Money `db:"cost_price" json:"costPrice"`

	// StockQuantity is the on-hand balance in base units. Mutated only
	// by the stock ledger, never directly.
	StockQuantity types.Quantity `db:"stock_quantity" json:"stockQuantity"`

	// MinStockLevel triggers the low-stock flag when balance falls below it
	MinStockLevel types.Quantity `db:"min_stock_level" json:"minStockLevel"`

	// MaxStockLevel caps the recommended reorder quantity
	MaxStockLevel types.Quantity `db:"max_stock_level" json:"maxStockLevel"`

	// IsActive controls whether the product appears on new documents
	IsActive bool `db:"is_active" json:"isActive"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, baseUnitID id.ID) *Product {
	return &Product{
		Catalog:        entity.NewCatalog(code, name),
		BaseUnitID:     baseUnitID,
		Price:          decimal.Zero,
		WholesalePrice: decimal.Zero,
		CostPrice:      decimal.Zero,
		StockQuantity:  decimal.Zero,
		MinStockLevel:  decimal.Zero,
		MaxStockLevel:  decimal.Zero,
		IsActive:       true,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	// Folders group products and carry no unit or prices.
	if p.IsFolder {
		return nil
	}

	if id.IsNil(p.BaseUnitID) {
		return apperror.NewValidation("base unit is required").
			WithDetail("field", "baseUnitId")
	}

	if p.Price.IsNegative() || p.WholesalePrice.IsNegative() || p.CostPrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative").
			WithDetail("price", p.Price.String()).
			WithDetail("wholesalePrice", p.WholesalePrice.String()).
			WithDetail("costPrice", p.CostPrice.String())
	}

	if p.MinStockLevel.IsNegative() || p.MaxStockLevel.IsNegative() {
		return apperror.NewValidation("stock levels cannot be negative")
	}

	if p.MaxStockLevel.IsPositive() && p.MaxStockLevel.LessThan(p.MinStockLevel) {
		return apperror.NewValidation("max stock level cannot be below min stock level").
			WithDetail("minStockLevel", p.MinStockLevel.String()).
			WithDetail("maxStockLevel", p.MaxStockLevel.String())
	}

	return nil
}

// ListPrice returns the list price per base unit for the given mode.
func (p *Product) ListPrice(mode PriceMode) types.Money {
	if mode == PriceWholesale {
		return p.WholesalePrice
	}
	return p.Price
}

// IsLowStock reports whether the balance has fallen below the minimum level.
func (p *Product) IsLowStock() bool {
	return p.MinStockLevel.IsPositive() && p.StockQuantity.LessThan(p.MinStockLevel)
}

// ReorderQuantity returns how many base units to order to reach the
// maximum level, zero when stock is sufficient or no maximum is set.
func (p *Product) ReorderQuantity() types.Quantity {
	if !p.MaxStockLevel.IsPositive() || !p.IsLowStock() {
		return decimal.Zero
	}
	return p.MaxStockLevel.Sub(p.StockQuantity)
}

// ProductUnit attaches a sale unit to a product, optionally overriding
// the converted list prices for that unit.
type ProductUnit struct {
	entity.BaseEntity

	// ProductID is the owning product
	ProductID id.ID `db:"product_id" json:"productId"`

	// UnitID is the attached unit. Must be convertible to the product's
	// base unit.
	UnitID id.ID `db:"unit_id" json:"unitId"`

	// IsDefault marks the preferred display unit. At most one per product.
	IsDefault bool `db:"is_default" json:"isDefault"`

	// PriceOverride replaces the converted standard price when set
	PriceOverride *types.Money `db:"price_override" json:"priceOverride,omitempty"`

	// WholesaleOverride replaces the converted wholesale price when set
	WholesaleOverride *types.Money `db:"wholesale_override" json:"wholesaleOverride,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewProductUnit creates a product-unit row.
func NewProductUnit(productID, unitID id.ID) *ProductUnit {
	return &ProductUnit{
		BaseEntity: entity.NewBaseEntity(),
		ProductID:  productID,
		UnitID:     unitID,
	}
}

// Validate implements entity.Validatable interface.
func (pu *ProductUnit) Validate(ctx context.Context) error {
	if id.IsNil(pu.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if id.IsNil(pu.UnitID) {
		return apperror.NewValidation("unit is required").
			WithDetail("field", "unitId")
	}

	if pu.PriceOverride != nil && pu.PriceOverride.IsNegative() {
		return apperror.NewValidation("price override cannot be negative").
			WithDetail("value", pu.PriceOverride.String())
	}
	if pu.WholesaleOverride != nil && pu.WholesaleOverride.IsNegative() {
		return apperror.NewValidation("wholesale override cannot be negative").
			WithDetail("value", pu.WholesaleOverride.String())
	}

	return nil
}

// Override returns the override for the given mode, nil when unset.
func (pu *ProductUnit) Override(mode PriceMode) *types.Money {
	if mode == PriceWholesale {
		return pu.WholesaleOverride
	}
	return pu.PriceOverride
}
