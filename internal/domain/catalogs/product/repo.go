package product

import (
	"context"

	"bevstock/internal/core/id"
	"bevstock/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindBySKU retrieves product by SKU (unique when set).
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindByBarcode retrieves product by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)

	// GetForUpdate retrieves product with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)

	// ListLowStock retrieves active products below their minimum level.
	ListLowStock(ctx context.Context) ([]*Product, error)
}

// UnitRepository defines the interface for ProductUnit persistence.
type UnitRepository interface {
	// CreateUnit inserts a product-unit row
	CreateUnit(ctx context.Context, pu *ProductUnit) error

	// UpdateUnit modifies a product-unit row (optimistic locking)
	UpdateUnit(ctx context.Context, pu *ProductUnit) error

	// DeleteUnit removes a product-unit row
	DeleteUnit(ctx context.Context, id id.ID) error

	// GetUnit retrieves a product-unit row by ID
	GetUnit(ctx context.Context, id id.ID) (*ProductUnit, error)

	// FindUnit retrieves the row for an exact product-unit pair, if any
	FindUnit(ctx context.Context, productID, unitID id.ID) (*ProductUnit, error)

	// ListUnits retrieves all unit rows of a product
	ListUnits(ctx context.Context, productID id.ID) ([]*ProductUnit, error)

	// ClearDefault clears the default flag on all unit rows of a product
	ClearDefault(ctx context.Context, productID id.ID) error
}
