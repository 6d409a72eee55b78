// Package stock provides the append-only stock ledger. Every balance
// change goes through a movement row; the product balance and the row
// are written in the same transaction.
package stock

import (
	"context"
	"time"

	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
)

// Repository defines operations for the movement ledger.
type Repository interface {
	// CreateMovement appends a ledger row
	CreateMovement(ctx context.Context, m *entity.StockMovement) error

	// GetMovement retrieves a ledger row by line ID
	GetMovement(ctx context.Context, lineID id.ID) (*entity.StockMovement, error)

	// ListMovements retrieves movement history for a product
	ListMovements(ctx context.Context, productID id.ID, filter MovementFilter) ([]*entity.StockMovement, error)

	// SumMovements replays the ledger: the signed sum of all
	// balance-affecting rows for a product
	SumMovements(ctx context.Context, productID id.ID) (types.Quantity, error)
}

// ProductStore is the slice of product persistence the ledger mutates.
type ProductStore interface {
	// GetForUpdate retrieves the product with a row lock
	GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error)

	// UpdateStock overwrites the balance of a locked product row
	UpdateStock(ctx context.Context, productID id.ID, qty types.Quantity) error

	// UpdateCostPrice overwrites the cost price of a locked product row
	UpdateCostPrice(ctx context.Context, productID id.ID, cost types.Money) error
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	Type     *entity.MovementType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
