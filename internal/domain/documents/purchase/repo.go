package purchase

import (
	"context"
	"time"

	"bevstock/internal/core/id"
)

// ListFilter narrows order queries.
type ListFilter struct {
	Status     *Status
	SupplierID *id.ID
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Repository defines the interface for PurchaseOrder persistence.
type Repository interface {
	// Create inserts the document header
	Create(ctx context.Context, doc *PurchaseOrder) error

	// Update modifies the document header (optimistic locking)
	Update(ctx context.Context, doc *PurchaseOrder) error

	// GetByID retrieves the header without items
	GetByID(ctx context.Context, id id.ID) (*PurchaseOrder, error)

	// GetForUpdate retrieves the header with a row lock
	GetForUpdate(ctx context.Context, id id.ID) (*PurchaseOrder, error)

	// GetByNumber retrieves the header by document number
	GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error)

	// SaveItems replaces the table part
	SaveItems(ctx context.Context, orderID id.ID, items []OrderItem) error

	// GetItems retrieves the table part ordered by line number
	GetItems(ctx context.Context, orderID id.ID) ([]OrderItem, error)

	// List retrieves headers with filtering
	List(ctx context.Context, filter ListFilter) ([]*PurchaseOrder, error)
}
