package delivery

import (
	"context"
	"time"

	"bevstock/internal/core/id"
)

// ListFilter narrows delivery queries.
type ListFilter struct {
	OrderID  *id.ID
	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository defines the interface for Delivery persistence.
type Repository interface {
	// Create inserts the document header
	Create(ctx context.Context, doc *Delivery) error

	// Update modifies the document header (optimistic locking)
	Update(ctx context.Context, doc *Delivery) error

	// GetByID retrieves the header without items
	GetByID(ctx context.Context, id id.ID) (*Delivery, error)

	// GetForUpdate retrieves the header with a row lock
	GetForUpdate(ctx context.Context, id id.ID) (*Delivery, error)

	// SaveItems replaces the table part
	SaveItems(ctx context.Context, deliveryID id.ID, items []DeliveryItem) error

	// GetItems retrieves the table part ordered by line number
	GetItems(ctx context.Context, deliveryID id.ID) ([]DeliveryItem, error)

	// List retrieves headers with filtering
	List(ctx context.Context, filter ListFilter) ([]*Delivery, error)
}
