package sale

import (
	"context"
	"time"

	"bevstock/internal/core/id"
)

// ListFilter narrows sale queries.
type ListFilter struct {
	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository defines the interface for Sale persistence.
type Repository interface {
	// Create inserts the document header
	Create(ctx context.Context, doc *Sale) error

	// Update modifies the document header (optimistic locking)
	Update(ctx context.Context, doc *Sale) error

	// GetByID retrieves the header without items
	GetByID(ctx context.Context, id id.ID) (*Sale, error)

	// GetForUpdate retrieves the header with a row lock
	GetForUpdate(ctx context.Context, id id.ID) (*Sale, error)

	// GetByNumber retrieves the header by document number
	GetByNumber(ctx context.Context, number string) (*Sale, error)

	// SaveItems replaces the table part
	SaveItems(ctx context.Context, saleID id.ID, items []SaleItem) error

	// GetItems retrieves the table part ordered by line number
	GetItems(ctx context.Context, saleID id.ID) ([]SaleItem, error)

	// AddPayment appends one payment
	AddPayment(ctx context.Context, saleID id.ID, payment Payment) error

	// GetPayments retrieves payments ordered by creation time
	GetPayments(ctx context.Context, saleID id.ID) ([]Payment, error)

	// List retrieves headers with filtering
	List(ctx context.Context, filter ListFilter) ([]*Sale, error)
}
