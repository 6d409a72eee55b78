package supplier

import (
	"context"

	"bevstock/internal/domain"
)

// Repository defines the interface for Supplier persistence.
type Repository interface {
	domain.CatalogRepository[*Supplier]

	// FindByTaxNumber retrieves supplier by tax number (unique when set).
	FindByTaxNumber(ctx context.Context, taxNumber string) (*Supplier, error)
}
