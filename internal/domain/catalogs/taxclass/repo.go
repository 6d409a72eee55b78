package taxclass

import (
	"bevstock/internal/domain"
)

// Repository defines the interface for TaxClass persistence.
type Repository interface {
	domain.CatalogRepository[*TaxClass]
}
