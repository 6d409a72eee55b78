// Package category provides the product category catalog. Categories are
// hierarchical: folders group subcategories, leaf categories hold products.
package category

import (
	"context"

	"bevstock/internal/core/entity"
)

// Category represents a product grouping.
type Category struct {
	entity.Catalog

	// IsActive controls whether products can be assigned to this category
	IsActive bool `db:"is_active" json:"isActive"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewCategory creates a new Category with required fields.
func NewCategory(code, name string) *Category {
	return &Category{
		Catalog:  entity.NewCatalog(code, name),
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (c *Category) Validate(ctx context.Context) error {
	return c.Catalog.Validate(ctx)
}
