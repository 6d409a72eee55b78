package unit

import (
	"context"

	"bevstock/internal/core/id"
	"bevstock/internal/domain"
)

// Repository defines the interface for Unit persistence.
type Repository interface {
	domain.CatalogRepository[*Unit]

	// FindBySymbol retrieves unit by symbol (unique).
	FindBySymbol(ctx context.Context, symbol string) (*Unit, error)

	// GetForUpdate retrieves unit with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Unit, error)
}

// ConversionRepository defines the interface for conversion edge persistence.
type ConversionRepository interface {
	// CreateConversion inserts a new edge
	CreateConversion(ctx context.Context, conv *Conversion) error

	// UpdateConversion modifies an existing edge (optimistic locking)
	UpdateConversion(ctx context.Context, conv *Conversion) error

	// DeleteConversion removes an edge
	DeleteConversion(ctx context.Context, id id.ID) error

	// GetConversion retrieves an edge by ID
	GetConversion(ctx context.Context, id id.ID) (*Conversion, error)

	// FindConversion retrieves the edge for an exact unit pair, if any
	FindConversion(ctx context.Context, fromUnitID, toUnitID id.ID) (*Conversion, error)

	// ActiveConversionFrom retrieves the active edge whose FromUnit is
	// the given unit. At most one active edge per non-base unit exists.
	ActiveConversionFrom(ctx context.Context, fromUnitID id.ID) (*Conversion, error)

	// ListConversions retrieves all edges touching the given unit
	ListConversions(ctx context.Context, unitID id.ID) ([]*Conversion, error)
}
