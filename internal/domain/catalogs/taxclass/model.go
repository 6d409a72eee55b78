// Package taxclass provides the tax class catalog. A tax class carries a
// tax-inclusive rate: document totals already contain the tax, and
// settlement extracts the tax share from the gross amount.
package taxclass

import (
	"context"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
)

// TaxClass represents a named tax rate applied to products.
type TaxClass struct {
	entity.Catalog

	// Rate is the tax percentage (e.g., 18 for 18%). Zero is a valid
	// exempt class.
	Rate decimal.Decimal `db:"rate" json:"rate"`

	// IsActive controls whether the class can be assigned to products
	IsActive bool `db:"is_active" json:"isActive"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewTaxClass creates a new TaxClass with required fields.
func NewTaxClass(code, name string, rate decimal.Decimal) *TaxClass {
	return &TaxClass{
		Catalog:  entity.NewCatalog(code, name),
		Rate:     rate,
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (t *TaxClass) Validate(ctx context.Context) error {
	if err := t.Catalog.Validate(ctx); err != nil {
		return err
	}

	if t.Rate.IsNegative() {
		return apperror.NewValidation("tax rate cannot be negative").
			WithDetail("field", "rate").
			WithDetail("value", t.Rate.String())
	}

	return nil
}
