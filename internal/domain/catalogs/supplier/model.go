// Package supplier provides the Supplier catalog: the counterparties
// purchase orders are placed with and deliveries arrive from.
package supplier

import (
	"context"
	"regexp"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Supplier represents a goods supplier.
type Supplier struct {
	entity.Catalog

	// ContactPerson is the primary contact name
	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`

	// Email is the primary contact email
	Email *string `db:"email" json:"email,omitempty"`

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Address is the supplier's postal address
	Address *string `db:"address" json:"address,omitempty"`

	// TaxNumber is the supplier's tax identifier (unique when set)
	TaxNumber *string `db:"tax_number" json:"taxNumber,omitempty"`

	// PaymentTerms is free-form, e.g. "Net 30", "COD"
	PaymentTerms *string `db:"payment_terms" json:"paymentTerms,omitempty"`

	// IsActive controls whether new orders may be placed with the supplier
	IsActive bool `db:"is_active" json:"isActive"`
}

// NewSupplier creates a new Supplier with required fields.
func NewSupplier(code, name string) *Supplier {
	return &Supplier{
		Catalog:  entity.NewCatalog(code, name),
		IsActive: true,
	}
}

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}

	if s.Email != nil && *s.Email != "" && !emailRE.MatchString(*s.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	return nil
}
