package catalog_repo

import (
	"bevstock/internal/domain/catalogs/taxclass"
	"bevstock/internal/infrastructure/storage/postgres"
)

const taxClassTable = "cat_tax_classes"

// TaxClassRepo implements taxclass.Repository.
type TaxClassRepo struct {
	*BaseCatalogRepo[*taxclass.TaxClass]
}

// NewTaxClassRepo creates a new tax class repository.
func NewTaxClassRepo(txManager *postgres.TxManager) *TaxClassRepo {
	return &TaxClassRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			taxClassTable,
			postgres.ExtractDBColumns[taxclass.TaxClass](),
			func() *taxclass.TaxClass { return &taxclass.TaxClass{} },
		),
	}
}

// Ensure interface compliance.
var _ taxclass.Repository = (*TaxClassRepo)(nil)
