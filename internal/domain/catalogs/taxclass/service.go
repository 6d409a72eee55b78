package taxclass

import (
	"context"
	"fmt"
	"time"

	"bevstock/internal/core/tx"
	"bevstock/internal/domain"
	"bevstock/pkg/numerator"
)

// Service provides business logic for the TaxClass catalog.
type Service struct {
	*domain.CatalogService[*TaxClass]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new TaxClass service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*TaxClass]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  num,
		EntityName: "tax_class",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, tc *TaxClass) error {
	if tc.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("TAX"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		tc.Code = code
	}
	return nil
}
