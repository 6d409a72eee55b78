package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/infrastructure/storage/postgres"
)

const productUnitTable = "cat_product_units"

// ProductUnitRepo implements product.UnitRepository.
type ProductUnitRepo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

// NewProductUnitRepo creates a new product-unit repository.
func NewProductUnitRepo(txManager *postgres.TxManager) *ProductUnitRepo {
	return &ProductUnitRepo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[product.ProductUnit](),
	}
}

func (r *ProductUnitRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ProductUnitRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(productUnitTable)
}

// CreateUnit inserts a product-unit row.
func (r *ProductUnitRepo) CreateUnit(ctx context.Context, pu *product.ProductUnit) error {
	data := postgres.StructToMap(pu)

	q := r.builder().Insert(productUnitTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("product unit", "product/unit pair",
				pu.ProductID.String()+" / "+pu.UnitID.String()).WithCause(err)
		}
		return fmt.Errorf("insert product unit: %w", err)
	}

	return nil
}

// UpdateUnit modifies a product-unit row with optimistic locking.
func (r *ProductUnitRepo) UpdateUnit(ctx context.Context, pu *product.ProductUnit) error {
	q := r.builder().
		Update(productUnitTable).
		Set("is_default", pu.IsDefault).
		Set("price_override", pu.PriceOverride).
		Set("wholesale_override", pu.WholesaleOverride).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": pu.ID}).
		Where(squirrel.Eq{"version": pu.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product unit: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product unit", pu.ID.String())
	}

	return nil
}

// DeleteUnit removes a product-unit row.
func (r *ProductUnitRepo) DeleteUnit(ctx context.Context, rowID id.ID) error {
	q := r.builder().
		Delete(productUnitTable).
		Where(squirrel.Eq{"id": rowID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete product unit: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product unit", rowID.String())
	}

	return nil
}

// GetUnit retrieves a product-unit row by ID.
func (r *ProductUnitRepo) GetUnit(ctx context.Context, rowID id.ID) (*product.ProductUnit, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": rowID}).
		Limit(1)

	return r.getOne(ctx, q, rowID.String())
}

// FindUnit retrieves the row for an exact product-unit pair, if any.
func (r *ProductUnitRepo) FindUnit(ctx context.Context, productID, unitID id.ID) (*product.ProductUnit, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"unit_id": unitID}).
		Limit(1)

	return r.getOne(ctx, q, productID.String()+" / "+unitID.String())
}

// ListUnits retrieves all unit rows of a product.
func (r *ProductUnitRepo) ListUnits(ctx context.Context, productID id.ID) ([]*product.ProductUnit, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*product.ProductUnit
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list product units: %w", err)
	}

	return rows, nil
}

// ClearDefault clears the default flag on all unit rows of a product.
func (r *ProductUnitRepo) ClearDefault(ctx context.Context, productID id.ID) error {
	q := r.builder().
		Update(productUnitTable).
		Set("is_default", false).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"is_default": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build clear default: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}

	return nil
}

func (r *ProductUnitRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*product.ProductUnit, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var pu product.ProductUnit
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &pu, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product unit", key)
		}
		return nil, fmt.Errorf("get product unit: %w", err)
	}

	return &pu, nil
}

// Ensure interface compliance.
var _ product.UnitRepository = (*ProductUnitRepo)(nil)
