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
	"bevstock/internal/domain/catalogs/unit"
	"bevstock/internal/infrastructure/storage/postgres"
)

const conversionTable = "cat_unit_conversions"

// ConversionRepo implements unit.ConversionRepository. Conversion edges
// are not catalogs (no code, no hierarchy), so this repo does not embed
// BaseCatalogRepo.
type ConversionRepo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

// NewConversionRepo creates a new conversion edge repository.
func NewConversionRepo(txManager *postgres.TxManager) *ConversionRepo {
	return &ConversionRepo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[unit.Conversion](),
	}
}

func (r *ConversionRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ConversionRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(conversionTable)
}

// CreateConversion inserts a new edge.
func (r *ConversionRepo) CreateConversion(ctx context.Context, conv *unit.Conversion) error {
	data := postgres.StructToMap(conv)

	q := r.builder().Insert(conversionTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("conversion", "unit pair",
				conv.FromUnitID.String()+" -> "+conv.ToUnitID.String()).WithCause(err)
		}
		return fmt.Errorf("insert conversion: %w", err)
	}

	return nil
}

// UpdateConversion modifies an existing edge with optimistic locking.
func (r *ConversionRepo) UpdateConversion(ctx context.Context, conv *unit.Conversion) error {
	q := r.builder().
		Update(conversionTable).
		Set("factor", conv.Factor).
		Set("is_active", conv.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": conv.ID}).
		Where(squirrel.Eq{"version": conv.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update conversion: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("conversion", conv.ID.String())
	}

	return nil
}

// DeleteConversion removes an edge. Edges carry no history of their
// own, so deletion is physical.
func (r *ConversionRepo) DeleteConversion(ctx context.Context, convID id.ID) error {
	q := r.builder().
		Delete(conversionTable).
		Where(squirrel.Eq{"id": convID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete conversion: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("conversion", convID.String())
	}

	return nil
}

// GetConversion retrieves an edge by ID.
func (r *ConversionRepo) GetConversion(ctx context.Context, convID id.ID) (*unit.Conversion, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": convID}).
		Limit(1)

	return r.getOne(ctx, q, convID.String())
}

// FindConversion retrieves the edge for an exact unit pair, if any.
func (r *ConversionRepo) FindConversion(ctx context.Context, fromUnitID, toUnitID id.ID) (*unit.Conversion, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"from_unit_id": fromUnitID}).
		Where(squirrel.Eq{"to_unit_id": toUnitID}).
		Limit(1)

	return r.getOne(ctx, q, fromUnitID.String()+" -> "+toUnitID.String())
}

// ActiveConversionFrom retrieves the active edge out of the given unit.
// At most one active edge per non-base unit exists.
func (r *ConversionRepo) ActiveConversionFrom(ctx context.Context, fromUnitID id.ID) (*unit.Conversion, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"from_unit_id": fromUnitID}).
		Where(squirrel.Eq{"is_active": true}).
		Limit(1)

	return r.getOne(ctx, q, fromUnitID.String())
}

// ListConversions retrieves all edges touching the given unit.
func (r *ConversionRepo) ListConversions(ctx context.Context, unitID id.ID) ([]*unit.Conversion, error) {
	q := r.baseSelect().
		Where(squirrel.Or{
			squirrel.Eq{"from_unit_id": unitID},
			squirrel.Eq{"to_unit_id": unitID},
		}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var edges []*unit.Conversion
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &edges, sql, args...); err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}

	return edges, nil
}

func (r *ConversionRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*unit.Conversion, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var conv unit.Conversion
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &conv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("conversion", key)
		}
		return nil, fmt.Errorf("get conversion: %w", err)
	}

	return &conv, nil
}

// Ensure interface compliance.
var _ unit.ConversionRepository = (*ConversionRepo)(nil)
