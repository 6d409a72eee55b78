// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/registers/stock"
	"bevstock/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "reg_stock_movements"

// StockRepo implements stock.Repository against the append-only
// movement ledger. Rows are inserted, never updated or deleted.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateMovement appends a ledger row.
func (r *StockRepo) CreateMovement(ctx context.Context, m *entity.StockMovement) error {
	q := r.builder.Insert(stockMovementsTable).
		SetMap(postgres.StructToMap(m))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

// GetMovement retrieves a ledger row by line ID.
func (r *StockRepo) GetMovement(ctx context.Context, lineID id.ID) (*entity.StockMovement, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"line_id": lineID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m entity.StockMovement
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock movement", lineID.String())
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}

	return &m, nil
}

// ListMovements retrieves movement history for a product, newest first.
func (r *StockRepo) ListMovements(ctx context.Context, productID id.ID, filter stock.MovementFilter) ([]*entity.StockMovement, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"product_id": productID})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC", "line_id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []*entity.StockMovement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// SumMovements replays the ledger: the signed sum of all
// balance-affecting rows for a product. Out rows subtract, adjustments
// carry their own sign, cost updates do not count.
func (r *StockRepo) SumMovements(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(
			SUM(CASE WHEN movement_type = 'out' THEN -quantity ELSE quantity END),
			0
		)
		FROM reg_stock_movements
		WHERE product_id = $1
		  AND movement_type <> 'cost_update'
	`

	var sum decimal.Decimal
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, productID).Scan(&sum)
	if err != nil && err != pgx.ErrNoRows {
		return decimal.Zero, fmt.Errorf("sum movements: %w", err)
	}

	return sum, nil
}

func (r *StockRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.
		Select(postgres.ExtractDBColumns[entity.StockMovement]()...).
		From(stockMovementsTable)
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
