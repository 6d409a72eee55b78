package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bevstock/internal/core/id"
	"bevstock/internal/domain/documents/delivery"
	"bevstock/internal/infrastructure/storage/postgres"
)

const (
	deliveriesTable    = "doc_deliveries"
	deliveryLinesTable = "doc_delivery_lines"
)

// DeliveryRepo implements delivery.Repository.
type DeliveryRepo struct {
	*BaseDocumentRepo[*delivery.Delivery]
	lineCols []string
}

// NewDeliveryRepo creates a new delivery repository.
func NewDeliveryRepo(txManager *postgres.TxManager) *DeliveryRepo {
	return &DeliveryRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			deliveriesTable,
			postgres.ExtractDBColumns[delivery.Delivery](),
			func() *delivery.Delivery { return &delivery.Delivery{} },
		),
		lineCols: postgres.ExtractDBColumns[delivery.DeliveryItem](),
	}
}

// SaveItems replaces the table part.
func (r *DeliveryRepo) SaveItems(ctx context.Context, deliveryID id.ID, items []delivery.DeliveryItem) error {
	columns := append(append([]string{}, r.lineCols...), "document_id")
	return r.saveLines(ctx, deliveryLinesTable, deliveryID, columns, lineRows(items, columns, deliveryID))
}

// GetItems retrieves the table part ordered by line number.
func (r *DeliveryRepo) GetItems(ctx context.Context, deliveryID id.ID) ([]delivery.DeliveryItem, error) {
	q := r.Builder().
		Select(r.lineCols...).
		From(deliveryLinesTable).
		Where(squirrel.Eq{"document_id": deliveryID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []delivery.DeliveryItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// List retrieves delivery headers with filtering, newest first.
func (r *DeliveryRepo) List(ctx context.Context, filter delivery.ListFilter) ([]*delivery.Delivery, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	q = q.OrderBy("date DESC", "number DESC")

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

	var docs []*delivery.Delivery
	if err := pgxscan.Select(ctx, r.querier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}

	return docs, nil
}

// Ensure interface compliance.
var _ delivery.Repository = (*DeliveryRepo)(nil)
