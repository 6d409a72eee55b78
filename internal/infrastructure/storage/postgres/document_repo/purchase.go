package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bevstock/internal/core/id"
	"bevstock/internal/domain/documents/purchase"
	"bevstock/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable     = "doc_purchase_orders"
	purchaseOrderLinesTable = "doc_purchase_order_lines"
)

// PurchaseOrderRepo implements purchase.Repository.
type PurchaseOrderRepo struct {
	*BaseDocumentRepo[*purchase.PurchaseOrder]
	lineCols []string
}

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			purchaseOrdersTable,
			postgres.ExtractDBColumns[purchase.PurchaseOrder](),
			func() *purchase.PurchaseOrder { return &purchase.PurchaseOrder{} },
		),
		lineCols: postgres.ExtractDBColumns[purchase.OrderItem](),
	}
}

// SaveItems replaces the table part.
func (r *PurchaseOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []purchase.OrderItem) error {
	columns := append(append([]string{}, r.lineCols...), "document_id")
	return r.saveLines(ctx, purchaseOrderLinesTable, orderID, columns, lineRows(items, columns, orderID))
}

// GetItems retrieves the table part ordered by line number.
func (r *PurchaseOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]purchase.OrderItem, error) {
	q := r.Builder().
		Select(r.lineCols...).
		From(purchaseOrderLinesTable).
		Where(squirrel.Eq{"document_id": orderID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []purchase.OrderItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// List retrieves order headers with filtering, newest first.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter purchase.ListFilter) ([]*purchase.PurchaseOrder, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
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

	var docs []*purchase.PurchaseOrder
	if err := pgxscan.Select(ctx, r.querier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}

	return docs, nil
}

// Ensure interface compliance.
var _ purchase.Repository = (*PurchaseOrderRepo)(nil)
