package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bevstock/internal/core/id"
	"bevstock/internal/domain/documents/sale"
	"bevstock/internal/infrastructure/storage/postgres"
)

const (
	salesTable        = "doc_sales"
	saleLinesTable    = "doc_sale_lines"
	salePaymentsTable = "doc_sale_payments"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
	lineCols    []string
	paymentCols []string
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesTable,
			postgres.ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return &sale.Sale{} },
		),
		lineCols:    postgres.ExtractDBColumns[sale.SaleItem](),
		paymentCols: postgres.ExtractDBColumns[sale.Payment](),
	}
}

// SaveItems replaces the table part.
func (r *SaleRepo) SaveItems(ctx context.Context, saleID id.ID, items []sale.SaleItem) error {
	columns := append(append([]string{}, r.lineCols...), "document_id")
	return r.saveLines(ctx, saleLinesTable, saleID, columns, lineRows(items, columns, saleID))
}

// GetItems retrieves the table part ordered by line number.
func (r *SaleRepo) GetItems(ctx context.Context, saleID id.ID) ([]sale.SaleItem, error) {
	q := r.Builder().
		Select(r.lineCols...).
		From(saleLinesTable).
		Where(squirrel.Eq{"document_id": saleID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []sale.SaleItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// AddPayment appends one payment row.
func (r *SaleRepo) AddPayment(ctx context.Context, saleID id.ID, payment sale.Payment) error {
	data := postgres.StructToMap(&payment)

	values := make(map[string]any, len(r.paymentCols)+1)
	for _, col := range r.paymentCols {
		if val, ok := data[col]; ok {
			values[col] = val
		}
	}
	values["document_id"] = saleID

	sql, args, err := r.Builder().
		Insert(salePaymentsTable).
		SetMap(values).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// GetPayments retrieves payments ordered by creation time.
func (r *SaleRepo) GetPayments(ctx context.Context, saleID id.ID) ([]sale.Payment, error) {
	q := r.Builder().
		Select(r.paymentCols...).
		From(salePaymentsTable).
		Where(squirrel.Eq{"document_id": saleID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var payments []sale.Payment
	if err := pgxscan.Select(ctx, r.querier(ctx), &payments, sql, args...); err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}

	return payments, nil
}

// List retrieves sale headers with filtering, newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false})

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

	var docs []*sale.Sale
	if err := pgxscan.Select(ctx, r.querier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	return docs, nil
}

// Ensure interface compliance.
var _ sale.Repository = (*SaleRepo)(nil)
