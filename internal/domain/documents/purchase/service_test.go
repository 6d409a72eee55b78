package purchase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/supplier"
	"bevstock/internal/domain/catalogs/taxclass"
	"bevstock/internal/domain/catalogs/unit"
	"bevstock/internal/domain/lineengine"
	"bevstock/pkg/numerator"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	docs  map[id.ID]*PurchaseOrder
	items map[id.ID][]OrderItem
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[id.ID]*PurchaseOrder), items: make(map[id.ID][]OrderItem)}
}

func (f *fakeRepo) Create(ctx context.Context, doc *PurchaseOrder) error { f.docs[doc.ID] = doc; return nil }
func (f *fakeRepo) Update(ctx context.Context, doc *PurchaseOrder) error { f.docs[doc.ID] = doc; return nil }

func (f *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	doc, ok := f.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("purchase_order", docID.String())
	}
	return doc, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	return f.GetByID(ctx, docID)
}

func (f *fakeRepo) GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error) {
	for _, doc := range f.docs {
		if doc.Number == number {
			return doc, nil
		}
	}
	return nil, apperror.NewNotFound("purchase_order", number)
}

func (f *fakeRepo) SaveItems(ctx context.Context, orderID id.ID, items []OrderItem) error {
	f.items[orderID] = items
	return nil
}

func (f *fakeRepo) GetItems(ctx context.Context, orderID id.ID) ([]OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]*PurchaseOrder, error) {
	var out []*PurchaseOrder
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

type fakeProducts struct {
	byID map[id.ID]*product.Product
}

func (f *fakeProducts) GetByID(ctx context.Context, pid id.ID) (*product.Product, error) {
	p, ok := f.byID[pid]
	if !ok {
		return nil, apperror.NewNotFound("product", pid.String())
	}
	return p, nil
}

type fakeTaxes struct {
	byID map[id.ID]*taxclass.TaxClass
}

func (f *fakeTaxes) GetByID(ctx context.Context, tid id.ID) (*taxclass.TaxClass, error) {
	tc, ok := f.byID[tid]
	if !ok {
		return nil, apperror.NewNotFound("tax_class", tid.String())
	}
	return tc, nil
}

type fakeSuppliers struct {
	byID map[id.ID]*supplier.Supplier
}

func (f *fakeSuppliers) GetByID(ctx context.Context, sid id.ID) (*supplier.Supplier, error) {
	s, ok := f.byID[sid]
	if !ok {
		return nil, apperror.NewNotFound("supplier", sid.String())
	}
	return s, nil
}

type fakeGraph struct {
	units map[id.ID]*unit.Unit
	edges map[id.ID]*unit.Conversion
}

func (f *fakeGraph) GetUnit(ctx context.Context, unitID id.ID) (*unit.Unit, error) {
	u, ok := f.units[unitID]
	if !ok {
		return nil, apperror.NewNotFound("unit", unitID.String())
	}
	return u, nil
}

func (f *fakeGraph) ActiveConversionFrom(ctx context.Context, fromUnitID id.ID) (*unit.Conversion, error) {
	e, ok := f.edges[fromUnitID]
	if !ok {
		return nil, apperror.NewNotFound("conversion", fromUnitID.String())
	}
	return e, nil
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	cola    *product.Product
	piece   *unit.Unit
	pack12  *unit.Unit
	brewery *supplier.Supplier
	dormant *supplier.Supplier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	piece := unit.NewBaseUnit("UN-001", "Piece", "pcs", unit.TypePiece)
	pack12 := unit.NewUnit("UN-002", "12-Pack", "pk12", unit.TypePack)
	graph := &fakeGraph{
		units: map[id.ID]*unit.Unit{piece.ID: piece, pack12.ID: pack12},
		edges: map[id.ID]*unit.Conversion{
			pack12.ID: unit.NewConversion(pack12.ID, piece.ID, decimal.NewFromInt(12)),
		},
	}

	vat := taxclass.NewTaxClass("TAX-001", "VAT 18", decimal.NewFromInt(18))
	cola := product.NewProduct("PR-001", "Cola 0.5l", piece.ID)
	cola.CostPrice = decimal.RequireFromString("0.90")
	cola.TaxClassID = &vat.ID

	brewery := supplier.NewSupplier("SUP-001", "Brauerei Nord")
	dormant := supplier.NewSupplier("SUP-002", "Altes Lager GmbH")
	dormant.IsActive = false

	repo := newFakeRepo()
	svc := NewService(repo,
		&fakeProducts{byID: map[id.ID]*product.Product{cola.ID: cola}},
		&fakeTaxes{byID: map[id.ID]*taxclass.TaxClass{vat.ID: vat}},
		&fakeSuppliers{byID: map[id.ID]*supplier.Supplier{brewery.ID: brewery, dormant.ID: dormant}},
		lineengine.NewEngine(unit.NewResolver(graph)),
		numerator.New(nil), passthroughTx{})

	return &fixture{svc: svc, repo: repo, cola: cola, piece: piece, pack12: pack12,
		brewery: brewery, dormant: dormant}
}

func (fx *fixture) confirmedOrder(t *testing.T, ctx context.Context) *PurchaseOrder {
	t.Helper()
	doc := NewPurchaseOrder(fx.brewery.ID)
	doc.Number = "PO-2026-00001"
	require.NoError(t, fx.svc.AddItem(ctx, doc, fx.cola.ID, fx.pack12.ID,
		decimal.NewFromInt(10), decimal.RequireFromString("10.80")))
	require.NoError(t, fx.svc.Create(ctx, doc))
	require.NoError(t, fx.svc.SetStatus(ctx, doc.ID, StatusSent))
	require.NoError(t, fx.svc.SetStatus(ctx, doc.ID, StatusConfirmed))
	return doc
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusSent))
	assert.True(t, CanTransition(StatusSent, StatusConfirmed))
	assert.True(t, CanTransition(StatusConfirmed, StatusPartiallyDelivered))
	assert.True(t, CanTransition(StatusPartiallyDelivered, StatusDelivered))

	assert.False(t, CanTransition(StatusDraft, StatusDelivered))
	assert.False(t, CanTransition(StatusDelivered, StatusDraft))
	assert.False(t, CanTransition(StatusCancelled, StatusSent))
	assert.False(t, CanTransition(StatusPartiallyDelivered, StatusCancelled))
}

func TestAddItem_Totals(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc := NewPurchaseOrder(fx.brewery.ID)
	require.NoError(t, fx.svc.AddItem(ctx, doc, fx.cola.ID, fx.pack12.ID,
		decimal.NewFromInt(10), decimal.RequireFromString("11.80")))

	require.Len(t, doc.Items, 1)
	item := doc.Items[0]
	assert.True(t, item.BaseQuantity.Equal(decimal.NewFromInt(120)), "base %s", item.BaseQuantity)
	assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("118.00")), "total %s", item.LineTotal)
	// tax-inclusive settlement at 18%
	assert.True(t, item.TaxAmount.Equal(decimal.RequireFromString("18.00")), "tax %s", item.TaxAmount)
	assert.True(t, item.NetAmount.Equal(decimal.RequireFromString("100.00")), "net %s", item.NetAmount)
	assert.True(t, doc.TotalAmount.Equal(item.LineTotal))
}

func TestSetStatus_RejectsInvalidTransition(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc := NewPurchaseOrder(fx.brewery.ID)
	doc.Number = "PO-2026-00002"
	require.NoError(t, fx.svc.AddItem(ctx, doc, fx.cola.ID, fx.piece.ID,
		decimal.NewFromInt(10), decimal.NewFromInt(1)))
	require.NoError(t, fx.svc.Create(ctx, doc))

	err := fx.svc.SetStatus(ctx, doc.ID, StatusDelivered)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TRANSITION", appErr.Code)
}

func TestRegisterReceipt_RollsStatusForward(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	doc := fx.confirmedOrder(t, ctx)
	lineID := fx.repo.items[doc.ID][0].LineID

	// partial receipt
	require.NoError(t, fx.svc.RegisterReceipt(ctx, doc.ID, map[id.ID]types.Quantity{
		lineID: decimal.NewFromInt(4),
	}))
	stored, err := fx.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyDelivered, stored.Status)
	assert.True(t, stored.Items[0].ReceivedQuantity.Equal(decimal.NewFromInt(4)))

	// remainder arrives
	require.NoError(t, fx.svc.RegisterReceipt(ctx, doc.ID, map[id.ID]types.Quantity{
		lineID: decimal.NewFromInt(6),
	}))
	stored, err = fx.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, stored.Status)
	assert.True(t, stored.Items[0].IsFullyReceived())
}

func TestRegisterReceipt_RequiresReceivableStatus(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc := NewPurchaseOrder(fx.brewery.ID)
	doc.Number = "PO-2026-00003"
	require.NoError(t, fx.svc.AddItem(ctx, doc, fx.cola.ID, fx.piece.ID,
		decimal.NewFromInt(10), decimal.NewFromInt(1)))
	require.NoError(t, fx.svc.Create(ctx, doc))

	err := fx.svc.RegisterReceipt(ctx, doc.ID, map[id.ID]types.Quantity{
		fx.repo.items[doc.ID][0].LineID: decimal.NewFromInt(1),
	})
	require.Error(t, err)
}

func TestAddItem_OnlyOnDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	doc := fx.confirmedOrder(t, ctx)

	stored, err := fx.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	err = fx.svc.AddItem(ctx, stored, fx.cola.ID, fx.piece.ID,
		decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.Error(t, err)
}

func TestCreate_RequiresKnownActiveSupplier(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	doc := NewPurchaseOrder(fx.dormant.ID)
	doc.Number = "PO-2026-00009"
	require.NoError(t, fx.svc.AddItem(ctx, doc, fx.cola.ID, fx.piece.ID,
		decimal.NewFromInt(10), decimal.NewFromInt(1)))

	err := fx.svc.Create(ctx, doc)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "SUPPLIER_INACTIVE", appErr.Code)

	unknown := NewPurchaseOrder(id.New())
	unknown.Number = "PO-2026-00010"
	require.NoError(t, fx.svc.AddItem(ctx, unknown, fx.cola.ID, fx.piece.ID,
		decimal.NewFromInt(10), decimal.NewFromInt(1)))
	err = fx.svc.Create(ctx, unknown)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestNewPurchaseOrder_RequiresSupplier(t *testing.T) {
	doc := NewPurchaseOrder(id.Nil())
	doc.Number = "PO-2026-00011"

	err := doc.Validate(context.Background())
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}
