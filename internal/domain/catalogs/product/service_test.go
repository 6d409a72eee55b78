package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/domain"
	"bevstock/internal/domain/catalogs/unit"
	"bevstock/pkg/numerator"
)

// passthroughTx runs the function without a real transaction.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeProductRepo implements only the methods the tests exercise.
type fakeProductRepo struct {
	domain.CatalogRepository[*Product]
	products map[id.ID]*Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[id.ID]*Product)}
}

func (f *fakeProductRepo) Create(ctx context.Context, p *Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) GetByID(ctx context.Context, pid id.ID) (*Product, error) {
	p, ok := f.products[pid]
	if !ok {
		return nil, apperror.NewNotFound("product", pid.String())
	}
	return p, nil
}

func (f *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	for _, p := range f.products {
		if p.SKU != nil && *p.SKU == sku {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("product", sku)
}

func (f *fakeProductRepo) Update(ctx context.Context, p *Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	for _, p := range f.products {
		if p.Barcode != nil && *p.Barcode == barcode {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("product", barcode)
}

func (f *fakeProductRepo) GetForUpdate(ctx context.Context, pid id.ID) (*Product, error) {
	return f.GetByID(ctx, pid)
}

func (f *fakeProductRepo) ListLowStock(ctx context.Context) ([]*Product, error) {
	var out []*Product
	for _, p := range f.products {
		if p.IsActive && p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeUnitRows struct {
	rows map[id.ID]*ProductUnit
}

func newFakeUnitRows() *fakeUnitRows {
	return &fakeUnitRows{rows: make(map[id.ID]*ProductUnit)}
}

func (f *fakeUnitRows) CreateUnit(ctx context.Context, pu *ProductUnit) error {
	f.rows[pu.ID] = pu
	return nil
}

func (f *fakeUnitRows) UpdateUnit(ctx context.Context, pu *ProductUnit) error {
	f.rows[pu.ID] = pu
	return nil
}

func (f *fakeUnitRows) DeleteUnit(ctx context.Context, rowID id.ID) error {
	delete(f.rows, rowID)
	return nil
}

func (f *fakeUnitRows) GetUnit(ctx context.Context, rowID id.ID) (*ProductUnit, error) {
	pu, ok := f.rows[rowID]
	if !ok {
		return nil, apperror.NewNotFound("product_unit", rowID.String())
	}
	return pu, nil
}

func (f *fakeUnitRows) FindUnit(ctx context.Context, productID, unitID id.ID) (*ProductUnit, error) {
	for _, pu := range f.rows {
		if pu.ProductID == productID && pu.UnitID == unitID {
			return pu, nil
		}
	}
	return nil, apperror.NewNotFound("product_unit", unitID.String())
}

func (f *fakeUnitRows) ListUnits(ctx context.Context, productID id.ID) ([]*ProductUnit, error) {
	var out []*ProductUnit
	for _, pu := range f.rows {
		if pu.ProductID == productID {
			out = append(out, pu)
		}
	}
	return out, nil
}

func (f *fakeUnitRows) ClearDefault(ctx context.Context, productID id.ID) error {
	for _, pu := range f.rows {
		if pu.ProductID == productID {
			pu.IsDefault = false
		}
	}
	return nil
}

// fakeUnits is an in-memory unit graph for the resolver.
type fakeUnits struct {
	units map[id.ID]*unit.Unit
	edges map[id.ID]*unit.Conversion
}

func newFakeUnits() *fakeUnits {
	return &fakeUnits{
		units: make(map[id.ID]*unit.Unit),
		edges: make(map[id.ID]*unit.Conversion),
	}
}

func (f *fakeUnits) GetUnit(ctx context.Context, unitID id.ID) (*unit.Unit, error) {
	u, ok := f.units[unitID]
	if !ok {
		return nil, apperror.NewNotFound("unit", unitID.String())
	}
	return u, nil
}

func (f *fakeUnits) ActiveConversionFrom(ctx context.Context, fromUnitID id.ID) (*unit.Conversion, error) {
	e, ok := f.edges[fromUnitID]
	if !ok {
		return nil, apperror.NewNotFound("conversion", fromUnitID.String())
	}
	return e, nil
}

type fixture struct {
	svc      *Service
	repo     *fakeProductRepo
	unitRows *fakeUnitRows
	units    *fakeUnits

	piece  *unit.Unit
	pack12 *unit.Unit
	liter  *unit.Unit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	units := newFakeUnits()
	piece := unit.NewBaseUnit("UN-001", "Piece", "pcs", unit.TypePiece)
	pack12 := unit.NewUnit("UN-002", "12-Pack", "pk12", unit.TypePack)
	liter := unit.NewBaseUnit("UN-003", "Liter", "l", unit.TypeVolume)
	units.units[piece.ID] = piece
	units.units[pack12.ID] = pack12
	units.units[liter.ID] = liter
	units.edges[pack12.ID] = unit.NewConversion(pack12.ID, piece.ID, decimal.NewFromInt(12))

	repo := newFakeProductRepo()
	unitRows := newFakeUnitRows()
	svc := NewService(repo, unitRows, units, passthroughTx{}, numerator.New(nil))

	return &fixture{
		svc:      svc,
		repo:     repo,
		unitRows: unitRows,
		units:    units,
		piece:    piece,
		pack12:   pack12,
		liter:    liter,
	}
}

func (fx *fixture) createProduct(t *testing.T, ctx context.Context) *Product {
	t.Helper()
	p := NewProduct("PR-001", "Cola 0.5l", fx.piece.ID)
	p.Price = decimal.RequireFromString("1.50")
	p.WholesalePrice = decimal.RequireFromString("1.20")
	p.CostPrice = decimal.RequireFromString("0.90")
	require.NoError(t, fx.svc.Create(ctx, p))
	return p
}

func TestCreate_SelfHealsBaseUnitRow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p := fx.createProduct(t, ctx)

	row, err := fx.unitRows.FindUnit(ctx, p.ID, fx.piece.ID)
	require.NoError(t, err)
	assert.True(t, row.IsDefault)
}

func TestCreate_RejectsNonBaseUnit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p := NewProduct("PR-002", "Cola Case", fx.pack12.ID)
	err := fx.svc.Create(ctx, p)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestAddUnit_RejectsUnconvertible(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.createProduct(t, ctx)

	// liter has no path to piece
	err := fx.svc.AddUnit(ctx, NewProductUnit(p.ID, fx.liter.ID))
	require.Error(t, err)
	assert.True(t, apperror.IsNoConversionPath(err))
}

func TestSetDefaultUnit_SingleDefault(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.createProduct(t, ctx)

	require.NoError(t, fx.svc.AddUnit(ctx, NewProductUnit(p.ID, fx.pack12.ID)))
	require.NoError(t, fx.svc.SetDefaultUnit(ctx, p.ID, fx.pack12.ID))

	rows, err := fx.svc.Units(ctx, p.ID)
	require.NoError(t, err)
	defaults := 0
	for _, row := range rows {
		if row.IsDefault {
			defaults++
			assert.Equal(t, fx.pack12.ID, row.UnitID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestPriceInUnit_ConvertedAndOverride(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.createProduct(t, ctx)

	require.NoError(t, fx.svc.AddUnit(ctx, NewProductUnit(p.ID, fx.pack12.ID)))

	// converted: 1.50 * 12 = 18.00
	price, err := fx.svc.PriceInUnit(ctx, p.ID, fx.pack12.ID, PriceStandard)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("18.00")), "got %s", price)

	// a case discount overrides the converted price
	row, err := fx.unitRows.FindUnit(ctx, p.ID, fx.pack12.ID)
	require.NoError(t, err)
	override := decimal.RequireFromString("16.90")
	row.PriceOverride = &override
	require.NoError(t, fx.svc.UpdateUnit(ctx, row))

	price, err = fx.svc.PriceInUnit(ctx, p.ID, fx.pack12.ID, PriceStandard)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("16.90")), "got %s", price)

	// wholesale mode still converts, no wholesale override is set
	price, err = fx.svc.PriceInUnit(ctx, p.ID, fx.pack12.ID, PriceWholesale)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("14.40")), "got %s", price)
}

func TestStockInUnit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.createProduct(t, ctx)
	p.StockQuantity = decimal.NewFromInt(30)

	qty, err := fx.svc.StockInUnit(ctx, p.ID, fx.pack12.ID)
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("2.5")), "got %s", qty)
}

func TestRemoveUnit_GuardsBaseRow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.createProduct(t, ctx)

	baseRow, err := fx.unitRows.FindUnit(ctx, p.ID, fx.piece.ID)
	require.NoError(t, err)

	err = fx.svc.RemoveUnit(ctx, baseRow.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestFindByBarcode(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.createProduct(t, ctx)
	barcode := "4600000000017"
	p.Barcode = &barcode

	found, err := fx.svc.FindByBarcode(ctx, barcode)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = fx.svc.FindByBarcode(ctx, "0000000000000")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdate_BackfillsNewBaseUnitRow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	p := fx.createProduct(t, ctx)

	p.BaseUnitID = fx.liter.ID
	require.NoError(t, fx.svc.Update(ctx, p))

	// the new base unit gains a row, the old default stays
	row, err := fx.unitRows.FindUnit(ctx, p.ID, fx.liter.ID)
	require.NoError(t, err)
	assert.False(t, row.IsDefault)

	pieceRow, err := fx.unitRows.FindUnit(ctx, p.ID, fx.piece.ID)
	require.NoError(t, err)
	assert.True(t, pieceRow.IsDefault)
}
