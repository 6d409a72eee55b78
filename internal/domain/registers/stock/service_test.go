package stock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/unit"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLedger struct {
	rows      []*entity.StockMovement
	createErr error
}

func (f *fakeLedger) CreateMovement(ctx context.Context, m *entity.StockMovement) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, m)
	return nil
}

func (f *fakeLedger) GetMovement(ctx context.Context, lineID id.ID) (*entity.StockMovement, error) {
	for _, m := range f.rows {
		if m.LineID == lineID {
			return m, nil
		}
	}
	return nil, apperror.NewNotFound("movement", lineID.String())
}

func (f *fakeLedger) ListMovements(ctx context.Context, productID id.ID, filter MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range f.rows {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeLedger) SumMovements(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sum := types.Zero()
	for _, m := range f.rows {
		if m.ProductID == productID {
			sum = sum.Add(m.SignedQuantity())
		}
	}
	return sum, nil
}

type fakeProducts struct {
	byID        map[id.ID]*product.Product
	stockWrites int
	costWrites  int
}

func newFakeProducts(ps ...*product.Product) *fakeProducts {
	f := &fakeProducts{byID: make(map[id.ID]*product.Product)}
	for _, p := range ps {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProducts) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, ok := f.byID[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return p, nil
}

func (f *fakeProducts) UpdateStock(ctx context.Context, productID id.ID, qty types.Quantity) error {
	f.byID[productID].StockQuantity = qty
	f.stockWrites++
	return nil
}

func (f *fakeProducts) UpdateCostPrice(ctx context.Context, productID id.ID, cost types.Money) error {
	f.byID[productID].CostPrice = cost
	f.costWrites++
	return nil
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
	svc      *Service
	ledger   *fakeLedger
	products *fakeProducts

	cola   *product.Product
	piece  *unit.Unit
	pack12 *unit.Unit
	liter  *unit.Unit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	piece := unit.NewBaseUnit("UN-001", "Piece", "pcs", unit.TypePiece)
	pack12 := unit.NewUnit("UN-002", "12-Pack", "pk12", unit.TypePack)
	liter := unit.NewBaseUnit("UN-003", "Liter", "l", unit.TypeVolume)

	graph := &fakeGraph{
		units: map[id.ID]*unit.Unit{piece.ID: piece, pack12.ID: pack12, liter.ID: liter},
		edges: map[id.ID]*unit.Conversion{
			pack12.ID: unit.NewConversion(pack12.ID, piece.ID, decimal.NewFromInt(12)),
		},
	}

	cola := product.NewProduct("PR-001", "Cola 0.5l", piece.ID)
	cola.StockQuantity = decimal.NewFromInt(100)
	cola.CostPrice = decimal.RequireFromString("0.90")

	ledger := &fakeLedger{}
	products := newFakeProducts(cola)
	svc := NewService(ledger, products, unit.NewResolver(graph), passthroughTx{}).
		WithClock(func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) })

	return &fixture{
		svc:      svc,
		ledger:   ledger,
		products: products,
		cola:     cola,
		piece:    piece,
		pack12:   pack12,
		liter:    liter,
	}
}

func TestRecordMovement_InAndOut(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	m, err := fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementIn,
		Quantity:  decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(120)))
	assert.True(t, m.Quantity.Equal(decimal.NewFromInt(20)))

	_, err = fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementOut,
		Quantity:  decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(70)))

	_, err = fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementReturn,
		Quantity:  decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(75)))
}

func TestRecordMovement_ConvertsDisplayUnit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// 2 twelve-packs out deducts 24 pieces
	m, err := fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementOut,
		Quantity:  decimal.NewFromInt(2),
		UnitID:    &fx.pack12.ID,
	})
	require.NoError(t, err)
	assert.True(t, m.Quantity.Equal(decimal.NewFromInt(24)), "got %s", m.Quantity)
	assert.True(t, m.EnteredQuantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(76)))
}

func TestRecordMovement_ClampsOutAtZero(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementOut,
		Quantity:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.True(t, fx.cola.StockQuantity.IsZero(), "got %s", fx.cola.StockQuantity)

	// another out stays at zero
	_, err = fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementOut,
		Quantity:  decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.True(t, fx.cola.StockQuantity.IsZero())
}

func TestRecordMovement_AdjustmentIsSignedDelta(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementAdjustment,
		Quantity:  decimal.NewFromInt(-30),
	})
	require.NoError(t, err)
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(70)))

	// an adjustment below zero is rejected, not clamped
	_, err = fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementAdjustment,
		Quantity:  decimal.NewFromInt(-100),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidMovement, appErr.Code)
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(70)))
}

func TestRecordMovement_Validation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cases := []RecordInput{
		{ProductID: fx.cola.ID, Type: "teleport", Quantity: decimal.NewFromInt(1)},
		{ProductID: fx.cola.ID, Type: entity.MovementIn, Quantity: decimal.Zero},
		{ProductID: fx.cola.ID, Type: entity.MovementOut, Quantity: decimal.NewFromInt(-5)},
		{ProductID: fx.cola.ID, Type: entity.MovementAdjustment, Quantity: decimal.Zero},
		{Type: entity.MovementIn, Quantity: decimal.NewFromInt(1)},
	}
	for _, in := range cases {
		_, err := fx.svc.RecordMovement(ctx, in)
		assert.Error(t, err, "input %+v", in)
	}
	assert.Empty(t, fx.ledger.rows)
}

func TestRecordMovement_DegradedWithoutPath(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// liter has no path to piece: raw quantity is recorded
	m, err := fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementIn,
		Quantity:  decimal.NewFromInt(3),
		UnitID:    &fx.liter.ID,
	})
	require.NoError(t, err)
	assert.True(t, m.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(103)))
}

func TestRecordMovement_LedgerFailureLeavesBalance(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.ledger.createErr = errors.New("insert failed")

	_, err := fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID,
		Type:      entity.MovementOut,
		Quantity:  decimal.NewFromInt(10),
	})
	require.Error(t, err)
	assert.Zero(t, fx.products.stockWrites)
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(100)))
}

func TestUpdateCostPrice_RecordsAuditRow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	newCost := decimal.RequireFromString("1.05")
	require.NoError(t, fx.svc.UpdateCostPrice(ctx, fx.cola.ID, newCost, "DEL-2026-00001", "delivery cost"))

	assert.True(t, fx.cola.CostPrice.Equal(newCost))
	require.Len(t, fx.ledger.rows, 1)
	assert.Equal(t, entity.MovementCostUpdate, fx.ledger.rows[0].Type)
	// cost updates never move the balance
	assert.True(t, fx.cola.StockQuantity.Equal(decimal.NewFromInt(100)))
	assert.Zero(t, fx.products.stockWrites)
}

func TestCheckAvailability(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	err := fx.svc.CheckAvailability(ctx, []Requirement{
		{ProductID: fx.cola.ID, BaseQty: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	err = fx.svc.CheckAvailability(ctx, []Requirement{
		{ProductID: fx.cola.ID, BaseQty: decimal.NewFromInt(101)},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestVerifyBalance_ReplaysLedger(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID, Type: entity.MovementIn, Quantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	_, err = fx.svc.RecordMovement(ctx, RecordInput{
		ProductID: fx.cola.ID, Type: entity.MovementOut, Quantity: decimal.NewFromInt(4),
	})
	require.NoError(t, err)

	ledger, balance, err := fx.svc.VerifyBalance(ctx, fx.cola.ID)
	require.NoError(t, err)
	assert.True(t, ledger.Equal(decimal.NewFromInt(6)))
	assert.True(t, balance.Equal(decimal.NewFromInt(106)))
}
