package lineengine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/unit"
)

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
	engine *Engine
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
	cola.Price = decimal.RequireFromString("1000")
	cola.CostPrice = decimal.RequireFromString("0.90")

	return &fixture{
		engine: NewEngine(unit.NewResolver(graph)),
		cola:   cola,
		piece:  piece,
		pack12: pack12,
		liter:  liter,
	}
}

func TestBuildLine_BaseUnit(t *testing.T) {
	fx := newFixture(t)

	line, err := fx.engine.BuildLine(context.Background(), fx.cola, fx.piece.ID,
		decimal.NewFromInt(3), decimal.RequireFromString("1.50"))
	require.NoError(t, err)

	assert.True(t, line.BaseQuantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("4.50")), "got %s", line.LineTotal)
	assert.True(t, line.UnitCost.Equal(decimal.RequireFromString("0.90")))
	assert.True(t, line.TotalCost.Equal(decimal.RequireFromString("2.70")), "got %s", line.TotalCost)
}

func TestBuildLine_PackDeductsBaseUnits(t *testing.T) {
	fx := newFixture(t)

	// 10 twelve-packs at pack price 12000: 120 base units deducted,
	// line total 120000
	line, err := fx.engine.BuildLine(context.Background(), fx.cola, fx.pack12.ID,
		decimal.NewFromInt(10), decimal.NewFromInt(12000))
	require.NoError(t, err)

	assert.True(t, line.BaseQuantity.Equal(decimal.NewFromInt(120)), "got %s", line.BaseQuantity)
	assert.True(t, line.LineTotal.Equal(decimal.NewFromInt(120000)), "got %s", line.LineTotal)
	// frozen cost per pack: 0.90 * 12 = 10.80
	assert.True(t, line.UnitCost.Equal(decimal.RequireFromString("10.80")), "got %s", line.UnitCost)
}

func TestBuildLine_RejectsUnresolvableUnit(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.engine.BuildLine(context.Background(), fx.cola, fx.liter.ID,
		decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperror.IsNoConversionPath(err))
}

func TestBuildLine_RejectsBadInput(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.engine.BuildLine(ctx, fx.cola, fx.piece.ID, decimal.Zero, decimal.NewFromInt(1))
	assert.Error(t, err)

	_, err = fx.engine.BuildLine(ctx, fx.cola, fx.piece.ID, decimal.NewFromInt(-2), decimal.NewFromInt(1))
	assert.Error(t, err)

	_, err = fx.engine.BuildLine(ctx, fx.cola, fx.piece.ID, decimal.NewFromInt(1), decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestFrozenUnitCost_SurvivesCostChange(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	line, err := fx.engine.BuildLine(ctx, fx.cola, fx.pack12.ID,
		decimal.NewFromInt(1), decimal.NewFromInt(18))
	require.NoError(t, err)
	frozen := line.UnitCost

	// cost change after the line exists does not touch it
	fx.cola.CostPrice = decimal.RequireFromString("2.00")
	assert.True(t, line.UnitCost.Equal(frozen))

	// a new line picks up the new cost
	fresh, err := fx.engine.BuildLine(ctx, fx.cola, fx.pack12.ID,
		decimal.NewFromInt(1), decimal.NewFromInt(18))
	require.NoError(t, err)
	assert.True(t, fresh.UnitCost.Equal(decimal.RequireFromString("24.00")), "got %s", fresh.UnitCost)
}

func TestSettle_TaxInclusive(t *testing.T) {
	rate := decimal.NewFromInt(18)
	s := Settle(decimal.NewFromInt(118), &rate)
	assert.True(t, s.Tax.Equal(decimal.RequireFromString("18.00")), "tax %s", s.Tax)
	assert.True(t, s.Net.Equal(decimal.RequireFromString("100.00")), "net %s", s.Net)
}

func TestSettle_RoundsHalfUp(t *testing.T) {
	rate := decimal.NewFromInt(18)
	s := Settle(decimal.RequireFromString("100.00"), &rate)
	// 100 * 18/118 = 15.2542... -> 15.25; net 84.7457... -> 84.75
	assert.True(t, s.Tax.Equal(decimal.RequireFromString("15.25")), "tax %s", s.Tax)
	assert.True(t, s.Net.Equal(decimal.RequireFromString("84.75")), "net %s", s.Net)
}

func TestSettle_NoRate(t *testing.T) {
	s := Settle(decimal.NewFromInt(118), nil)
	assert.True(t, s.Tax.IsZero())
	assert.True(t, s.Net.Equal(decimal.NewFromInt(118)))

	zero := decimal.Zero
	s = Settle(decimal.NewFromInt(50), &zero)
	assert.True(t, s.Tax.IsZero())
	assert.True(t, s.Net.Equal(decimal.NewFromInt(50)))
}
