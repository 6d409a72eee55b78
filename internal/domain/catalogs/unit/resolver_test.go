package unit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/id"
)

// fakeSource is an in-memory unit graph.
type fakeSource struct {
	units map[id.ID]*Unit
	edges map[id.ID]*Conversion // keyed by FromUnitID
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		units: make(map[id.ID]*Unit),
		edges: make(map[id.ID]*Conversion),
	}
}

func (f *fakeSource) addUnit(u *Unit) *Unit {
	f.units[u.ID] = u
	return u
}

func (f *fakeSource) addEdge(from, to id.ID, factor string) {
	f.edges[from] = NewConversion(from, to, decimal.RequireFromString(factor))
}

func (f *fakeSource) GetUnit(ctx context.Context, unitID id.ID) (*Unit, error) {
	u, ok := f.units[unitID]
	if !ok {
		return nil, apperror.NewNotFound("unit", unitID.String())
	}
	return u, nil
}

func (f *fakeSource) ActiveConversionFrom(ctx context.Context, fromUnitID id.ID) (*Conversion, error) {
	e, ok := f.edges[fromUnitID]
	if !ok {
		return nil, apperror.NewNotFound("conversion", fromUnitID.String())
	}
	return e, nil
}

// beverageGraph builds the typical graph: piece (base), 12-pack and
// six-pack resolving into piece, plus liter (base) with no relation to piece.
func beverageGraph(t *testing.T) (*fakeSource, map[string]id.ID) {
	t.Helper()

	src := newFakeSource()
	piece := src.addUnit(NewBaseUnit("UN-001", "Piece", "pcs", TypePiece))
	pack12 := src.addUnit(NewUnit("UN-002", "12-Pack", "pk12", TypePack))
	pack6 := src.addUnit(NewUnit("UN-003", "Six-Pack", "pk6", TypePack))
	liter := src.addUnit(NewBaseUnit("UN-004", "Liter", "l", TypeVolume))

	src.addEdge(pack12.ID, piece.ID, "12")
	src.addEdge(pack6.ID, piece.ID, "6")

	return src, map[string]id.ID{
		"piece":  piece.ID,
		"pack12": pack12.ID,
		"pack6":  pack6.ID,
		"liter":  liter.ID,
	}
}

func TestQuantityFactor_SameUnit(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)

	f, err := r.QuantityFactor(context.Background(), ids["piece"], ids["piece"])
	require.NoError(t, err)
	assert.True(t, f.Equal(decimal.NewFromInt(1)))
}

func TestQuantityFactor_ToBase(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)
	ctx := context.Background()

	// 2 twelve-packs are 24 pieces
	f, err := r.QuantityFactor(ctx, ids["pack12"], ids["piece"])
	require.NoError(t, err)
	assert.True(t, f.Equal(decimal.NewFromInt(12)), "got %s", f)

	qty, err := r.ConvertQuantity(ctx, decimal.NewFromInt(2), ids["pack12"], ids["piece"])
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(24)), "got %s", qty)
}

func TestQuantityFactor_FromBase(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)

	// 30 pieces are 2.5 twelve-packs
	qty, err := r.ConvertQuantity(context.Background(), decimal.NewFromInt(30), ids["piece"], ids["pack12"])
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("2.5")), "got %s", qty)
}

func TestConvertQuantity_ExactDivision(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)
	ctx := context.Background()

	// exactly divisible base quantities convert without residue
	qty, err := r.ConvertQuantity(ctx, decimal.NewFromInt(90), ids["piece"], ids["pack6"])
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(15)), "got %s", qty)

	// through the shared base: 9 six-packs are 4.5 twelve-packs
	qty, err = r.ConvertQuantity(ctx, decimal.NewFromInt(9), ids["pack6"], ids["pack12"])
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("4.5")), "got %s", qty)
}

func TestQuantityFactor_ThroughSharedBase(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)

	// one 12-pack is two six-packs
	f, err := r.QuantityFactor(context.Background(), ids["pack12"], ids["pack6"])
	require.NoError(t, err)
	assert.True(t, f.Equal(decimal.NewFromInt(2)), "got %s", f)
}

func TestQuantityFactor_NoPath(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)
	ctx := context.Background()

	// liter and piece share no base
	_, err := r.QuantityFactor(ctx, ids["pack12"], ids["liter"])
	require.Error(t, err)
	assert.True(t, apperror.IsNoConversionPath(err))

	// a non-base unit without an edge is unreachable too
	orphan := src.addUnit(NewUnit("UN-005", "Crate", "cr", TypePack))
	_, err = r.QuantityFactor(ctx, orphan.ID, ids["piece"])
	require.Error(t, err)
	assert.True(t, apperror.IsNoConversionPath(err))
}

func TestQuantityFactor_RoundTrip(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)
	ctx := context.Background()

	qty := decimal.RequireFromString("7.3")
	there, err := r.ConvertQuantity(ctx, qty, ids["pack12"], ids["pack6"])
	require.NoError(t, err)
	back, err := r.ConvertQuantity(ctx, there, ids["pack6"], ids["pack12"])
	require.NoError(t, err)

	tolerance := decimal.RequireFromString("0.000001")
	assert.True(t, back.Sub(qty).Abs().LessThanOrEqual(tolerance), "round trip drifted: %s", back)
}

func TestPriceFactor_InverseOfQuantity(t *testing.T) {
	src, ids := beverageGraph(t)
	r := NewResolver(src)
	ctx := context.Background()

	// a piece price of 1.50 makes a 12-pack price of 18.00
	price, err := r.ConvertPrice(ctx, decimal.RequireFromString("1.50"), ids["piece"], ids["pack12"])
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("18.00")), "got %s", price)

	// duality: price factor times quantity factor is one
	qf, err := r.QuantityFactor(ctx, ids["pack12"], ids["piece"])
	require.NoError(t, err)
	pf, err := r.PriceFactor(ctx, ids["pack12"], ids["piece"])
	require.NoError(t, err)

	product := qf.Mul(pf)
	tolerance := decimal.RequireFromString("0.000001")
	assert.True(t, product.Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(tolerance), "qf*pf = %s", product)
}

func TestConversionValidate(t *testing.T) {
	ctx := context.Background()
	a, b := id.New(), id.New()

	conv := NewConversion(a, b, decimal.NewFromInt(12))
	require.NoError(t, conv.Validate(ctx))

	conv = NewConversion(a, a, decimal.NewFromInt(12))
	assert.Error(t, conv.Validate(ctx))

	conv = NewConversion(a, b, decimal.Zero)
	assert.Error(t, conv.Validate(ctx))

	conv = NewConversion(a, b, decimal.NewFromInt(-3))
	assert.Error(t, conv.Validate(ctx))
}
