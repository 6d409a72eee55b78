package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"bevstock/internal/core/entity"
	"bevstock/internal/core/id"
	"bevstock/internal/core/types"
)

type mockCatalog struct {
	entity.Catalog
	Symbol string      `db:"symbol" json:"symbol"`
	Price  types.Money `db:"price" json:"price"`
	Hidden string      `db:"-" json:"hidden"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expected := []string{
		"id", "deletion_mark", "version", "attributes",
		"code", "name", "parent_id", "is_folder",
		"symbol", "price",
	}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.NotContains(t, cols, "-")
}

func TestStructToMap(t *testing.T) {
	cat := mockCatalog{
		Catalog: entity.Catalog{
			BaseCatalog: entity.BaseCatalog{
				BaseEntity: entity.BaseEntity{
					ID:           id.New(),
					DeletionMark: true,
					Version:      5,
				},
			},
			Code: "UN-001",
			Name: "Piece",
		},
		Symbol: "pcs",
		Price:  decimal.RequireFromString("1.18"),
		Hidden: "not persisted",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "UN-001", m["code"])
	assert.Equal(t, "Piece", m["name"])
	assert.Equal(t, "pcs", m["symbol"])
	assert.Equal(t, cat.Price, m["price"])
	assert.NotContains(t, m, "-")
}

func TestStructToMap_PointerAndNonStruct(t *testing.T) {
	cat := &mockCatalog{Symbol: "l"}
	m := StructToMap(cat)
	assert.Equal(t, "l", m["symbol"])

	assert.Nil(t, StructToMap(42))
}
