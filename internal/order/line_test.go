package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
)

func testProducts() []catalog.Product {
	coffee := catalog.NewProduct("A", 1, 10, "Kaffee 1kg", "Kaffee", "kg", 1, 12)
	coffee.Category = catalog.Food
	milk := catalog.NewProduct("A", 2, 11, "Milch 1l", "Milch", "l", 10, 15)
	milk.Category = catalog.Beverages
	cups := catalog.NewProduct("B", 3, 12, "Becher", "Becher", "Stk", 100, 5)
	return []catalog.Product{coffee, milk, cups}
}

func TestNewLine(t *testing.T) {
	products := testProducts()

	l, ok := NewLine(products, 1, 3)
	require.True(t, ok)
	assert.Equal(t, 1, l.Index)
	assert.InDelta(t, 1.5, l.UnitPrice, 1e-9)
	assert.InDelta(t, 4.5, l.Value(), 1e-9)

	_, ok = NewLine(products, 3, 1)
	assert.False(t, ok)
	_, ok = NewLine(products, -1, 1)
	assert.False(t, ok)
}

func TestInvalidate_CopiesSnapshot(t *testing.T) {
	products := testProducts()
	l := Line{Index: 0, Amount: 2, UnitPrice: 12}

	got := l.Invalidate(&products[0])
	products[0].InternalName = "mutated"

	assert.True(t, got.Invalid)
	assert.Equal(t, -1, got.Index)
	assert.Equal(t, 2, got.Amount)
	assert.InDelta(t, 12, got.UnitPrice, 1e-9)
	require.NotNil(t, got.Product)
	assert.Equal(t, "Kaffee", got.Product.InternalName)
}

func TestResolve(t *testing.T) {
	products := testProducts()
	snapshot := catalog.Product{SupplierProductNumber: 99, Supplier: "C", InternalName: "Alt"}
	lines := []Line{
		{Index: 2, Amount: 1},
		{Index: -1, Amount: 4, Invalid: true, Product: &snapshot},
		{Index: 7, Amount: 1},
	}

	got := Resolve(lines, products)

	require.NotNil(t, got[0].Product)
	assert.Equal(t, "Becher", got[0].Product.InternalName)
	assert.Equal(t, "Alt", got[1].Product.InternalName)
	assert.Nil(t, got[2].Product)
	assert.Nil(t, lines[0].Product, "input untouched")
}

func TestAggregate_GroupsByIdentity(t *testing.T) {
	products := testProducts()
	lines := Resolve([]Line{
		{Index: 0, Amount: 2, UnitPrice: 12},
		{Index: 1, Amount: 1, UnitPrice: 1.5},
		{Index: 0, Amount: 1, UnitPrice: 15},
	}, products)

	totals := Aggregate(lines)

	require.Len(t, totals, 2)
	assert.Equal(t, 1, totals[0].Line.Product.SupplierProductNumber)
	assert.Equal(t, 3, totals[0].TotalAmount)
	assert.InDelta(t, 39, totals[0].TotalValue, 1e-9)
	assert.InDelta(t, 13, totals[0].AverageUnitPrice(), 1e-9)
	assert.Equal(t, 0.0, Total{}.AverageUnitPrice())
}

func TestTallyCategories(t *testing.T) {
	products := testProducts()
	lines := Resolve([]Line{
		{Index: 0, Amount: 2, UnitPrice: 12},
		{Index: 1, Amount: 4, UnitPrice: 1.5},
		{Index: 2, Amount: 10, UnitPrice: 0.05},
	}, products)

	tally := TallyCategories(lines)

	assert.Len(t, tally, 2)
	assert.InDelta(t, 24, tally[catalog.Food], 1e-9)
	assert.InDelta(t, 6, tally[catalog.Beverages], 1e-9)
	assert.Equal(t, []catalog.Category{catalog.Food, catalog.Beverages}, SortedCategories(tally))
}
