package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

func productMatch(index int, supplier, internalName string, ranges ...Range) Match {
	m := Match{
		Record: Record{Index: index, Fields: map[string]string{
			FieldInternalName: internalName,
			FieldSupplierName: internalName + " (Lief.)",
			FieldSupplier:     supplier,
		}},
		Score: 0.1 * float64(index),
	}
	if len(ranges) > 0 {
		m.Matches = []FieldMatch{{Key: FieldInternalName, Value: internalName, Ranges: ranges}}
	}
	return m
}

func TestPostProcess_ItemsIsIdentity(t *testing.T) {
	matches := []Match{productMatch(3, "A", "Kaffee", Range{Start: 0, End: 2})}

	got, err := PostProcess(TransformItems, matches, Params{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Index)
	assert.Equal(t, matches[0].Record.Fields, got[0].Fields)

	got[0].Fields[FieldInternalName] = "changed"
	assert.Equal(t, "Kaffee", matches[0].Record.Fields[FieldInternalName], "records are not aliased")
}

func TestPostProcess_ProductsHighlightsMatchedNames(t *testing.T) {
	matches := []Match{productMatch(0, "A", "Coffee", Range{Start: 0, End: 2})}

	got, err := PostProcess(TransformProducts, matches, Params{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "<mark>Cof</mark><span>fee</span>", got[0].Fields[FieldInternalName])
	assert.Equal(t, "Coffee (Lief.)", got[0].Fields[FieldSupplierName], "unmatched field stays raw")
	assert.Equal(t, "A", got[0].Fields[FieldSupplier])
}

func TestPostProcess_ProductsSupplierFilter(t *testing.T) {
	matches := []Match{
		productMatch(0, "A", "Kaffee", Range{Start: 0, End: 1}),
		productMatch(1, "B", "Kakao", Range{Start: 0, End: 1}),
		productMatch(2, "C", "Kandis", Range{Start: 0, End: 1}),
	}

	tests := []struct {
		name      string
		suppliers map[string]struct{}
		want      []int
	}{
		{name: "nil filter keeps all", suppliers: nil, want: []int{0, 1, 2}},
		{name: "selected suppliers", suppliers: SupplierSet("A", "C"), want: []int{0, 2}},
		{name: "empty filter drops all", suppliers: SupplierSet(), want: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PostProcess(TransformProducts, matches, Params{Suppliers: tt.suppliers})
			require.NoError(t, err)

			indexes := make([]int, 0, len(got))
			for _, r := range got {
				indexes = append(indexes, r.Index)
			}
			assert.Equal(t, tt.want, indexes)
		})
	}
}

func TestPostProcess_SuppliersDropUnmatched(t *testing.T) {
	// Given: one supplier hit with ranges and one without any match
	matches := []Match{
		{Record: Record{Index: 0, Fields: map[string]string{FieldName: "Metro"}},
			Matches: []FieldMatch{{Key: FieldName, Value: "Metro", Ranges: []Range{{Start: 0, End: 2}}}}},
		{Record: Record{Index: 1, Fields: map[string]string{FieldName: "Selgros"}}},
	}

	// When: shaping as suppliers
	got, err := PostProcess(TransformSuppliers, matches, Params{})

	// Then: only the matched supplier survives with a faithful display
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Metro", got[0].Name)
	assert.Equal(t, "<mark>Met</mark><span>ro</span>", got[0].Display)
	assert.Equal(t, got[0].Name, DefaultMarker.Strip(got[0].Display))
}

func TestPostProcess_Limit(t *testing.T) {
	matches := []Match{
		productMatch(0, "A", "a1"),
		productMatch(1, "A", "a2"),
		productMatch(2, "A", "a3"),
	}

	got, err := PostProcess(TransformItems, matches, Params{Limit: 2})

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPostProcess_UnknownTransformer(t *testing.T) {
	_, err := PostProcess(Transformer("orders"), nil, Params{})

	require.Error(t, err)
	assert.Equal(t, deskerrors.ErrCodeUnknownTransformer, deskerrors.GetCode(err))
}

func TestParseTransformer(t *testing.T) {
	for _, tr := range Transformers() {
		got, err := ParseTransformer(string(tr))
		require.NoError(t, err)
		assert.Equal(t, tr, got)
	}

	_, err := ParseTransformer("")
	assert.Error(t, err)
}

func TestPostProcess_CustomMarker(t *testing.T) {
	marker := TagMarker{MatchOpen: "[", MatchClose: "]"}
	matches := []Match{productMatch(0, "A", "Coffee", Range{Start: 0, End: 2})}

	got, err := PostProcess(TransformProducts, matches, Params{Marker: marker})

	require.NoError(t, err)
	assert.Equal(t, "[Cof]fee", got[0].Fields[FieldInternalName])
}
