package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

func testProducts() []catalog.Product {
	return []catalog.Product{
		{SupplierProductNumber: 1, Supplier: "Metro", InternalName: "Kaffee Crema", SupplierName: "Crema Bohnen 1kg"},
		{SupplierProductNumber: 2, Supplier: "Metro", InternalName: "Tee Schwarz", SupplierName: "Schwarztee 100 Btl"},
		{SupplierProductNumber: 3, Supplier: "Selgros", InternalName: "Vollmilch", SupplierName: "Frische Vollmilch 3,5%"},
		{SupplierProductNumber: 4, Supplier: "Selgros", InternalName: "Kaffee & Tee Set", SupplierName: "Geschenkset"},
		{SupplierProductNumber: 5, Supplier: "Metro", InternalName: "Milsch", SupplierName: "Tippfehler"},
	}
}

func newTestIndex(t *testing.T, records []Record, fields []string) *Index {
	t.Helper()
	ix, err := NewIndex(records, fields, DefaultIndexOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func indexesOf(ms []Match) []int {
	out := make([]int, len(ms))
	for i, m := range ms {
		out[i] = m.Record.Index
	}
	return out
}

func TestNewIndex_RequiresFields(t *testing.T) {
	_, err := NewIndex(nil, nil, DefaultIndexOptions())

	require.Error(t, err)
	assert.Equal(t, deskerrors.ErrCodeInvalidInput, deskerrors.GetCode(err))
}

func TestNewIndex_RejectsBadOptions(t *testing.T) {
	opts := DefaultIndexOptions()
	opts.MinMatchCharLength = 0

	_, err := NewIndex(nil, ProductFields, opts)

	assert.Error(t, err)
}

func TestIndex_EmptyRecordList(t *testing.T) {
	ix := newTestIndex(t, nil, ProductFields)

	got, err := ix.Search(context.Background(), "kaffee")

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, ix.Len())
}

func TestIndex_SubstringMatch(t *testing.T) {
	// Given: a product index
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	// When: searching a word contained in two products
	got, err := ix.Search(context.Background(), "Kaffee")

	// Then: both are found, the shorter name first, with exact ranges
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, indexesOf(got))

	require.NotEmpty(t, got[0].Matches)
	fm := got[0].Matches[0]
	assert.Equal(t, FieldInternalName, fm.Key)
	assert.Equal(t, "Kaffee Crema", fm.Value)
	assert.Equal(t, []Range{{Start: 0, End: 5}}, fm.Ranges)
}

func TestIndex_CaseInsensitive(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	upper, err := ix.Search(context.Background(), "VOLLMILCH")
	require.NoError(t, err)
	lower, err := ix.Search(context.Background(), "vollmilch")
	require.NoError(t, err)

	assert.Equal(t, indexesOf(lower), indexesOf(upper))
	assert.Contains(t, indexesOf(upper), 2)
}

func TestIndex_PartialWord(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	got, err := ix.Search(context.Background(), "milch")

	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 2, got[0].Record.Index)

	var ranges []Range
	for _, fm := range got[0].Matches {
		if fm.Key == FieldInternalName {
			ranges = fm.Ranges
		}
	}
	assert.Equal(t, []Range{{Start: 4, End: 8}}, ranges)
}

func TestIndex_FuzzyMatchRanksBelowExact(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	// "milch" is a substring of Vollmilch and one edit away from Milsch
	got, err := ix.Search(context.Background(), "milch")

	require.NoError(t, err)
	idx := indexesOf(got)
	require.Contains(t, idx, 4)
	assert.Equal(t, 2, idx[0])
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestIndex_TypoTolerance(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	got, err := ix.Search(context.Background(), "kafee")

	require.NoError(t, err)
	require.Contains(t, indexesOf(got), 0)

	for _, fm := range got[0].Matches {
		for _, r := range fm.Ranges {
			assert.GreaterOrEqual(t, r.Start, 0)
			assert.Less(t, r.End, len(fm.Value))
			assert.LessOrEqual(t, r.Start, r.End)
		}
	}
}

func TestIndex_TypoInsideCompoundWord(t *testing.T) {
	// Given: a compound product name
	records := SupplierRecords([]string{"Kaffeebohnen Crema", "Tee Schwarz", "Frische Vollmilch"})
	ix := newTestIndex(t, records, SupplierFields)

	// When/Then: a prefix with a typo still finds it, and nothing else
	for _, q := range []string{"kaffee", "kaffe", "kafee", "crma", "kaffebohnen"} {
		got, err := ix.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, indexesOf(got), "query %q", q)
	}
}

func TestIndex_ExactSubstringRanksAboveTypo(t *testing.T) {
	records := SupplierRecords([]string{"Kafeemaschine", "Kaffeebohnen"})
	ix := newTestIndex(t, records, SupplierFields)

	got, err := ix.Search(context.Background(), "kaffee")

	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, indexesOf(got))
}

func TestIndex_ShortTermsNeedWholeTokenForTypos(t *testing.T) {
	// "tee" is one edit from the "fee" inside kaffeebohnen, but three-letter
	// terms only tolerate typos against whole tokens
	records := SupplierRecords([]string{"Kaffeebohnen", "Tea"})
	ix := newTestIndex(t, records, SupplierFields)

	got, err := ix.Search(context.Background(), "tee")

	require.NoError(t, err)
	assert.Equal(t, []int{1}, indexesOf(got))
}

func TestIndex_AllTermsMustMatch(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	got, err := ix.Search(context.Background(), "kaffee tee")

	require.NoError(t, err)
	assert.Equal(t, []int{3}, indexesOf(got))
}

func TestIndex_MatchesSecondField(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	got, err := ix.Search(context.Background(), "geschenkset")

	require.NoError(t, err)
	require.Equal(t, []int{3}, indexesOf(got))
	require.Len(t, got[0].Matches, 1)
	assert.Equal(t, FieldSupplierName, got[0].Matches[0].Key)
	assert.Equal(t, []Range{{Start: 0, End: 10}}, got[0].Matches[0].Ranges)
}

func TestIndex_ShortTermsIgnored(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	for _, q := range []string{"", "k", "  ", "& %"} {
		got, err := ix.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got, "query %q", q)
	}
}

func TestIndex_NoMatch(t *testing.T) {
	ix := newTestIndex(t, ProductRecords(testProducts()), ProductFields)

	got, err := ix.Search(context.Background(), "zahnbürste")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndex_TiesKeepRecordOrder(t *testing.T) {
	records := SupplierRecords([]string{"Metro", "Metro", "Metro"})
	ix := newTestIndex(t, records, SupplierFields)

	got, err := ix.Search(context.Background(), "metro")

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indexesOf(got))
}

func TestIndex_SearchAfterClose(t *testing.T) {
	ix, err := NewIndex(SupplierRecords([]string{"Metro"}), SupplierFields, DefaultIndexOptions())
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	_, err = ix.Search(context.Background(), "metro")

	assert.Equal(t, deskerrors.ErrCodeSearchFailed, deskerrors.GetCode(err))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b  string
		limit int
		want  int
	}{
		{"kaffee", "kaffee", 2, 0},
		{"kafee", "kaffee", 2, 1},
		{"milch", "milsch", 2, 1},
		{"tee", "kaffee", 2, 3},
		{"straße", "strasse", 2, 2},
		{"", "ab", 2, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b, tt.limit), "%s/%s", tt.a, tt.b)
	}
}

func TestSubstringDistance(t *testing.T) {
	tests := []struct {
		term, tok string
		limit     int
		want      int
	}{
		{"kaffee", "kaffeebohnen", 2, 0},
		{"kafee", "kaffeebohnen", 2, 1},
		{"bohen", "kaffeebohnen", 2, 1},
		{"crma", "crema", 1, 1},
		{"zahn", "kaffeebohnen", 1, 2},
		{"kaffeebohnen", "kaffee", 2, 3},
		{"", "abc", 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, substringDistance(tt.term, tt.tok, tt.limit), "%s/%s", tt.term, tt.tok)
	}
}

func TestSplitParts(t *testing.T) {
	assert.Equal(t, []string{"kaf", "fee"}, splitParts("kaffee", 2))
	assert.Equal(t, []string{"ka", "fe", "ebo"}, splitParts("kafeebo", 3))
	assert.Equal(t, []string{"tee"}, splitParts("tee", 1))
	assert.Equal(t, []string{"ab"}, splitParts("ab", 3))
	assert.Equal(t, []string{"ö", "l"}, splitParts("öl", 2))
}

func TestMergeRanges(t *testing.T) {
	got := mergeRanges([]Range{{Start: 5, End: 6}, {Start: 0, End: 1}, {Start: 2, End: 3}, {Start: 6, End: 8}})

	assert.Equal(t, []Range{{Start: 0, End: 3}, {Start: 5, End: 8}}, got)
	assert.Nil(t, mergeRanges(nil))
}

func TestIndexOptions_Fuzziness(t *testing.T) {
	opts := DefaultIndexOptions()

	assert.Equal(t, 0, opts.Fuzziness(2))
	assert.Equal(t, 1, opts.Fuzziness(3))
	assert.Equal(t, 1, opts.Fuzziness(7))
	assert.Equal(t, 2, opts.Fuzziness(8))
	assert.Equal(t, MaxFuzziness, opts.Fuzziness(40))
}
