package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

// gateMarker blocks the first Match call until release is closed.
type gateMarker struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGateMarker() *gateMarker {
	return &gateMarker{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateMarker) Match(s string) string {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return s
}

func (g *gateMarker) Plain(s string) string { return s }

func TestFacade_SearchBeforeInit(t *testing.T) {
	f := New(WithWorker(newTestWorker(t)))

	_, err := f.Search(context.Background(), "kaffee", Params{})

	require.Error(t, err)
	assert.True(t, deskerrors.HasCode(err, deskerrors.ErrCodeNotInitialized))
	assert.False(t, f.Initialized())
}

func TestFacade_InitRejectsUnknownTransformer(t *testing.T) {
	f := New(WithWorker(newTestWorker(t)))

	err := f.Init(context.Background(), nil, Transformer("orders"), ProductFields)

	assert.Equal(t, deskerrors.ErrCodeUnknownTransformer, deskerrors.GetCode(err))
	assert.False(t, f.Initialized())
}

func TestFacade_ProductSearch(t *testing.T) {
	// Given: an initialized products facade
	f := New(WithWorker(newTestWorker(t)))
	ctx := context.Background()
	require.NoError(t, f.Init(ctx, ProductRecords(testProducts()), TransformProducts, ProductFields))

	// When: searching with a supplier filter
	got, err := f.Search(ctx, "kaffee", Params{Suppliers: SupplierSet("Selgros")})

	// Then: only the Selgros product is returned, highlighted
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Index)
	assert.Equal(t, "<mark>Kaffee</mark><span> & Tee Set</span>", got[0].Fields[FieldInternalName])
}

func TestFacade_WithMarkerSetsDefault(t *testing.T) {
	// Given: a facade with its own default marker
	f := New(WithWorker(newTestWorker(t)), WithMarker(TagMarker{MatchOpen: "[", MatchClose: "]"}))
	ctx := context.Background()
	require.NoError(t, f.Init(ctx, ProductRecords(testProducts()), TransformProducts, ProductFields))

	// When: searching without a marker in the params
	got, err := f.Search(ctx, "kaffee", Params{Suppliers: SupplierSet("Selgros")})

	// Then: the facade's marker is used
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "[Kaffee] & Tee Set", got[0].Fields[FieldInternalName])
}

func TestFacade_InitIsIdempotent(t *testing.T) {
	f := New(WithWorker(newTestWorker(t)))
	ctx := context.Background()

	require.NoError(t, f.Init(ctx, SupplierRecords([]string{"Metro"}), TransformSuppliers, SupplierFields))
	first := f.remote
	require.NoError(t, f.Init(ctx, SupplierRecords([]string{"Selgros"}), TransformSuppliers, SupplierFields))

	assert.Same(t, first, f.remote, "one remote index per facade")

	got, err := f.Search(ctx, "selgros", Params{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Selgros", got[0].Name)
}

func TestFacade_CachesAndPurgesOnInit(t *testing.T) {
	f := New(WithWorker(newTestWorker(t)), WithCacheSize(8))
	ctx := context.Background()
	require.NoError(t, f.Init(ctx, SupplierRecords([]string{"Metro"}), TransformSuppliers, SupplierFields))

	first, err := f.Search(ctx, "metro", Params{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, f.cache.Len())

	again, err := f.Search(ctx, "metro", Params{})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// Re-init with a different catalog must not serve stale results
	require.NoError(t, f.Init(ctx, SupplierRecords([]string{"Selgros"}), TransformSuppliers, SupplierFields))
	assert.Equal(t, 0, f.cache.Len())

	after, err := f.Search(ctx, "metro", Params{})
	require.NoError(t, err)
	assert.Empty(t, after)
}

// bracketMarker holds a slice, so its values cannot be compared with ==.
type bracketMarker struct {
	tags []string
}

func (m bracketMarker) Match(s string) string { return m.tags[0] + s + m.tags[1] }
func (m bracketMarker) Plain(s string) string { return s }

func TestFacade_NonComparableMarker(t *testing.T) {
	// Given: a caching facade whose default marker is not comparable
	f := New(WithWorker(newTestWorker(t)), WithCacheSize(8),
		WithMarker(bracketMarker{tags: []string{"[", "]"}}))
	ctx := context.Background()
	require.NoError(t, f.Init(ctx, SupplierRecords([]string{"Metro"}), TransformSuppliers, SupplierFields))

	// When: searching with the default marker and then an explicit one
	var got, explicit []Result
	require.NotPanics(t, func() {
		var err error
		got, err = f.Search(ctx, "metro", Params{})
		require.NoError(t, err)
		got, err = f.Search(ctx, "metro", Params{})
		require.NoError(t, err)
		explicit, err = f.Search(ctx, "metro", Params{Marker: bracketMarker{tags: []string{"<", ">"}}})
		require.NoError(t, err)
	})

	// Then: the default search was cached and the explicit one bypassed it
	require.Len(t, got, 1)
	assert.Equal(t, "[Metro]", got[0].Display)
	require.Len(t, explicit, 1)
	assert.Equal(t, "<Metro>", explicit[0].Display)
	assert.Equal(t, 1, f.cache.Len())
}

func TestFacade_CachedResultsAreCopies(t *testing.T) {
	// Given: a cached product search
	f := New(WithWorker(newTestWorker(t)), WithCacheSize(8))
	ctx := context.Background()
	require.NoError(t, f.Init(ctx, ProductRecords(testProducts()), TransformProducts, ProductFields))
	first, err := f.Search(ctx, "vollmilch", Params{})
	require.NoError(t, err)
	require.NotEmpty(t, first)
	want := first[0].Fields[FieldInternalName]

	// When: the caller edits a returned field
	first[0].Fields[FieldInternalName] = "changed"

	// Then: later hits from the cache are unaffected, and so are their copies
	again, err := f.Search(ctx, "vollmilch", Params{})
	require.NoError(t, err)
	assert.Equal(t, want, again[0].Fields[FieldInternalName])
	again[0].Fields[FieldInternalName] = "changed again"
	third, err := f.Search(ctx, "vollmilch", Params{})
	require.NoError(t, err)
	assert.Equal(t, want, third[0].Fields[FieldInternalName])
}

func TestFacade_CacheDisabled(t *testing.T) {
	f := New(WithWorker(newTestWorker(t)), WithCacheSize(0))
	ctx := context.Background()
	require.NoError(t, f.Init(ctx, SupplierRecords([]string{"Metro"}), TransformSuppliers, SupplierFields))

	got, err := f.Search(ctx, "metro", Params{})

	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Nil(t, f.cache)
}

func TestFacade_SearchLatestSupersedes(t *testing.T) {
	// Given: a facade whose first search blocks inside the worker
	f := New(WithWorker(newTestWorker(t)))
	ctx := context.Background()
	require.NoError(t, f.Init(ctx, SupplierRecords([]string{"Metro"}), TransformSuppliers, SupplierFields))

	gate := newGateMarker()
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.SearchLatest(ctx, "metro", Params{Marker: gate})
		firstErr <- err
	}()
	<-gate.entered

	// When: a newer search starts before the first returns
	secondDone := make(chan []Result, 1)
	go func() {
		res, err := f.SearchLatest(ctx, "metro", Params{})
		assert.NoError(t, err)
		secondDone <- res
	}()
	require.Eventually(t, func() bool { return f.latest.Load() == 2 }, time.Second, time.Millisecond)
	close(gate.release)

	// Then: the older search is superseded and the newer one wins
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	assert.Len(t, <-secondDone, 1)
}

func TestCacheKey_DistinguishesFilters(t *testing.T) {
	all := cacheKey("kaffee", Params{})
	none := cacheKey("kaffee", Params{Suppliers: SupplierSet()})
	ab := cacheKey("kaffee", Params{Suppliers: SupplierSet("A", "B")})
	ba := cacheKey("kaffee", Params{Suppliers: SupplierSet("B", "A")})
	limited := cacheKey("kaffee", Params{Limit: 5})

	assert.NotEqual(t, all, none)
	assert.NotEqual(t, none, ab)
	assert.Equal(t, ab, ba)
	assert.NotEqual(t, all, limited)
}

func TestSharedWorker_IsSingleton(t *testing.T) {
	assert.Same(t, SharedWorker(), SharedWorker())

	f := New()
	assert.Same(t, SharedWorker(), f.worker)
}
