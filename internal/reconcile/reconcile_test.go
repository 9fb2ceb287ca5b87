package reconcile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/order"
)

func prod(num int, supplier string) catalog.Product {
	return catalog.Product{SupplierProductNumber: num, Supplier: supplier, InternalName: supplier + "-" + string(rune('a'+num%26))}
}

func TestLocate_FastPath(t *testing.T) {
	// Given: unchanged catalog order
	old := []catalog.Product{prod(1, "A"), prod(2, "A")}
	updated := []catalog.Product{prod(1, "A"), prod(2, "A")}

	// Then: every position maps onto itself
	r := New(old, updated)
	for p := range old {
		np, ok := r.Locate(p)
		require.True(t, ok)
		assert.Equal(t, p, np)
	}
	assert.Nil(t, r.locator, "fast path must not build the key index")
}

func TestLocate_SlowPathAndMissing(t *testing.T) {
	old := []catalog.Product{prod(1, "A"), prod(2, "A"), prod(3, "A")}
	updated := []catalog.Product{prod(3, "A"), prod(1, "A")}

	r := New(old, updated)

	np, ok := r.Locate(0)
	require.True(t, ok)
	assert.Equal(t, 1, np)

	np, ok = r.Locate(2)
	require.True(t, ok)
	assert.Equal(t, 0, np)

	_, ok = r.Locate(1)
	assert.False(t, ok, "product 2 was removed")

	_, ok = r.Locate(5)
	assert.False(t, ok, "position outside the old list")
	_, ok = r.Locate(-1)
	assert.False(t, ok)
}

func TestLocate_SupplierIsPartOfIdentity(t *testing.T) {
	old := []catalog.Product{prod(1, "A")}
	updated := []catalog.Product{prod(1, "B")}

	_, ok := New(old, updated).Locate(0)
	assert.False(t, ok)
}

func TestFavorites_SwappedCatalog(t *testing.T) {
	// Given: old [num1, num2], favorite at position 1 (num2)
	old := []catalog.Product{prod(1, "A"), prod(2, "A")}
	// When: the new catalog swaps them
	updated := []catalog.Product{prod(2, "A"), prod(1, "A")}

	got := New(old, updated).Favorites([]int{1})

	// Then: the favorite follows num2 to position 0
	assert.Equal(t, []int{0}, got)
}

func TestFavorites_DropsMissingAndDedupes(t *testing.T) {
	old := []catalog.Product{prod(1, "A"), prod(2, "A"), prod(1, "A")}
	updated := []catalog.Product{prod(1, "A")}

	got := New(old, updated).Favorites([]int{1, 0, 2})

	assert.Equal(t, []int{0}, got)
}

func TestDefaults_PreserveQuantity(t *testing.T) {
	old := []catalog.Product{prod(1, "A"), prod(2, "A"), prod(3, "A")}
	updated := []catalog.Product{prod(3, "A"), prod(2, "A")}

	got := New(old, updated).Defaults(map[int]int{0: 5, 1: 7, 2: 9})

	assert.Equal(t, map[int]int{1: 7, 0: 9}, got)
}

func TestOrders_RemapInvalidateAndSkip(t *testing.T) {
	old := []catalog.Product{prod(1, "A"), prod(2, "A"), prod(3, "A")}
	updated := []catalog.Product{prod(3, "A"), prod(1, "A")}
	snapshot := prod(99, "Z")
	lines := []order.Line{
		{Index: 0, Amount: 2, UnitPrice: 1.5},
		{Index: 1, Amount: 4, UnitPrice: 2.25},
		{Index: -1, Amount: 1, UnitPrice: 3, Invalid: true, Product: &snapshot},
		{Index: 2, Amount: 6, UnitPrice: 0.5},
	}

	got := New(old, updated).Orders(lines)

	require.Len(t, got, 4)
	assert.Equal(t, order.Line{Index: 1, Amount: 2, UnitPrice: 1.5}, got[0])

	// Removed product: invalid, -1, keeps amount, price and snapshot
	assert.True(t, got[1].Invalid)
	assert.Equal(t, -1, got[1].Index)
	assert.Equal(t, 4, got[1].Amount)
	assert.InDelta(t, 2.25, got[1].UnitPrice, 1e-9)
	require.NotNil(t, got[1].Product)
	assert.Equal(t, old[1], *got[1].Product)

	// Already invalid: untouched
	assert.Equal(t, lines[2], got[2])

	assert.Equal(t, 0, got[3].Index)
	assert.False(t, got[3].Invalid)

	// Input slice is not modified
	assert.Equal(t, 1, lines[1].Index)
	assert.False(t, lines[1].Invalid)
}

func TestOrders_InvalidIsIdempotent(t *testing.T) {
	old := []catalog.Product{prod(1, "A")}
	lines := []order.Line{{Index: 0, Amount: 3}}

	once := New(old, nil).Orders(lines)
	twice := New(old, []catalog.Product{prod(1, "A")}).Orders(once)

	assert.Equal(t, once, twice, "invalid lines are never reconciled again")
}

func TestOrders_CorruptIndexBecomesInvalidWithoutSnapshot(t *testing.T) {
	old := []catalog.Product{prod(1, "A")}
	lines := []order.Line{{Index: 4, Amount: 1}}

	got := New(old, old).Orders(lines)

	assert.True(t, got[0].Invalid)
	assert.Nil(t, got[0].Product)
}

func TestCarryCategories(t *testing.T) {
	// Given: old products with categories
	old := []catalog.Product{prod(1, "A"), prod(2, "A"), prod(3, "A")}
	old[0].Category = catalog.Food
	old[1].Category = catalog.Beverages
	old[2].Category = catalog.Returnables

	// When: new catalog is reordered with one new and one removed product
	updated := []catalog.Product{prod(1, "A"), prod(3, "A"), prod(4, "A")}
	CarryCategories(updated, old)

	// Then: matched products carry their category, new ones stay unspecified
	assert.Equal(t, catalog.Food, updated[0].Category)
	assert.Equal(t, catalog.Returnables, updated[1].Category)
	assert.Equal(t, catalog.Unspecified, updated[2].Category)
}

func TestCorrespondingIndex(t *testing.T) {
	old := []catalog.Product{prod(1, "A"), prod(2, "A")}
	updated := []catalog.Product{prod(2, "A")}

	assert.Equal(t, 0, CorrespondingIndex(updated, old, 1))
	assert.Equal(t, -1, CorrespondingIndex(updated, old, 0))
}

// TestReconcile_RandomReloads checks the reconciliation properties against
// shuffled catalogs with removals.
func TestReconcile_RandomReloads(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(30)
		old := make([]catalog.Product, n)
		for i := range old {
			old[i] = prod(i, []string{"A", "B"}[rng.Intn(2)])
			old[i].SupplierProductNumber = i
			old[i].Category = catalog.Category(rng.Intn(11))
		}

		updated := make([]catalog.Product, 0, n)
		for _, p := range old {
			if rng.Intn(4) != 0 {
				p.Category = catalog.Unspecified
				updated = append(updated, p)
			}
		}
		rng.Shuffle(len(updated), func(i, j int) { updated[i], updated[j] = updated[j], updated[i] })

		r := New(old, updated)
		loc := catalog.NewLocator(updated)

		for p := range old {
			want, exists := loc.Find(old[p].Key())
			got, ok := r.Locate(p)
			require.Equal(t, exists, ok)
			if exists {
				assert.Equal(t, want, got)
				assert.True(t, catalog.SameIdentity(old[p], updated[got]))
			}

			lines := r.Orders([]order.Line{{Index: p, Amount: p + 1}})
			if !exists {
				assert.True(t, lines[0].Invalid)
				assert.Equal(t, -1, lines[0].Index)
				assert.Equal(t, p+1, lines[0].Amount)
				assert.Equal(t, old[p], *lines[0].Product)
			}
		}

		CarryCategories(updated, old)
		oldLoc := catalog.NewLocator(old)
		for _, p := range updated {
			j, ok := oldLoc.Find(p.Key())
			require.True(t, ok)
			assert.Equal(t, old[j].Category, p.Category)
		}
	}
}
