// Package reconcile re-maps position-based references (favorites, default
// quantities, order lines) from an old product list onto a new one after a
// catalog re-import.
//
// Identity is decided by catalog.SameIdentity, never by position. Each
// reference first tries its old position in the new list and falls back to
// the first product with the same business key. Unmatched favorites and
// defaults are dropped; unmatched order lines are invalidated and keep a
// snapshot of the old product.
package reconcile

import (
	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/order"
)

// Reconciler maps positions of an old product list onto a new one.
// It is not safe for concurrent use.
type Reconciler struct {
	old     []catalog.Product
	new     []catalog.Product
	locator *catalog.Locator // built on first slow-path lookup
}

// New returns a reconciler from old to new.
func New(oldProducts, newProducts []catalog.Product) *Reconciler {
	return &Reconciler{old: oldProducts, new: newProducts}
}

// Locate returns the position in the new list of the product that sat at
// position p in the old list.
func (r *Reconciler) Locate(p int) (int, bool) {
	if p < 0 || p >= len(r.old) {
		return -1, false
	}
	if p < len(r.new) && catalog.SameIdentity(r.old[p], r.new[p]) {
		return p, true
	}
	if r.locator == nil {
		r.locator = catalog.NewLocator(r.new)
	}
	return r.locator.Find(r.old[p].Key())
}

// Favorites re-maps favorite positions. Favorites whose product is gone are
// dropped. Two favorites that land on the same product collapse into one;
// first-occurrence order is kept.
func (r *Reconciler) Favorites(favorites []int) []int {
	out := make([]int, 0, len(favorites))
	seen := make(map[int]struct{}, len(favorites))
	for _, p := range favorites {
		np, ok := r.Locate(p)
		if !ok {
			continue
		}
		if _, dup := seen[np]; dup {
			continue
		}
		seen[np] = struct{}{}
		out = append(out, np)
	}
	return out
}

// Defaults re-maps default quantities keyed by position, keeping each
// quantity. Entries whose product is gone are dropped.
func (r *Reconciler) Defaults(defaults map[int]int) map[int]int {
	out := make(map[int]int, len(defaults))
	for p, qty := range defaults {
		if np, ok := r.Locate(p); ok {
			out[np] = qty
		}
	}
	return out
}

// Orders re-maps order lines. Invalid lines are returned untouched.
func (r *Reconciler) Orders(lines []order.Line) []order.Line {
	out := make([]order.Line, len(lines))
	for i, l := range lines {
		out[i] = r.line(l)
	}
	return out
}

func (r *Reconciler) line(l order.Line) order.Line {
	if l.Invalid {
		return l
	}
	if np, ok := r.Locate(l.Index); ok {
		l.Index = np
		return l
	}
	var snapshot *catalog.Product
	if l.Index >= 0 && l.Index < len(r.old) {
		snapshot = &r.old[l.Index]
	}
	return l.Invalidate(snapshot)
}

// CarryCategories copies each old product's category onto the matching new
// product. Unmatched new products keep their category.
func CarryCategories(newProducts, oldProducts []catalog.Product) {
	var loc *catalog.Locator
	for i := range newProducts {
		if i < len(oldProducts) && catalog.SameIdentity(newProducts[i], oldProducts[i]) {
			newProducts[i].Category = oldProducts[i].Category
			continue
		}
		if loc == nil {
			loc = catalog.NewLocator(oldProducts)
		}
		if j, ok := loc.Find(newProducts[i].Key()); ok {
			newProducts[i].Category = oldProducts[j].Category
		}
	}
}

// CorrespondingIndex returns the new position of oldProducts[index], or -1.
func CorrespondingIndex(newProducts, oldProducts []catalog.Product, index int) int {
	np, ok := New(oldProducts, newProducts).Locate(index)
	if !ok {
		return -1
	}
	return np
}
