package reconcile

import (
	"log/slog"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/order"
)

// Refs bundles every position-based reference into a product list.
type Refs struct {
	Favorites []int
	Defaults  map[int]int
	Lines     []order.Line
}

// Report counts what a reload did to the references.
type Report struct {
	FavoritesKept     int `json:"favorites_kept"`
	FavoritesMoved    int `json:"favorites_moved"`
	FavoritesDropped  int `json:"favorites_dropped"`
	DefaultsKept      int `json:"defaults_kept"`
	DefaultsMoved     int `json:"defaults_moved"`
	DefaultsDropped   int `json:"defaults_dropped"`
	LinesKept         int `json:"lines_kept"`
	LinesMoved        int `json:"lines_moved"`
	LinesInvalidated  int `json:"lines_invalidated"`
	CategoriesCarried int `json:"categories_carried"`
	ProductsBefore    int `json:"products_before"`
	ProductsAfter     int `json:"products_after"`
}

// Reload moves refs from oldProducts onto newProducts. It carries
// categories over into newProducts (mutating it) and returns the
// re-mapped references. This is the only place references are reconciled;
// nothing calls it implicitly.
func Reload(oldProducts, newProducts []catalog.Product, refs Refs) (Refs, Report) {
	report := Report{ProductsBefore: len(oldProducts), ProductsAfter: len(newProducts)}

	CarryCategories(newProducts, oldProducts)
	for _, p := range newProducts {
		if p.Category != catalog.Unspecified {
			report.CategoriesCarried++
		}
	}

	r := New(oldProducts, newProducts)

	for _, p := range refs.Favorites {
		countMove(r, p, &report.FavoritesKept, &report.FavoritesMoved, &report.FavoritesDropped)
	}
	for p := range refs.Defaults {
		countMove(r, p, &report.DefaultsKept, &report.DefaultsMoved, &report.DefaultsDropped)
	}

	out := Refs{
		Favorites: r.Favorites(refs.Favorites),
		Defaults:  r.Defaults(refs.Defaults),
		Lines:     r.Orders(refs.Lines),
	}

	for i, l := range out.Lines {
		before := refs.Lines[i]
		switch {
		case before.Invalid:
		case l.Invalid:
			report.LinesInvalidated++
		case l.Index == before.Index:
			report.LinesKept++
		default:
			report.LinesMoved++
		}
	}

	slog.Info("catalog_reloaded",
		slog.Int("products_before", report.ProductsBefore),
		slog.Int("products_after", report.ProductsAfter),
		slog.Int("favorites_moved", report.FavoritesMoved),
		slog.Int("favorites_dropped", report.FavoritesDropped),
		slog.Int("defaults_dropped", report.DefaultsDropped),
		slog.Int("lines_moved", report.LinesMoved),
		slog.Int("lines_invalidated", report.LinesInvalidated))

	return out, report
}

func countMove(r *Reconciler, p int, kept, moved, dropped *int) {
	np, ok := r.Locate(p)
	switch {
	case !ok:
		*dropped++
	case np == p:
		*kept++
	default:
		*moved++
	}
}
