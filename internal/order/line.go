// Package order models order lines that point into the current catalog.
package order

import (
	"sort"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
)

// Line is one entry of an order.
//
// Index points into the current product list. A line whose product
// disappeared from the catalog is Invalid, has Index -1 and keeps a
// snapshot of the product in Product so the order stays auditable.
type Line struct {
	Index     int              `json:"index"`
	Amount    int              `json:"amount"`
	Invalid   bool             `json:"invalid"`
	Product   *catalog.Product `json:"product,omitempty"`
	UnitPrice float64          `json:"unit_price"`
}

// NewLine creates a valid line for products[index] at the product's
// current unit price.
func NewLine(products []catalog.Product, index, amount int) (Line, bool) {
	if index < 0 || index >= len(products) {
		return Line{}, false
	}
	return Line{Index: index, Amount: amount, UnitPrice: products[index].UnitPrice}, true
}

// Value returns amount times unit price.
func (l Line) Value() float64 {
	return float64(l.Amount) * l.UnitPrice
}

// Invalidate marks the line as pointing at a product that no longer exists.
// snapshot may be nil when the old product is unknown.
func (l Line) Invalidate(snapshot *catalog.Product) Line {
	l.Invalid = true
	l.Index = -1
	if snapshot != nil {
		p := *snapshot
		l.Product = &p
	}
	return l
}

// Resolve attaches a copy of the referenced product to every valid line so
// lines can be exported without the product list. Invalid lines keep their
// snapshot. Valid lines with an out-of-range index are left without product.
func Resolve(lines []Line, products []catalog.Product) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		if !l.Invalid && l.Index >= 0 && l.Index < len(products) {
			p := products[l.Index]
			l.Product = &p
		}
		out[i] = l
	}
	return out
}

// Total aggregates every line of the same product.
type Total struct {
	Line        Line
	TotalAmount int
	TotalValue  float64
}

// AverageUnitPrice returns TotalValue / TotalAmount, or 0 for no amount.
func (t Total) AverageUnitPrice() float64 {
	if t.TotalAmount == 0 {
		return 0
	}
	return t.TotalValue / float64(t.TotalAmount)
}

// Aggregate groups resolved lines by product identity. Lines without a
// product are skipped. Totals keep the order of first appearance.
func Aggregate(lines []Line) []Total {
	pos := make(map[catalog.Key]int)
	var totals []Total
	for _, l := range lines {
		if l.Product == nil {
			continue
		}
		k := l.Product.Key()
		i, ok := pos[k]
		if !ok {
			i = len(totals)
			pos[k] = i
			totals = append(totals, Total{Line: l})
		}
		totals[i].TotalAmount += l.Amount
		totals[i].TotalValue += l.Value()
	}
	return totals
}

// TallyCategories sums line values per product category. Lines without a
// product or with an unspecified category are skipped.
func TallyCategories(lines []Line) map[catalog.Category]float64 {
	tally := make(map[catalog.Category]float64)
	for _, l := range lines {
		if l.Product == nil || l.Product.Category == catalog.Unspecified {
			continue
		}
		tally[l.Product.Category] += l.Value()
	}
	return tally
}

// SortedCategories returns the keys of a tally in category order.
func SortedCategories(tally map[catalog.Category]float64) []catalog.Category {
	cats := make([]catalog.Category, 0, len(tally))
	for c := range tally {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
