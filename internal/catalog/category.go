package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is the accounting category assigned to a product by the user.
// It is not part of a catalog export and is carried over on re-import.
type Category int

const (
	Unspecified Category = iota
	Food
	Beverages
	CleaningSupplies
	PackagingMaterial
	Consumables
	Clothing
	Returnables
	TradeGoods
	CoffeeSpot7
	CoffeeSpot19
)

var categoryNames = [...]string{
	Unspecified:       "",
	Food:              "Lebensmittel",
	Beverages:         "Getränke",
	CleaningSupplies:  "Reinigungsmaterial",
	PackagingMaterial: "Verpackung",
	Consumables:       "Verbrauchsgüter",
	Clothing:          "Bekleidung",
	Returnables:       "Pfand",
	TradeGoods:        "Handlesgüter",
	CoffeeSpot7:       "Coffe Spot 7%",
	CoffeeSpot19:      "Coffe Spot 19%",
}

// Categories lists every assignable category (Unspecified excluded).
func Categories() []Category {
	out := make([]Category, 0, len(categoryNames)-1)
	for c := Food; c <= CoffeeSpot19; c++ {
		out = append(out, c)
	}
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c >= Unspecified && c <= CoffeeSpot19
}

// Name returns the display name used in exports. Unspecified has none.
func (c Category) Name() string {
	if !c.Valid() {
		return ""
	}
	return categoryNames[c]
}

// String implements fmt.Stringer.
func (c Category) String() string {
	if c == Unspecified {
		return "unspecified"
	}
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory accepts either the numeric value or the display name
// (case-insensitive).
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		c := Category(n)
		if !c.Valid() {
			return Unspecified, fmt.Errorf("unknown category %d", n)
		}
		return c, nil
	}
	for c, name := range categoryNames {
		if name != "" && strings.EqualFold(name, s) {
			return Category(c), nil
		}
	}
	return Unspecified, fmt.Errorf("unknown category %q", s)
}
