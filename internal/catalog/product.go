// Package catalog holds the supplier product model and the business-key
// identity used to recognise a product across catalog reloads.
package catalog

// Product is one row of a supplier catalog.
//
// A product's position in a catalog list is not stable across imports;
// use Key to identify it.
type Product struct {
	SupplierProductNumber int      `json:"supplier_product_number"`
	InternalProductNumber int      `json:"internal_product_number"`
	SupplierName          string   `json:"supplier_name"`
	InternalName          string   `json:"internal_name"`
	ContainerUnit         string   `json:"container_unit"`
	ContainerSize         float64  `json:"container_size"`
	ContainerPrice        float64  `json:"container_price"`
	UnitPrice             float64  `json:"unit_price"`
	Supplier              string   `json:"supplier"`
	Category              Category `json:"category"`
}

// Key is the business identity of a product.
type Key struct {
	SupplierProductNumber int    `json:"supplier_product_number"`
	Supplier              string `json:"supplier"`
}

// NewProduct builds a product and derives its unit price from the
// container price and size. Size must be non-zero.
func NewProduct(supplier string, supplierNumber, internalNumber int, supplierName, internalName, unit string, size, price float64) Product {
	return Product{
		SupplierProductNumber: supplierNumber,
		InternalProductNumber: internalNumber,
		SupplierName:          supplierName,
		InternalName:          internalName,
		ContainerUnit:         unit,
		ContainerSize:         size,
		ContainerPrice:        price,
		UnitPrice:             price / size,
		Supplier:              supplier,
		Category:              Unspecified,
	}
}

// Key returns the product's business identity.
func (p Product) Key() Key {
	return Key{SupplierProductNumber: p.SupplierProductNumber, Supplier: p.Supplier}
}

// SameIdentity reports whether a and b are the same catalog entry.
func SameIdentity(a, b Product) bool {
	return a.SupplierProductNumber == b.SupplierProductNumber && a.Supplier == b.Supplier
}

// Locator maps business keys to positions in a product list.
// When a key occurs more than once the first position wins, which matches
// a front-to-back linear scan.
type Locator struct {
	first map[Key]int
}

// NewLocator indexes products by key.
func NewLocator(products []Product) *Locator {
	first := make(map[Key]int, len(products))
	for i := range products {
		k := products[i].Key()
		if _, ok := first[k]; !ok {
			first[k] = i
		}
	}
	return &Locator{first: first}
}

// Find returns the first position holding key.
func (l *Locator) Find(key Key) (int, bool) {
	i, ok := l.first[key]
	return i, ok
}

// Len returns the number of distinct keys.
func (l *Locator) Len() int {
	return len(l.first)
}
