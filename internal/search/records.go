package search

import (
	"strconv"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
)

// Record field names.
const (
	FieldInternalName          = "InternalName"
	FieldSupplierName          = "SupplierName"
	FieldSupplier              = "Supplier"
	FieldSupplierProductNumber = "SupplierProductNumber"
	FieldUnitPrice             = "UnitPrice"
	FieldName                  = "name"
)

// ProductFields are the product fields searched by default.
var ProductFields = []string{FieldInternalName, FieldSupplierName}

// SupplierFields are the supplier fields searched.
var SupplierFields = []string{FieldName}

// ProductRecords converts products into search records. Record.Index is the
// position in products.
func ProductRecords(products []catalog.Product) []Record {
	out := make([]Record, len(products))
	for i, p := range products {
		out[i] = Record{
			Index: i,
			Fields: map[string]string{
				FieldInternalName:          p.InternalName,
				FieldSupplierName:          p.SupplierName,
				FieldSupplier:              p.Supplier,
				FieldSupplierProductNumber: strconv.Itoa(p.SupplierProductNumber),
				FieldUnitPrice:             strconv.FormatFloat(p.UnitPrice, 'f', -1, 64),
			},
		}
	}
	return out
}

// SupplierRecords converts supplier names into search records.
func SupplierRecords(names []string) []Record {
	out := make([]Record, len(names))
	for i, n := range names {
		out[i] = Record{Index: i, Fields: map[string]string{FieldName: n}}
	}
	return out
}
