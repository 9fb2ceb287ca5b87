package export

import (
	"fmt"
	"strings"
)

// Kind selects an export format.
type Kind string

const (
	KindOrders     Kind = "orders"
	KindCompact    Kind = "compact"
	KindTotal      Kind = "total"
	KindCategories Kind = "categories"
	KindProducts   Kind = "products"
)

// Kinds lists the order export kinds.
func Kinds() []Kind {
	return []Kind{KindOrders, KindCompact, KindTotal, KindCategories}
}

// ParseKind validates an export kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindOrders, KindCompact, KindTotal, KindCategories, KindProducts:
		return k, nil
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

var filePrefixes = map[Kind]string{
	KindOrders:     "",
	KindCompact:    "compact_",
	KindTotal:      "products_",
	KindCategories: "categories_",
}

// FileName returns the download name for an order export:
// "<prefix><entry> <costCenter>_<client>_Bestellung.csv", where client is the
// local part of the client's mail address. KindProducts files are named
// after the supplier instead (see ProductsFileName).
func FileName(kind Kind, entry, client, costCenter string) string {
	local, _, _ := strings.Cut(client, "@")
	return fmt.Sprintf("%s%s %s_%s_Bestellung.csv", filePrefixes[kind], entry, costCenter, local)
}

// ProductsFileName returns the file name of a supplier product export.
func ProductsFileName(supplier string) string {
	return supplier + ".csv"
}
