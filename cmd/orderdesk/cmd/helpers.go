package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/export"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// addFormatFlag registers --format on cmd.
func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", formatText, "Output format: text or json")
}

func checkFormat(format string) error {
	if format != formatText && format != formatJSON {
		return deskerrors.ValidationError(fmt.Sprintf("unknown format %q", format), nil).
			WithSuggestion("Use --format text or --format json")
	}
	return nil
}

// resolveProduct turns a product reference into a catalog position. A
// reference is either a position or "Supplier/Number".
func resolveProduct(b *orderbook.Book, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if _, err := b.Product(n); err != nil {
			return 0, err
		}
		return n, nil
	}

	at := strings.LastIndex(ref, "/")
	if at <= 0 {
		return 0, deskerrors.ValidationError(fmt.Sprintf("invalid product reference %q", ref), nil).
			WithSuggestion("Use a position from 'orderdesk search' or Supplier/Number")
	}
	number, err := strconv.Atoi(ref[at+1:])
	if err != nil {
		return 0, deskerrors.ValidationError(fmt.Sprintf("invalid product number in %q", ref), err)
	}
	key := catalog.Key{Supplier: ref[:at], SupplierProductNumber: number}
	i, ok := b.Find(key)
	if !ok {
		return 0, deskerrors.ValidationError(fmt.Sprintf("no product %s/%d in the catalog", key.Supplier, number), nil)
	}
	return i, nil
}

// productRow renders the columns shared by product listings.
func productRow(i int, p catalog.Product) []string {
	return []string{
		strconv.Itoa(i),
		p.Supplier,
		strconv.Itoa(p.SupplierProductNumber),
		p.InternalName,
		p.SupplierName,
		export.FormatEuro(p.UnitPrice) + "/" + p.ContainerUnit,
	}
}

var productHeader = []string{"POS", "SUPPLIER", "NUMBER", "NAME", "SUPPLIER NAME", "UNIT PRICE"}

func parseInt(s, what string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, deskerrors.ValidationError(fmt.Sprintf("invalid %s %q", what, s), err)
	}
	return n, nil
}
