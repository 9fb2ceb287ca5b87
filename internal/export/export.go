// Package export writes orders, product lists, and category tallies as
// semicolon-separated CSV in the formats the accounting side expects.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/order"
)

// Supported output encodings.
const (
	EncodingUTF8        = catalog.EncodingUTF8
	EncodingWindows1252 = catalog.EncodingWindows1252
)

// Options controls the CSV dialect.
type Options struct {
	Delimiter rune
	Encoding  string
}

// DefaultOptions returns ';' and windows-1252, the format accounting imports.
func DefaultOptions() Options {
	return Options{Delimiter: ';', Encoding: EncodingWindows1252}
}

type orderRow struct {
	SupplierProductNumber int    `csv:"Lieferantennummer"`
	InternalProductNumber int    `csv:"MBS5 Nummer"`
	InternalName          string `csv:"interne Bezeichnung"`
	SupplierName          string `csv:"Lieferantenbezeichnung"`
	ContainerSize         string `csv:"Gebindegröße"`
	ContainerUnit         string `csv:"Einheit"`
	UnitPrice             string `csv:"Stückpreis"`
	Supplier              string `csv:"Lieferant"`
	Amount                int    `csv:"Menge"`
	Category              string `csv:"Kategorie"`
}

type compactRow struct {
	InternalName  string `csv:"interne Bezeichnung"`
	SupplierName  string `csv:"Lieferantenbezeichnung"`
	ContainerSize string `csv:"Gebindegröße"`
	ContainerUnit string `csv:"Einheit"`
	Amount        int    `csv:"Menge"`
}

type totalRow struct {
	SupplierProductNumber int    `csv:"Lieferantennummer"`
	InternalProductNumber int    `csv:"MBS5 Nummer"`
	InternalName          string `csv:"interne Bezeichnung"`
	SupplierName          string `csv:"Lieferantenbezeichnung"`
	ContainerSize         string `csv:"Gebindegröße"`
	ContainerUnit         string `csv:"Einheit"`
	AverageUnitPrice      string `csv:"Durchschnittsstückpreis"`
	Supplier              string `csv:"Lieferant"`
	Amount                int    `csv:"Menge"`
	Category              string `csv:"Kategorie"`
}

// productRow mirrors the catalog import header, including its leading
// spaces. Product numbers carry a trailing apostrophe so spreadsheets keep
// them as text.
type productRow struct {
	SupplierProductNumber string `csv:"Artikel Nr."`
	InternalProductNumber string `csv:" eigene Artikel Nr."`
	SupplierName          string `csv:" Bezeichnung des Lief."`
	InternalName          string `csv:" eigene Artikelbez."`
	ContainerUnit         string `csv:" Inhalt-Einheit"`
	ContainerSize         string `csv:" Inhalt"`
	ContainerPrice        string `csv:" Gebinde Preis"`
}

// Orders writes one row per order line. Lines must be resolved (see
// order.Resolve); lines without a product are skipped. Invalid lines are
// written from their snapshot.
func Orders(w io.Writer, lines []order.Line, opts Options) error {
	rows := make([]orderRow, 0, len(lines))
	for _, l := range lines {
		p := l.Product
		if p == nil {
			continue
		}
		rows = append(rows, orderRow{
			SupplierProductNumber: p.SupplierProductNumber,
			InternalProductNumber: p.InternalProductNumber,
			InternalName:          p.InternalName,
			SupplierName:          p.SupplierName,
			ContainerSize:         FormatNumber(p.ContainerSize),
			ContainerUnit:         p.ContainerUnit,
			UnitPrice:             FormatEuro(l.UnitPrice),
			Supplier:              p.Supplier,
			Amount:                l.Amount,
			Category:              p.Category.Name(),
		})
	}
	return write(w, rows, orderRow{}, opts)
}

// OrdersCompact writes the short order format sent to suppliers.
func OrdersCompact(w io.Writer, lines []order.Line, opts Options) error {
	return write(w, compactRows(lines), compactRow{}, opts)
}

// OrdersTotal writes one row per product with summed amounts and the
// average unit price.
func OrdersTotal(w io.Writer, lines []order.Line, opts Options) error {
	totals := order.Aggregate(lines)
	rows := make([]totalRow, 0, len(totals))
	for _, t := range totals {
		p := t.Line.Product
		rows = append(rows, totalRow{
			SupplierProductNumber: p.SupplierProductNumber,
			InternalProductNumber: p.InternalProductNumber,
			InternalName:          p.InternalName,
			SupplierName:          p.SupplierName,
			ContainerSize:         FormatNumber(p.ContainerSize),
			ContainerUnit:         p.ContainerUnit,
			AverageUnitPrice:      FormatEuro(t.AverageUnitPrice()),
			Supplier:              p.Supplier,
			Amount:                t.TotalAmount,
			Category:              p.Category.Name(),
		})
	}
	return write(w, rows, totalRow{}, opts)
}

// Products writes products in the catalog import format, so an exported
// list can be re-imported.
func Products(w io.Writer, products []catalog.Product, opts Options) error {
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow{
			SupplierProductNumber: strconv.Itoa(p.SupplierProductNumber) + "'",
			InternalProductNumber: strconv.Itoa(p.InternalProductNumber) + "'",
			SupplierName:          p.SupplierName,
			InternalName:          p.InternalName,
			ContainerUnit:         p.ContainerUnit,
			ContainerSize:         FormatNumber(p.ContainerSize),
			ContainerPrice:        FormatNumber(p.ContainerSize * p.UnitPrice),
		})
	}
	return write(w, rows, productRow{}, opts)
}

// Categories writes the tally as a single row with one column per
// category, in category order.
func Categories(w io.Writer, tally map[catalog.Category]float64, opts Options) error {
	cats := order.SortedCategories(tally)
	header := make([]string, len(cats))
	values := make([]string, len(cats))
	for i, c := range cats {
		header[i] = c.Name()
		values[i] = FormatNumber(tally[c])
	}

	return withWriter(w, opts, func(cw *csv.Writer) error {
		if len(cats) == 0 {
			return nil
		}
		if err := cw.Write(header); err != nil {
			return err
		}
		return cw.Write(values)
	})
}

// Attachment renders the compact order export as UTF-8 text for mailing.
func Attachment(lines []order.Line) (string, error) {
	var buf bytes.Buffer
	if err := OrdersCompact(&buf, lines, Options{Delimiter: ';', Encoding: EncodingUTF8}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func compactRows(lines []order.Line) []compactRow {
	rows := make([]compactRow, 0, len(lines))
	for _, l := range lines {
		p := l.Product
		if p == nil {
			continue
		}
		rows = append(rows, compactRow{
			InternalName:  p.InternalName,
			SupplierName:  p.SupplierName,
			ContainerSize: FormatNumber(p.ContainerSize),
			ContainerUnit: p.ContainerUnit,
			Amount:        l.Amount,
		})
	}
	return rows
}

// write encodes rows with csvutil. An empty slice still produces a header
// derived from the zero row.
func write[T any](w io.Writer, rows []T, zero T, opts Options) error {
	return withWriter(w, opts, func(cw *csv.Writer) error {
		enc := csvutil.NewEncoder(cw)
		if len(rows) == 0 {
			return enc.EncodeHeader(zero)
		}
		return enc.Encode(rows)
	})
}

// withWriter sets up the CSV dialect and output encoding around fn.
func withWriter(w io.Writer, opts Options, fn func(*csv.Writer) error) error {
	out, finish, err := encodedWriter(w, opts.Encoding)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	} else {
		cw.Comma = ';'
	}

	if err := fn(cw); err != nil {
		return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to encode export", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to write export", err)
	}
	if err := finish(); err != nil {
		return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to write export", err)
	}
	return nil
}

// encodedWriter wraps w for the output encoding. finish flushes bytes the
// encoder still holds; it does not close w.
func encodedWriter(w io.Writer, enc string) (out io.Writer, finish func() error, err error) {
	switch enc {
	case "", EncodingUTF8:
		return w, func() error { return nil }, nil
	case EncodingWindows1252:
		tw := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).Writer(w)
		return tw, func() error {
			if c, ok := tw.(io.Closer); ok {
				return c.Close()
			}
			return nil
		}, nil
	default:
		return nil, nil, deskerrors.ValidationError(fmt.Sprintf("unsupported export encoding %q", enc), nil)
	}
}
