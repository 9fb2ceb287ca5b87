package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
)

// Column headers of a supplier catalog export. Exports from the ordering
// system prefix most headers with a space; headers are trimmed before use.
const (
	ColSupplierNumber = "Artikel Nr."
	ColInternalNumber = "eigene Artikel Nr."
	ColSupplierName   = "Bezeichnung des Lief."
	ColInternalName   = "eigene Artikelbez."
	ColUnit           = "Inhalt-Einheit"
	ColSize           = "Inhalt"
	ColPrice          = "Gebinde Preis"
)

// RequiredColumns lists the headers every catalog must carry.
var RequiredColumns = []string{
	ColSupplierNumber,
	ColInternalNumber,
	ColSupplierName,
	ColInternalName,
	ColUnit,
	ColSize,
	ColPrice,
}

// Supported input encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

// ImportOptions configures catalog parsing.
type ImportOptions struct {
	// Delimiter separates fields (default ';').
	Delimiter rune
	// Encoding of the input bytes: "utf-8" (default) or "windows-1252".
	Encoding string
}

// DefaultImportOptions returns options for the ordering system's exports.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{Delimiter: ';', Encoding: EncodingWindows1252}
}

// ImportReport summarises what happened to the rows of one catalog.
type ImportReport struct {
	Rows           int      `json:"rows"`
	Imported       int      `json:"imported"`
	Dropped        int      `json:"dropped"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// catalogRow is the raw textual form of one catalog line.
type catalogRow struct {
	SupplierNumber string `csv:"Artikel Nr."`
	InternalNumber string `csv:"eigene Artikel Nr."`
	SupplierName   string `csv:"Bezeichnung des Lief."`
	InternalName   string `csv:"eigene Artikelbez."`
	Unit           string `csv:"Inhalt-Einheit"`
	Size           string `csv:"Inhalt"`
	Price          string `csv:"Gebinde Preis"`
}

// rowReader feeds csvutil only rows that have the header's width.
// Ragged rows are counted and skipped.
type rowReader struct {
	r       *csv.Reader
	width   int
	rows    int
	dropped int
}

func (rr *rowReader) Read() ([]string, error) {
	for {
		rec, err := rr.r.Read()
		if err != nil {
			return nil, err
		}
		rr.rows++
		if len(rec) != rr.width {
			rr.dropped++
			continue
		}
		return rec, nil
	}
}

// Import parses a supplier catalog. Rows that cannot be turned into a
// Product are dropped and counted in the report; only unreadable input
// is returned as an error.
func Import(r io.Reader, supplier string, opts ImportOptions) ([]Product, ImportReport, error) {
	var report ImportReport

	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	switch strings.ToLower(opts.Encoding) {
	case "", EncodingUTF8:
	case EncodingWindows1252, "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	default:
		return nil, report, deskerrors.ValidationError(fmt.Sprintf("unsupported catalog encoding %q", opts.Encoding), nil)
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return []Product{}, report, nil
	}
	if err != nil {
		return nil, report, deskerrors.New(deskerrors.ErrCodeCatalogRead, "failed to read catalog header", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	report.MissingColumns = missingColumns(header)

	rr := &rowReader{r: cr, width: len(header)}
	dec, err := csvutil.NewDecoder(rr, header...)
	if err != nil {
		return nil, report, deskerrors.New(deskerrors.ErrCodeCatalogRead, "failed to create catalog decoder", err)
	}

	products := make([]Product, 0)
	for {
		var row catalogRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, report, deskerrors.New(deskerrors.ErrCodeCatalogRead, "failed to decode catalog row", err)
		}
		if len(report.MissingColumns) > 0 {
			report.Dropped++
			continue
		}
		p, ok := row.product(supplier)
		if !ok {
			report.Dropped++
			continue
		}
		products = append(products, p)
	}

	report.Rows = rr.rows
	report.Dropped += rr.dropped
	report.Imported = len(products)

	if report.Dropped > 0 {
		slog.Debug("catalog_rows_dropped",
			slog.String("supplier", supplier),
			slog.Int("dropped", report.Dropped),
			slog.Int("rows", report.Rows))
	}

	return products, report, nil
}

// ImportFile opens path and imports it.
func ImportFile(path, supplier string, opts ImportOptions) ([]Product, ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ImportReport{}, deskerrors.New(deskerrors.ErrCodeFileNotFound, "catalog not found: "+path, err)
		}
		return nil, ImportReport{}, deskerrors.New(deskerrors.ErrCodeCatalogRead, "cannot open catalog: "+path, err)
	}
	defer f.Close()

	return Import(f, supplier, opts)
}

// SupplierCatalog is the result of importing one supplier's file.
type SupplierCatalog struct {
	Supplier string
	Path     string
	Products []Product
	Report   ImportReport
}

// ImportFiles imports several catalogs concurrently. files maps supplier
// name to file path. Results are ordered by supplier name. The first
// failing file cancels the rest.
func ImportFiles(ctx context.Context, files map[string]string, opts ImportOptions) ([]SupplierCatalog, error) {
	suppliers := make([]string, 0, len(files))
	for s := range files {
		suppliers = append(suppliers, s)
	}
	sort.Strings(suppliers)

	out := make([]SupplierCatalog, len(suppliers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, supplier := range suppliers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := files[supplier]
			products, report, err := ImportFile(path, supplier, opts)
			if err != nil {
				return fmt.Errorf("import %s: %w", supplier, err)
			}
			out[i] = SupplierCatalog{Supplier: supplier, Path: path, Products: products, Report: report}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// product converts a raw row; ok is false when the row must be dropped.
func (row catalogRow) product(supplier string) (Product, bool) {
	supplierNumber, ok := parseLeadingInt(row.SupplierNumber)
	if !ok {
		return Product{}, false
	}
	internalNumber, ok := parseLeadingInt(row.InternalNumber)
	if !ok {
		return Product{}, false
	}
	size, ok := ParseDecimal(row.Size)
	if !ok || size == 0 {
		return Product{}, false
	}
	price, ok := ParseDecimal(row.Price)
	if !ok || price == 0 {
		return Product{}, false
	}
	return NewProduct(supplier, supplierNumber, internalNumber,
		row.SupplierName, row.InternalName, row.Unit, size, price), true
}

func missingColumns(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// parseLeadingInt parses the integer prefix of s, ignoring trailing text
// such as the apostrophe that product exports append to numbers.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDecimal parses a German formatted number ("1.234,5") and ignores
// trailing text after the numeric prefix.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
	}
	if end == start || (end == start+1 && s[start] == '.') {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
