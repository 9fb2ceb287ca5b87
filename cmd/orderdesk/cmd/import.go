package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/output"
)

func newImportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [SUPPLIER=]FILE...",
		Short: "Import supplier catalog files",
		Long: `Import one or more supplier catalog CSV files.

Each file replaces the catalog of one supplier. The supplier name defaults
to the file name without extension; use SUPPLIER=FILE to set it.
Favorites, default quantities and order lines follow their products to
their new positions. Order lines of products that disappeared are kept as
invalid lines.`,
		Example: `  orderdesk import Metro.csv
  orderdesk import "Selgros Süd=exports/selgros.csv" Aldi.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			files, err := importArgs(args)
			if err != nil {
				return err
			}
			return a.withBook(cmd, true, func(ctx context.Context, b *orderbook.Book) error {
				results, err := b.ImportFiles(ctx, files, a.cfg.ImportOptions())
				if err != nil {
					return err
				}
				return printImport(cmd, format, results)
			})
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

// importArgs maps supplier names to file paths.
func importArgs(args []string) (map[string]string, error) {
	files := make(map[string]string, len(args))
	for _, arg := range args {
		supplier, path, ok := strings.Cut(arg, "=")
		if !ok {
			path = arg
			supplier = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		supplier = strings.TrimSpace(supplier)
		if supplier == "" || path == "" {
			return nil, deskerrors.ValidationError(fmt.Sprintf("invalid import argument %q", arg), nil).
				WithSuggestion("Use FILE or SUPPLIER=FILE")
		}
		if prev, dup := files[supplier]; dup {
			return nil, deskerrors.ValidationError(
				fmt.Sprintf("supplier %q given twice (%s and %s)", supplier, prev, path), nil)
		}
		files[supplier] = path
	}
	return files, nil
}

func printImport(cmd *cobra.Command, format string, results []orderbook.ImportResult) error {
	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		return out.JSON(results)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Supplier,
			strconv.Itoa(r.Catalog.Imported),
			strconv.Itoa(r.Catalog.Dropped),
			strconv.Itoa(r.Reload.FavoritesDropped + r.Reload.DefaultsDropped),
			strconv.Itoa(r.Reload.LinesInvalidated),
		})
	}
	out.Table([]string{"SUPPLIER", "IMPORTED", "SKIPPED ROWS", "DROPPED SELECTIONS", "INVALID LINES"}, rows)
	out.Newline()
	for _, r := range results {
		if len(r.Catalog.MissingColumns) > 0 {
			out.Warningf("%s: missing columns %s", r.Supplier, strings.Join(r.Catalog.MissingColumns, ", "))
		}
	}
	out.Successf("Imported %d supplier catalog(s)", len(results))
	return nil
}
