package cmd

import (
	"context"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/export"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/output"
)

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List, export and remove supplier catalogs",
	}

	var format string
	list := &cobra.Command{
		Use:     "list <supplier>",
		Aliases: []string{"ls"},
		Short:   "List the products of one supplier",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return a.withBook(cmd, false, func(_ context.Context, b *orderbook.Book) error {
				var positions []int
				for i, p := range b.Products() {
					if p.Supplier == args[0] {
						positions = append(positions, i)
					}
				}
				return printPositions(cmd, format, b, positions, nil)
			})
		},
	}
	addFormatFlag(list, &format)
	cmd.AddCommand(list)

	var outDir string
	exp := &cobra.Command{
		Use:   "export <supplier>",
		Short: "Write a supplier's catalog in import format",
		Long: `Write a supplier's products as "<supplier>.csv" in the same format
'orderdesk import' reads, so the catalog can be edited and re-imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBook(cmd, false, func(_ context.Context, b *orderbook.Book) error {
				products := b.SupplierProducts(args[0])
				if len(products) == 0 {
					return deskerrors.ValidationError("no products for supplier "+args[0], nil).
						WithSuggestion("Run 'orderdesk suppliers' to list the imported suppliers")
				}
				path := filepath.Join(outDir, export.ProductsFileName(args[0]))
				if err := writeExportFile(path, func(w io.Writer) error {
					return export.Products(w, products, a.cfg.ExportOptions())
				}); err != nil {
					return err
				}
				output.New(cmd.OutOrStdout()).Successf("Wrote %d products to %s", len(products), path)
				return nil
			})
		},
	}
	exp.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the file to")
	cmd.AddCommand(exp)

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <supplier>",
		Aliases: []string{"rm"},
		Short:   "Remove a supplier and its products",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				report, err := b.RemoveSupplier(args[0])
				if err != nil {
					return err
				}
				out := output.New(cmd.OutOrStdout())
				out.Successf("Removed %s (%d products)", args[0], report.ProductsBefore-report.ProductsAfter)
				if report.LinesInvalidated > 0 {
					out.Warningf("%d order line(s) now refer to removed products", report.LinesInvalidated)
				}
				return nil
			})
		},
	})

	return cmd
}
