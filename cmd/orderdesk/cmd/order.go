package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/export"
	"github.com/Aman-CERP/orderdesk/internal/order"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/output"
)

func newOrderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Manage and export the current order",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "add <product> <amount>",
		Short:   "Add an order line at the product's current unit price",
		Example: "  orderdesk order add 12 3\n  orderdesk order add Metro/1001 2",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseInt(args[1], "amount")
			if err != nil {
				return err
			}
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				i, err := resolveProduct(b, args[0])
				if err != nil {
					return err
				}
				l, err := b.AddLine(i, amount)
				if err != nil {
					return err
				}
				p, _ := b.Product(i)
				output.New(cmd.OutOrStdout()).Successf("Ordered %d × %s at %s",
					l.Amount, p.InternalName, export.FormatEuro(l.UnitPrice))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <line>",
		Aliases: []string{"rm"},
		Short:   "Remove an order line by its number in 'order list'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseInt(args[0], "line number")
			if err != nil {
				return err
			}
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				if err := b.RemoveLine(n); err != nil {
					return err
				}
				output.New(cmd.OutOrStdout()).Successf("Removed line %d", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "apply-defaults",
		Short: "Add one order line per default quantity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				n := b.ApplyDefaults()
				output.New(cmd.OutOrStdout()).Successf("Added %d order line(s)", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every order line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				b.ClearLines()
				output.New(cmd.OutOrStdout()).Success("Order cleared")
				return nil
			})
		},
	})

	cmd.AddCommand(newOrderListCmd(a))
	cmd.AddCommand(newOrderExportCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "attachment",
		Short: "Print the compact order as UTF-8 text for an e-mail attachment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBook(cmd, false, func(_ context.Context, b *orderbook.Book) error {
				body, err := export.Attachment(b.ResolvedLines())
				if err != nil {
					return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to render attachment", err)
				}
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			})
		},
	})

	return cmd
}

func newOrderListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the order lines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return a.withBook(cmd, false, func(_ context.Context, b *orderbook.Book) error {
				return printLines(cmd, format, b.ResolvedLines())
			})
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

func printLines(cmd *cobra.Command, format string, lines []order.Line) error {
	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		return out.JSON(lines)
	}
	if len(lines) == 0 {
		out.Status("", "The order is empty.")
		return nil
	}

	var total float64
	invalid := 0
	rows := make([][]string, 0, len(lines))
	for n, l := range lines {
		pos, supplier, name := "-", "", "(unknown product)"
		if l.Product != nil {
			supplier, name = l.Product.Supplier, l.Product.InternalName
		}
		if l.Invalid {
			invalid++
			name += " [no longer in catalog]"
		} else {
			pos = strconv.Itoa(l.Index)
		}
		total += l.Value()
		rows = append(rows, []string{
			strconv.Itoa(n),
			pos,
			supplier,
			strconv.Itoa(l.Amount),
			export.FormatEuro(l.UnitPrice),
			export.FormatEuro(l.Value()),
			name,
		})
	}
	out.Table([]string{"LINE", "POS", "SUPPLIER", "AMOUNT", "UNIT PRICE", "VALUE", "NAME"}, rows)
	out.Newline()
	out.Statusf("", "Total: %s", export.FormatEuro(total))
	if invalid > 0 {
		out.Warningf("%d line(s) refer to products no longer in the catalog", invalid)
	}
	return nil
}

func newOrderExportCmd(a *app) *cobra.Command {
	var (
		kinds  []string
		entry  string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the order as accounting CSV files",
		Long: `Write the current order in one or more export formats:

  orders      one row per order line
  compact     names, container and amount only
  total       one row per product with summed amounts
  categories  order value per accounting category

Files are named "<prefix><entry> <cost center>_<client>_Bestellung.csv";
client and cost center come from the export section of the config.`,
		Example: `  orderdesk order export --entry 2026-10
  orderdesk order export --kind total --kind categories --out ~/Downloads`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := parseKinds(kinds)
			if err != nil {
				return err
			}
			if entry == "" {
				entry = time.Now().Format("2006-01-02")
			}
			return a.withBook(cmd, false, func(_ context.Context, b *orderbook.Book) error {
				lines := b.ResolvedLines()
				out := output.New(cmd.OutOrStdout())
				opts := a.cfg.ExportOptions()
				for _, k := range selected {
					name := export.FileName(k, entry, a.cfg.Export.Client, a.cfg.Export.CostCenter)
					path := filepath.Join(outDir, name)
					if err := writeExportFile(path, func(w io.Writer) error {
						return writeOrderExport(w, k, lines, opts)
					}); err != nil {
						return err
					}
					out.Successf("Wrote %s", path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", []string{string(export.KindOrders)}, "Export kinds: orders, compact, total, categories or all (repeatable)")
	cmd.Flags().StringVarP(&entry, "entry", "e", "", "Entry label used in the file names (default: today's date)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the files to")

	return cmd
}

func parseKinds(names []string) ([]export.Kind, error) {
	var kinds []export.Kind
	for _, n := range names {
		if n == "all" {
			return export.Kinds(), nil
		}
		k, err := export.ParseKind(n)
		if err != nil || k == export.KindProducts {
			return nil, deskerrors.ValidationError("unknown order export kind "+strconv.Quote(n), err).
				WithSuggestion("Use orders, compact, total, categories or all")
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func writeOrderExport(w io.Writer, k export.Kind, lines []order.Line, opts export.Options) error {
	switch k {
	case export.KindCompact:
		return export.OrdersCompact(w, lines, opts)
	case export.KindTotal:
		return export.OrdersTotal(w, lines, opts)
	case export.KindCategories:
		return export.Categories(w, order.TallyCategories(lines), opts)
	default:
		return export.Orders(w, lines, opts)
	}
}

// writeExportFile writes to a temporary file next to path and renames it
// into place once fn succeeded.
func writeExportFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to create export directory", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to create export file", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to close export file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return deskerrors.New(deskerrors.ErrCodeExportWrite, "failed to move export file into place", err).
			WithDetail("path", path)
	}
	return nil
}
