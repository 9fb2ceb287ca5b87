package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/export"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/output"
	"github.com/Aman-CERP/orderdesk/internal/search"
)

// productHit is the JSON form of a product search result.
type productHit struct {
	Position    int               `json:"position"`
	Score       float64           `json:"score"`
	Product     catalog.Product   `json:"product"`
	Highlighted map[string]string `json:"highlighted"`
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		suppliers []string
		limit     int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search the product catalog",
		Long: `Search products by internal and supplier name. Typos are tolerated;
every word of the query must match.

Positions in the result can be passed to favorite, default, order and
category commands.`,
		Example: `  orderdesk search kaffee
  orderdesk search "vollmilch 1l" --supplier Metro --limit 5
  orderdesk search tee --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Search.MaxResults
			}
			params := search.Params{
				Limit:  limit,
				Marker: marker(cmd.OutOrStdout(), format == formatJSON),
			}
			var filter []string
			if cmd.Flags().Changed("supplier") {
				filter = suppliers
			}

			return a.withBook(cmd, false, func(ctx context.Context, b *orderbook.Book) error {
				results, err := b.SearchProducts(ctx, args[0], filter, params)
				if err != nil {
					return err
				}
				return printProductHits(cmd, format, b, results)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&suppliers, "supplier", "s", nil, "Only show products of these suppliers (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default from config, 0 = unlimited)")
	addFormatFlag(cmd, &format)

	return cmd
}

func printProductHits(cmd *cobra.Command, format string, b *orderbook.Book, results []search.Result) error {
	out := output.New(cmd.OutOrStdout())
	products := b.Products()

	if format == formatJSON {
		hits := make([]productHit, 0, len(results))
		for _, r := range results {
			hits = append(hits, productHit{
				Position:    r.Index,
				Score:       r.Score,
				Product:     products[r.Index],
				Highlighted: r.Fields,
			})
		}
		return out.JSON(hits)
	}

	if len(results) == 0 {
		out.Status("", "No products found.")
		return nil
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		p := products[r.Index]
		rows = append(rows, []string{
			strconv.Itoa(r.Index),
			p.Supplier,
			strconv.Itoa(p.SupplierProductNumber),
			export.FormatEuro(p.UnitPrice) + "/" + p.ContainerUnit,
			r.Fields[search.FieldInternalName],
			r.Fields[search.FieldSupplierName],
		})
	}
	out.Table([]string{"POS", "SUPPLIER", "NUMBER", "UNIT PRICE", "NAME", "SUPPLIER NAME"}, rows)
	return nil
}

func newSuppliersCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "suppliers [query]",
		Short: "List suppliers, optionally fuzzy filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return a.withBook(cmd, false, func(ctx context.Context, b *orderbook.Book) error {
				out := output.New(cmd.OutOrStdout())
				if len(args) == 0 {
					names := b.Suppliers()
					if format == formatJSON {
						return out.JSON(names)
					}
					rows := make([][]string, 0, len(names))
					for _, n := range names {
						rows = append(rows, []string{n, strconv.Itoa(len(b.SupplierProducts(n)))})
					}
					out.Table([]string{"SUPPLIER", "PRODUCTS"}, rows)
					return nil
				}

				results, err := b.SearchSuppliers(ctx, args[0], search.Params{
					Marker: marker(cmd.OutOrStdout(), format == formatJSON),
				})
				if err != nil {
					return err
				}
				if format == formatJSON {
					return out.JSON(results)
				}
				for _, r := range results {
					out.Status("", r.Display)
				}
				return nil
			})
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}
