package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/output"
)

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Assign accounting categories to products",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <product> <category>",
		Short: "Assign a category by number or name (0 clears it)",
		Example: `  orderdesk category set Metro/1001 Lebensmittel
  orderdesk category set 12 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.ParseCategory(args[1])
			if err != nil {
				return err
			}
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				i, err := resolveProduct(b, args[0])
				if err != nil {
					return err
				}
				if err := b.SetCategory(i, c); err != nil {
					return err
				}
				p, _ := b.Product(i)
				output.New(cmd.OutOrStdout()).Successf("%s: %s", p.InternalName, c)
				return nil
			})
		},
	})

	var format string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the available categories",
		Args:    cobra.NoArgs,
		// Needs no database.
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			cats := catalog.Categories()
			if format == formatJSON {
				names := make(map[int]string, len(cats))
				for _, c := range cats {
					names[int(c)] = c.Name()
				}
				return out.JSON(names)
			}
			rows := make([][]string, 0, len(cats))
			for _, c := range cats {
				rows = append(rows, []string{strconv.Itoa(int(c)), c.Name()})
			}
			out.Table([]string{"ID", "CATEGORY"}, rows)
			return nil
		},
	}
	addFormatFlag(list, &format)
	cmd.AddCommand(list)

	return cmd
}
