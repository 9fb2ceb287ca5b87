package cmd

import (
	"context"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/output"
)

func newDefaultCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Manage default order quantities",
		Long: `Default quantities are products ordered regularly. 'orderdesk order
apply-defaults' turns them into order lines.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set <product> <quantity>",
		Short:   "Set the default quantity of a product (0 removes it)",
		Example: "  orderdesk default set Metro/1001 4",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseInt(args[1], "quantity")
			if err != nil {
				return err
			}
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				i, err := resolveProduct(b, args[0])
				if err != nil {
					return err
				}
				if err := b.SetDefault(i, qty); err != nil {
					return err
				}
				p, _ := b.Product(i)
				out := output.New(cmd.OutOrStdout())
				if qty == 0 {
					out.Successf("Removed default for %s", p.InternalName)
				} else {
					out.Successf("Default for %s set to %d", p.InternalName, qty)
				}
				return nil
			})
		},
	})

	var format string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List default quantities",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return a.withBook(cmd, false, func(_ context.Context, b *orderbook.Book) error {
				defaults := b.Defaults()
				return printPositions(cmd, format, b, slices.Sorted(maps.Keys(defaults)), defaults)
			})
		},
	}
	addFormatFlag(list, &format)
	cmd.AddCommand(list)

	return cmd
}
