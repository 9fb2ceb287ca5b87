package cmd

import (
	"context"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderdesk/internal/catalog"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/output"
)

func newFavoriteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorite",
		Aliases: []string{"fav"},
		Short:   "Manage favorite products",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <product>...",
		Short: "Mark products as favorites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				return setFavorites(cmd, b, args, true)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "remove <product>...",
		Aliases: []string{"rm"},
		Short:   "Remove products from the favorites",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBook(cmd, true, func(_ context.Context, b *orderbook.Book) error {
				return setFavorites(cmd, b, args, false)
			})
		},
	})
	cmd.AddCommand(newFavoriteListCmd(a))

	return cmd
}

// setFavorites toggles only the products whose state differs from want.
func setFavorites(cmd *cobra.Command, b *orderbook.Book, refs []string, want bool) error {
	out := output.New(cmd.OutOrStdout())
	for _, ref := range refs {
		i, err := resolveProduct(b, ref)
		if err != nil {
			return err
		}
		if slices.Contains(b.Favorites(), i) != want {
			if _, err := b.ToggleFavorite(i); err != nil {
				return err
			}
		}
		p, _ := b.Product(i)
		if want {
			out.Successf("%s is a favorite", p.InternalName)
		} else {
			out.Successf("%s is no longer a favorite", p.InternalName)
		}
	}
	return nil
}

func newFavoriteListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List favorites in the order they were added",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return a.withBook(cmd, false, func(_ context.Context, b *orderbook.Book) error {
				return printPositions(cmd, format, b, b.Favorites(), nil)
			})
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

// positionedProduct is the JSON form of a product listing entry.
type positionedProduct struct {
	Position int             `json:"position"`
	Quantity int             `json:"quantity,omitempty"`
	Product  catalog.Product `json:"product"`
}

// printPositions lists products by position. quantities, when non-nil,
// adds a quantity column.
func printPositions(cmd *cobra.Command, format string, b *orderbook.Book, positions []int, quantities map[int]int) error {
	out := output.New(cmd.OutOrStdout())
	products := b.Products()

	if format == formatJSON {
		entries := make([]positionedProduct, 0, len(positions))
		for _, i := range positions {
			entries = append(entries, positionedProduct{Position: i, Quantity: quantities[i], Product: products[i]})
		}
		return out.JSON(entries)
	}

	header := productHeader
	if quantities != nil {
		header = append([]string{"QTY"}, productHeader...)
	}
	rows := make([][]string, 0, len(positions))
	for _, i := range positions {
		row := productRow(i, products[i])
		if quantities != nil {
			row = append([]string{strconv.Itoa(quantities[i])}, row...)
		}
		rows = append(rows, row)
	}
	out.Table(header, rows)
	return nil
}
