package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kakeibo/internal/cli"
	"kakeibo/internal/core"
)

var (
	flagPlace string
	flagPrice string
	flagNote  string
)

var shoppingCmd = &cobra.Command{
	Use:     "shopping",
	Aliases: []string{"shop"},
	Short:   "Manage the shared shopping list",
}

var shoppingListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the shopping list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(cmd, func(l *cli.Ledger) error {
			entries, warnings, err := l.Service.ListShopping(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "  The shopping list is empty.")
			} else {
				fmt.Fprint(cmd.OutOrStdout(), cli.RenderShopping(entries))
			}
			fmt.Fprint(cmd.ErrOrStderr(), cli.RenderWarnings("shopping", warnings))
			return nil
		})
	},
}

var shoppingAddCmd = &cobra.Command{
	Use:   "add <item>",
	Short: "Add a pending item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := core.ParsePrice(flagPrice)
		if err != nil {
			return fmt.Errorf("--price %q: %w", flagPrice, err)
		}
		item := core.ShoppingItem{
			Name:          args[0],
			Place:         flagPlace,
			ExpectedPrice: price,
			Status:        core.Pending,
			Memo:          flagNote,
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			if _, err := l.Service.AddShoppingItem(cmd.Context(), item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Added %s.\n", item.Name)
			return nil
		})
	},
}

var shoppingToggleCmd = &cobra.Command{
	Use:   "toggle <index>",
	Short: "Mark an item purchased, or pending again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index %q is not a number", args[0])
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			item, err := l.Service.ToggleShoppingItem(cmd.Context(), index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s is now %s.\n", item.Name, item.Status)
			return nil
		})
	},
}

func init() {
	shoppingAddCmd.Flags().StringVar(&flagPlace, "place", "", "Where to buy it")
	shoppingAddCmd.Flags().StringVar(&flagPrice, "price", "", "Expected price")
	shoppingAddCmd.Flags().StringVarP(&flagNote, "memo", "m", "", "Memo")

	shoppingCmd.AddCommand(shoppingListCmd, shoppingAddCmd, shoppingToggleCmd)
	rootCmd.AddCommand(shoppingCmd)
}
