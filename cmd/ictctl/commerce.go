package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"commercekit/internal/external"
	"commercekit/internal/security"
)

// errNoProductMeta is returned when product sync metadata is requested
// without the postgres store.
var errNoProductMeta = errors.New("product sync metadata requires the postgres store")

func (c *cli) commerceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commerce",
		Short: "Read or clear cached commerce data",
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Print the external sync feed (cached)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), c.app.Commerce.FetchSyncData(cmd.Context()))
		},
	}

	var limit string
	products := &cobra.Command{
		Use:   "products",
		Short: "Print a page of store products (cached)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := external.NormalizeProductLimit(limit)
			return writeJSON(cmd.OutOrStdout(), c.app.Commerce.FetchProducts(cmd.Context(), n))
		},
	}
	products.Flags().StringVar(&limit, "limit", "10", "products per page (1-100)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached commerce response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireNonce(actionClear, 0); err != nil {
				return err
			}
			if err := c.app.Commerce.ClearAllCaches(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "commerce caches cleared")
			return nil
		},
	}

	lastSync := &cobra.Command{
		Use:   "last-sync <product-id>",
		Short: "Print when a product was last marked synced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID := security.AbsInt(args[0])
			if productID <= 0 {
				return fmt.Errorf("product id must be a positive integer, got %q", args[0])
			}
			if c.app.ProductMeta == nil {
				return errNoProductMeta
			}
			meta, ok, err := c.app.ProductMeta.GetSyncMeta(cmd.Context(), productID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "product %d has not been synced\n", productID)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), meta)
		},
	}

	cmd.AddCommand(syncCmd, products, clearCmd, lastSync)
	return cmd
}
