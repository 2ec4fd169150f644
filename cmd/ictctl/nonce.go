package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) nonceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Issue action tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "issue <action> <user-id>",
		Short: "Print a token for action and user (use 0 for all-user actions)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Nonces == nil {
				return fmt.Errorf("NONCE_SECRET is not configured")
			}
			var userID int64
			if args[1] != "0" {
				id, err := parseUserID(args[1])
				if err != nil {
					return err
				}
				userID = id
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.app.Nonces.Issue(args[0], userID))
			return nil
		},
	})
	return cmd
}
