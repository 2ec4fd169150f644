package main

import (
	"errors"

	"github.com/spf13/cobra"

	"commercekit/internal/app"
)

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the configured Postgres and Redis backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := app.CheckHealth(cmd.Context(), c.app.HealthProbes())
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Healthy() {
				return errors.New("one or more backends are unhealthy")
			}
			return nil
		},
	}
}
