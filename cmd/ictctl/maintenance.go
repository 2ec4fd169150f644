package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"commercekit/internal/scheduler"
)

// maintenanceCmd runs scheduled tasks in-process, without job locks.
func (c *cli) maintenanceCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:       "maintenance <task>",
		Short:     "Run a maintenance task now (reset_usage, refresh_commerce_cache, clear_commerce_cache)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(scheduler.TaskResetUsage), string(scheduler.TaskRefreshCommerce), string(scheduler.TaskClearCommerce)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			task := scheduler.TaskType(args[0])

			switch task {
			case scheduler.TaskResetUsage:
				users, ran, err := c.app.Resetter.ResetMonthly(ctx, c.app.Clock.Now(), force)
				if err != nil {
					return err
				}
				if !ran {
					fmt.Fprintln(out, "skipped: not the first day of the month (use --force)")
					return nil
				}
				fmt.Fprintf(out, "reset usage for %d users\n", users)
			case scheduler.TaskRefreshCommerce:
				res, err := c.app.Refresher.Refresh(ctx)
				if err != nil {
					return err
				}
				return writeJSON(out, res)
			case scheduler.TaskClearCommerce:
				if err := c.app.Refresher.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "commerce caches cleared")
			default:
				return fmt.Errorf("unknown task %q", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "run date-gated tasks outside their window")
	return cmd
}
