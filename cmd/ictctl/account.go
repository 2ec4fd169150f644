package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"commercekit/internal/billing"
	"commercekit/internal/types"
)

// Nonce actions for mutating commands.
const (
	actionSetTier = "ict_set_tier"
	actionTrack   = "ict_track_usage"
	actionReset   = "ict_reset_usage"
	actionClear   = "ict_clear_cache"
)

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show tier, pro status, usage and features as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			status, err := c.app.Accounts.GetStatus(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
}

func (c *cli) isProCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "is-pro <user-id>",
		Short: "Print whether the user currently has pro entitlements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			pro, err := c.app.Accounts.IsPro(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pro)
			return nil
		},
	}
}

func (c *cli) setTierCmd() *cobra.Command {
	var expiry string
	cmd := &cobra.Command{
		Use:   "set-tier <user-id> <tier>",
		Short: "Set a user's tier (free, pro, enterprise)",
		Example: `  ictctl set-tier 42 pro --expiry 2027-01-31
  ictctl set-tier 42 free`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			if err := c.requireNonce(actionSetTier, userID); err != nil {
				return err
			}
			if err := c.app.Accounts.UpdateTier(cmd.Context(), userID, args[1], expiry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d set to %s\n", userID, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&expiry, "expiry", "", "pro expiry date (e.g. 2027-01-31); empty means no expiry")
	return cmd
}

func (c *cli) trackCmd() *cobra.Command {
	var (
		times   int
		enforce bool
	)
	cmd := &cobra.Command{
		Use:   "track <user-id>",
		Short: "Record API calls against the user's quota",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			if times < 1 {
				return fmt.Errorf("--times must be at least 1")
			}
			if err := c.requireNonce(actionTrack, userID); err != nil {
				return err
			}
			ctx := cmd.Context()
			for range times {
				if enforce {
					reached, err := c.app.Accounts.HasReachedLimit(ctx, userID)
					if err != nil {
						return err
					}
					if reached {
						return types.NewAppErrorWithDetails(types.ErrCodeLimitAPICalls,
							"API call limit reached", nil, map[string]any{"user_id": userID})
					}
				}
				if err := c.app.Accounts.TrackCall(ctx, userID); err != nil {
					return err
				}
			}
			status, err := c.app.Accounts.GetStatus(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "api_calls_count: %d (limit %s)\n",
				status.APICallsCount, status.Features.APICallsLimit)
			return nil
		},
	}
	cmd.Flags().IntVar(&times, "times", 1, "number of calls to record")
	cmd.Flags().BoolVar(&enforce, "enforce", false, "refuse calls once the tier limit is reached")
	return cmd
}

func (c *cli) limitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limit <user-id>",
		Short: "Print whether the user has reached their API call limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			reached, err := c.app.Accounts.HasReachedLimit(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reached)
			return nil
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [user-id]",
		Short: "Reset API usage for one user, or for every user when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if err := c.requireNonce(actionReset, 0); err != nil {
					return err
				}
				n, err := c.app.Accounts.ResetAllUsage(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "reset usage for %d users\n", n)
				return nil
			}

			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			if err := c.requireNonce(actionReset, userID); err != nil {
				return err
			}
			if err := c.app.Accounts.ResetUsage(ctx, userID); err != nil {
				return err
			}
			fmt.Fprintf(out, "reset usage for user %d\n", userID)
			return nil
		},
	}
}

func (c *cli) featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "features [tier]",
		Short:       "Print the feature set for a tier, or for every tier",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipAppAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := billing.NewStaticTierCatalog()
			if len(args) == 1 {
				// Unknown tiers get the free feature set.
				return writeJSON(cmd.OutOrStdout(), catalog.FeaturesFor(types.Tier(args[0])))
			}
			all := make(map[types.Tier]types.FeatureSet)
			for _, t := range catalog.Tiers() {
				all[t] = catalog.FeaturesFor(t)
			}
			return writeJSON(cmd.OutOrStdout(), all)
		},
	}
}
