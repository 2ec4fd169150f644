// Command ictctl is the operator CLI for account entitlements, usage quotas
// and the commerce data cache.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"commercekit/internal/app"
	"commercekit/internal/config"
	"commercekit/internal/security"
	"commercekit/internal/types"
)

// skipAppAnnotation marks commands that run without opening the backends.
const skipAppAnnotation = "ictctl/skip-app"

// openFunc builds the application for a command invocation.
type openFunc func(ctx context.Context, opts app.Options) (*app.App, error)

type cli struct {
	open         openFunc
	storeBackend string
	cacheBackend string
	nonce        string

	app *app.App
}

func defaultOpen(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.LoadConfig(config.NewFileSecretProvider(""))
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so stdout stays machine-readable.
	logger := app.NewLogger(cfg.LogLevel, os.Stderr)
	return app.New(ctx, cfg, logger, opts)
}

func newRootCmd(open openFunc) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "ictctl",
		Short:         "Manage tiers, API usage quotas and commerce caches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipAppAnnotation] != "" {
				return nil
			}
			a, err := c.open(cmd.Context(), app.Options{
				Store: c.storeBackend,
				Cache: c.cacheBackend,
			})
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
				c.app = nil
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.storeBackend, "store", app.BackendAuto, "account store backend: memory|postgres (default: postgres when DATABASE_URL is set)")
	flags.StringVar(&c.cacheBackend, "cache", app.BackendAuto, "cache backend: memory|redis (default: redis when REDIS_URL is set)")
	flags.StringVar(&c.nonce, "nonce", "", "action token, required for mutating commands when ICT_REQUIRE_NONCE is set")

	root.AddCommand(
		c.statusCmd(),
		c.isProCmd(),
		c.setTierCmd(),
		c.trackCmd(),
		c.limitCmd(),
		c.resetCmd(),
		c.featuresCmd(),
		c.commerceCmd(),
		c.maintenanceCmd(),
		c.nonceCmd(),
		c.healthCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipAppAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			info := config.NewBuildInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ictctl %s\n", info.Version)
			if info.Commit != "none" {
				fmt.Fprintf(out, "Commit: %s\n", info.Commit)
			}
			if info.BuildTime != "unknown" {
				fmt.Fprintf(out, "Built: %s\n", info.BuildTime)
			}
		},
	}
}

// requireNonce verifies --nonce for action when the deployment demands it.
func (c *cli) requireNonce(action string, userID int64) error {
	if !c.app.Config.Account.RequireNonce {
		return nil
	}
	if c.app.Nonces == nil {
		return fmt.Errorf("ICT_REQUIRE_NONCE is set but NONCE_SECRET is not configured")
	}
	if c.nonce == "" || !c.app.Nonces.Verify(c.nonce, action, userID) {
		return types.NewAppErrorWithDetails(types.ErrCodeAuthNonceInvalid,
			fmt.Sprintf("invalid or expired nonce for %s", action), nil,
			map[string]any{"action": action, "user_id": userID})
	}
	return nil
}

func parseUserID(raw string) (int64, error) {
	id := security.AbsInt(raw)
	if id <= 0 {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidUser,
			fmt.Sprintf("user id must be a positive integer, got %q", raw), nil)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd(defaultOpen).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
