package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// UsageBulkResetter zeroes every stored usage counter.
type UsageBulkResetter interface {
	ResetAllUsage(ctx context.Context) (int64, error)
}

// UsageResetter runs the monthly usage counter reset.
type UsageResetter struct {
	accounts UsageBulkResetter
	logger   *slog.Logger
}

func NewUsageResetter(accounts UsageBulkResetter, logger *slog.Logger) *UsageResetter {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageResetter{accounts: accounts, logger: logger}
}

// ResetMonthly resets all counters when now falls on the first day of the
// month (UTC) or force is set. ran reports whether the reset executed.
func (r *UsageResetter) ResetMonthly(ctx context.Context, now time.Time, force bool) (users int64, ran bool, err error) {
	if now.UTC().Day() != 1 && !force {
		r.logger.InfoContext(ctx, "skipping usage reset outside billing period start",
			"reference_time", now.UTC().Format(time.RFC3339))
		return 0, false, nil
	}

	users, err = r.accounts.ResetAllUsage(ctx)
	if err != nil {
		return 0, true, err
	}

	r.logger.InfoContext(ctx, "monthly usage reset complete", "users", users, "forced", force)
	return users, true, nil
}
