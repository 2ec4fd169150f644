package account

import (
	"context"
	"time"

	"github.com/google/uuid"

	"commercekit/internal/types"
)

func newEventID() string {
	return uuid.NewString()
}

// TrackCall records one API call for userID and stamps the last sync time.
// The increment is delegated to the store so concurrent calls are not lost.
func (s *Service) TrackCall(ctx context.Context, userID int64) error {
	count, err := s.store.Increment(ctx, userID, s.keys.Count)
	if err != nil {
		return storeError("increment usage count", err)
	}

	now := s.clock.Now().UTC()
	if err := s.store.Set(ctx, userID, s.keys.LastSync, now.Format(types.MySQLDateTime)); err != nil {
		return storeError("write last sync", err)
	}

	if s.metrics == nil && s.events == nil {
		return nil
	}

	// Hooks are best-effort; a failed tier read only skips them.
	tier, _, err := s.entitlement(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping usage hooks", "user_id", userID, "error", err)
		return nil
	}
	s.afterTrack(ctx, userID, tier, count, now)
	return nil
}

// HasReachedLimit reports whether userID's usage has reached the API call
// limit of the current tier. Unlimited tiers never reach it.
func (s *Service) HasReachedLimit(ctx context.Context, userID int64) (bool, error) {
	status, err := s.GetStatus(ctx, userID)
	if err != nil {
		return false, err
	}
	return status.Features.APICallsLimit.Exceeded(status.APICallsCount), nil
}

func (s *Service) afterTrack(ctx context.Context, userID int64, tier types.Tier, count int64, now time.Time) {
	if s.metrics != nil {
		if err := s.metrics.RecordUsageTracked(ctx, tier); err != nil {
			s.logger.WarnContext(ctx, "failed to record usage metric", "user_id", userID, "error", err)
		}
	}

	limit := s.catalog.FeaturesFor(tier).APICallsLimit
	n, bounded := limit.Value()
	if !bounded || count != n {
		return
	}

	s.logger.InfoContext(ctx, "API call quota exhausted", "user_id", userID, "tier", tier, "count", count)

	if s.metrics != nil {
		if err := s.metrics.RecordQuotaExhausted(ctx, tier); err != nil {
			s.logger.WarnContext(ctx, "failed to record quota metric", "user_id", userID, "error", err)
		}
	}

	if s.events != nil {
		event := types.QuotaEvent{
			ID:         s.newID(),
			Type:       types.QuotaEventExhausted,
			UserID:     userID,
			Tier:       tier,
			Count:      count,
			Limit:      limit,
			OccurredAt: now,
		}
		if err := s.events.PublishQuotaEvent(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish quota event", "user_id", userID, "error", err)
		}
	}
}
