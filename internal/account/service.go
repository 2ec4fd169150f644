// Package account implements tier entitlement checks and API usage tracking
// on top of a per-user key/value Store.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commercekit/internal/billing"
	"commercekit/internal/security"
	"commercekit/internal/types"
)

// UsageMetrics receives usage counters. Implementations must be safe for
// concurrent use.
type UsageMetrics interface {
	RecordUsageTracked(ctx context.Context, tier types.Tier) error
	RecordQuotaExhausted(ctx context.Context, tier types.Tier) error
	RecordUsageReset(ctx context.Context, users int64) error
}

// QuotaEventPublisher delivers quota events to downstream consumers.
type QuotaEventPublisher interface {
	PublishQuotaEvent(ctx context.Context, event types.QuotaEvent) error
}

// ServiceConfig holds the dependencies for a Service.
type ServiceConfig struct {
	Store   Store
	Catalog billing.TierCatalog
	Keys    MetaKeys
	Clock   types.Clock
	Logger  *slog.Logger

	// Metrics and Events are optional.
	Metrics UsageMetrics
	Events  QuotaEventPublisher
}

// Service is the entitlement engine and usage tracker.
type Service struct {
	store   Store
	catalog billing.TierCatalog
	keys    MetaKeys
	clock   types.Clock
	logger  *slog.Logger
	metrics UsageMetrics
	events  QuotaEventPublisher
	newID   func() string
}

// NewService creates a Service.
// If Catalog is nil, the static catalog is used.
// If Keys is zero, keys are derived from DefaultMetaPrefix.
// If Clock is nil, RealClock is used.
// If Logger is nil, slog.Default() is used.
func NewService(cfg ServiceConfig) *Service {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = billing.NewStaticTierCatalog()
	}
	keys := cfg.Keys
	if keys == (MetaKeys{}) {
		keys = NewMetaKeys(DefaultMetaPrefix)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   cfg.Store,
		catalog: catalog,
		keys:    keys,
		clock:   clock,
		logger:  logger,
		metrics: cfg.Metrics,
		events:  cfg.Events,
		newID:   newEventID,
	}
}

// Keys returns the meta keys the service reads and writes.
func (s *Service) Keys() MetaKeys {
	return s.keys
}

// GetStatus assembles the account view for userID. A user with no stored
// values is reported as free, not pro, with zero usage.
func (s *Service) GetStatus(ctx context.Context, userID int64) (types.AccountStatus, error) {
	tier, expiry, err := s.entitlement(ctx, userID)
	if err != nil {
		return types.AccountStatus{}, err
	}

	rawCount, _, err := s.store.Get(ctx, userID, s.keys.Count)
	if err != nil {
		return types.AccountStatus{}, storeError("read usage count", err)
	}

	rawSync, _, err := s.store.Get(ctx, userID, s.keys.LastSync)
	if err != nil {
		return types.AccountStatus{}, storeError("read last sync", err)
	}

	return types.AccountStatus{
		UserID:        userID,
		Tier:          tier,
		IsPro:         proActive(tier, expiry, s.clock.Now()),
		ExpiryDate:    expiry,
		APICallsCount: security.AbsInt(rawCount),
		LastSync:      parseLastSync(rawSync),
		Features:      s.catalog.FeaturesFor(tier),
	}, nil
}

// IsPro reports whether userID holds an active paid entitlement.
func (s *Service) IsPro(ctx context.Context, userID int64) (bool, error) {
	tier, expiry, err := s.entitlement(ctx, userID)
	if err != nil {
		return false, err
	}
	return proActive(tier, expiry, s.clock.Now()), nil
}

// UpdateTier sets the tier for userID and, when expiry is non-empty, the
// expiry. Both values are sanitized as text first. An unknown tier is
// rejected before anything is written.
func (s *Service) UpdateTier(ctx context.Context, userID int64, tier string, expiry string) error {
	clean := security.SecureInputs([]string{tier, expiry}, security.InputText)
	tier, expiry = clean[0], clean[1]

	t := types.Tier(tier)
	if !t.Valid() {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidTier,
			fmt.Sprintf("unknown tier %q", tier),
			nil,
			map[string]any{"tier": tier, "allowed": s.catalog.Tiers()},
		)
	}

	if err := s.store.Set(ctx, userID, s.keys.Tier, string(t)); err != nil {
		return storeError("write tier", err)
	}

	if expiry != "" {
		if err := s.store.Set(ctx, userID, s.keys.Expiry, expiry); err != nil {
			return storeError("write expiry", err)
		}
	}

	s.logger.InfoContext(ctx, "account tier updated", "user_id", userID, "tier", t)
	return nil
}

// ResetUsage zeroes the usage counter for one user and, when an event
// publisher is configured, announces the reset.
func (s *Service) ResetUsage(ctx context.Context, userID int64) error {
	if err := s.store.Set(ctx, userID, s.keys.Count, "0"); err != nil {
		return storeError("reset usage count", err)
	}
	if s.events != nil {
		s.publishReset(ctx, userID)
	}
	return nil
}

func (s *Service) publishReset(ctx context.Context, userID int64) {
	tier, _, err := s.entitlement(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping quota reset event", "user_id", userID, "error", err)
		return
	}
	event := types.QuotaEvent{
		ID:         s.newID(),
		Type:       types.QuotaEventReset,
		UserID:     userID,
		Tier:       tier,
		Count:      0,
		Limit:      s.catalog.FeaturesFor(tier).APICallsLimit,
		OccurredAt: s.clock.Now().UTC(),
	}
	if err := s.events.PublishQuotaEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish quota event", "user_id", userID, "error", err)
	}
}

// ResetAllUsage zeroes every stored usage counter and returns the number of
// users affected.
func (s *Service) ResetAllUsage(ctx context.Context) (int64, error) {
	n, err := s.store.SetAllMatching(ctx, s.keys.Count, "0")
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to reset API usage counters", "error", err)
		return 0, storeError("reset all usage counts", err)
	}

	if s.metrics != nil {
		if mErr := s.metrics.RecordUsageReset(ctx, n); mErr != nil {
			s.logger.WarnContext(ctx, "failed to record usage reset metric", "error", mErr)
		}
	}

	s.logger.InfoContext(ctx, "API usage counters reset", "users", n)
	return n, nil
}

// entitlement reads the normalized tier and raw expiry for userID.
func (s *Service) entitlement(ctx context.Context, userID int64) (types.Tier, string, error) {
	rawTier, _, err := s.store.Get(ctx, userID, s.keys.Tier)
	if err != nil {
		return "", "", storeError("read tier", err)
	}
	expiry, _, err := s.store.Get(ctx, userID, s.keys.Expiry)
	if err != nil {
		return "", "", storeError("read expiry", err)
	}
	return types.NormalizeTier(rawTier), expiry, nil
}

// parseLastSync reads a stored last sync stamp. Values written by the host
// in any of the expiry layouts are accepted; anything else reads as nil.
func parseLastSync(raw string) *time.Time {
	t, ok := parseExpiry(raw)
	if !ok {
		return nil
	}
	t = t.UTC()
	return &t
}

// storeError wraps err as an internal database AppError unless it already
// carries a code.
func storeError(op string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.NewAppError(types.ErrCodeInternalDB, "failed to "+op, err)
}
