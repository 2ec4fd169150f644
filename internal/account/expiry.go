package account

import (
	"strings"
	"time"

	"commercekit/internal/types"
)

// expiryLayouts are tried in order. Layouts without a zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339,
	types.MySQLDateTime,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseExpiry interprets a stored expiry value. ok is false for values that
// match none of the accepted layouts.
func parseExpiry(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range expiryLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// proActive applies the entitlement rule: a paid tier with no expiry, or
// with an expiry strictly in the future. Unparsable expiries deny.
func proActive(tier types.Tier, expiry string, now time.Time) bool {
	if !tier.Paid() {
		return false
	}
	if strings.TrimSpace(expiry) == "" {
		return true
	}
	t, ok := parseExpiry(expiry)
	if !ok {
		return false
	}
	return t.After(now)
}
