package types

// Tier identifies a subscription level.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// Paid reports whether the tier is eligible for pro features, before any
// expiry is taken into account.
func (t Tier) Paid() bool {
	return t == TierPro || t == TierEnterprise
}

// NormalizeTier maps a stored tier value to a known Tier. Empty and
// unrecognized values become TierFree.
func NormalizeTier(raw string) Tier {
	t := Tier(raw)
	if t.Valid() {
		return t
	}
	return TierFree
}

// SyncFrequency is the cadence at which a tier may sync external data.
type SyncFrequency string

const (
	SyncDaily    SyncFrequency = "daily"
	SyncHourly   SyncFrequency = "hourly"
	SyncRealTime SyncFrequency = "real-time"
)

// QuotaEventType names the kind of quota event published to the queue.
type QuotaEventType string

const (
	QuotaEventExhausted QuotaEventType = "quota_exhausted"
	QuotaEventReset     QuotaEventType = "quota_reset"
)
