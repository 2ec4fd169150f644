// Package billing provides the tier catalog: the authoritative mapping from
// a subscription tier to the features and quotas it grants.
package billing

import "commercekit/internal/types"

// TierCatalog defines the feature set for each tier.
type TierCatalog interface {
	// FeaturesFor returns the features for the given tier. Unknown tiers
	// receive the free feature set.
	FeaturesFor(tier types.Tier) types.FeatureSet

	// Tiers lists the known tiers from least to most capable.
	Tiers() []types.Tier
}

// staticTierCatalog is a compile-time catalog backed by an in-memory map.
type staticTierCatalog struct {
	features map[types.Tier]types.FeatureSet
}

// tierDefaults holds the fixed catalog:
//
//	| Tier       | API Calls | Sync      | External APIs | Priority | Caching |
//	|------------|-----------|-----------|---------------|----------|---------|
//	| free       | 100       | daily     | 1             | no       | no      |
//	| pro        | 1,000     | hourly    | 5             | yes      | yes     |
//	| enterprise | unlimited | real-time | unlimited     | yes      | yes     |
var tierDefaults = map[types.Tier]types.FeatureSet{
	types.TierFree: {
		APICallsLimit:   types.Limited(100),
		SyncFrequency:   types.SyncDaily,
		ExternalAPIs:    types.Limited(1),
		PrioritySupport: false,
		AdvancedCaching: false,
	},
	types.TierPro: {
		APICallsLimit:   types.Limited(1000),
		SyncFrequency:   types.SyncHourly,
		ExternalAPIs:    types.Limited(5),
		PrioritySupport: true,
		AdvancedCaching: true,
	},
	types.TierEnterprise: {
		APICallsLimit:   types.Unlimited(),
		SyncFrequency:   types.SyncRealTime,
		ExternalAPIs:    types.Unlimited(),
		PrioritySupport: true,
		AdvancedCaching: true,
	},
}

var tierOrder = []types.Tier{types.TierFree, types.TierPro, types.TierEnterprise}

// freeFeatures is cached to avoid map lookups on the fallback path.
var freeFeatures = tierDefaults[types.TierFree]

// NewStaticTierCatalog returns a TierCatalog backed by the fixed defaults.
func NewStaticTierCatalog() TierCatalog {
	// Copy so callers cannot mutate the package-level map.
	m := make(map[types.Tier]types.FeatureSet, len(tierDefaults))
	for k, v := range tierDefaults {
		m[k] = v
	}
	return &staticTierCatalog{features: m}
}

// FeaturesFor returns the features for tier, falling back to free.
func (c *staticTierCatalog) FeaturesFor(tier types.Tier) types.FeatureSet {
	if fs, ok := c.features[tier]; ok {
		return fs
	}
	return freeFeatures
}

// Tiers returns a fresh copy of the ordered tier list.
func (c *staticTierCatalog) Tiers() []types.Tier {
	out := make([]types.Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}
