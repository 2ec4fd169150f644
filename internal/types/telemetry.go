package types

// Telemetry metric names for CloudWatch.
const (
	// Metric Names
	MetricUsageTracked   = "UsageTracked"
	MetricQuotaExhausted = "QuotaExhausted"
	MetricUsageReset     = "UsageReset"
	MetricCacheHit       = "CommerceCacheHit"
	MetricCacheMiss      = "CommerceCacheMiss"
	MetricFetchFailure   = "CommerceFetchFailure"

	// Dimension Keys
	DimTier     = "Tier"
	DimCacheKey = "CacheKey"
	DimReason   = "Reason"

	// Metric Namespace
	MetricNamespace = "CommerceKit"
)
