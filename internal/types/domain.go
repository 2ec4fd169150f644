package types

import "time"

// MySQLDateTime is the layout used for timestamps persisted in meta values,
// matching the host platform's "Y-m-d H:i:s" format.
const MySQLDateTime = "2006-01-02 15:04:05"

// FeatureSet describes what a tier is entitled to.
type FeatureSet struct {
	APICallsLimit   Limit         `json:"api_calls_limit"`
	SyncFrequency   SyncFrequency `json:"sync_frequency"`
	ExternalAPIs    Limit         `json:"external_apis"`
	PrioritySupport bool          `json:"priority_support"`
	AdvancedCaching bool          `json:"advanced_caching"`
}

// AccountStatus is the composite view of a user's entitlement and usage.
type AccountStatus struct {
	UserID        int64      `json:"user_id"`
	Tier          Tier       `json:"tier"`
	IsPro         bool       `json:"is_pro"`
	ExpiryDate    string     `json:"expiry_date"`
	APICallsCount int64      `json:"api_calls_count"`
	LastSync      *time.Time `json:"last_sync"`
	Features      FeatureSet `json:"features"`
}

// QuotaEvent is published when a user's usage crosses a quota boundary.
type QuotaEvent struct {
	ID         string         `json:"id"`
	Type       QuotaEventType `json:"type"`
	UserID     int64          `json:"user_id"`
	Tier       Tier           `json:"tier"`
	Count      int64          `json:"count"`
	Limit      Limit          `json:"limit"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// ProductSyncMeta records when a commerce product was last synced.
type ProductSyncMeta struct {
	ProductID  int64     `json:"product_id"`
	LastSynced time.Time `json:"last_synced"`
}
