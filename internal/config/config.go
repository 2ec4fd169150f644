// Package config defines the process configuration. It is loaded once at
// startup (CLI invocation or Lambda cold start) and is immutable afterwards.
//
// Values are resolved in priority order:
//
//	OS Environment (Highest) -> Dotenv File -> Mounted Secret Files (Lowest)
//
// A missing required value or invalid format fails startup.
package config

import (
	"time"

	"commercekit/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for it.
type SecretString = types.SecretString

// Config is the top-level configuration.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"commercekit"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Account       AccountConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Commerce      CommerceConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// AccountConfig controls how account meta is keyed and how action tokens
// are issued.
type AccountConfig struct {
	MetaPrefix    string        `envconfig:"ACCOUNT_META_PREFIX" default:"_ict" validate:"required,startswith=_"`
	NonceSecret   SecretString  `envconfig:"NONCE_SECRET" validate:"omitempty,min=16"`
	NonceLifetime time.Duration `envconfig:"NONCE_LIFETIME" default:"24h"`
	RequireNonce  bool          `envconfig:"ICT_REQUIRE_NONCE" default:"false"`
}

// DatabaseConfig holds connection and pool settings. An empty URL means the
// in-memory store is used.
type DatabaseConfig struct {
	URL             SecretString  `envconfig:"DATABASE_URL" validate:"omitempty,url"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// RedisConfig holds cache settings. An empty URL means the in-memory cache
// is used.
type RedisConfig struct {
	URL               SecretString `envconfig:"REDIS_URL" validate:"omitempty,url"`
	KeyPrefix         string       `envconfig:"REDIS_KEY_PREFIX" default:"commercekit:"`
	CompressThreshold int          `envconfig:"REDIS_COMPRESS_THRESHOLD" default:"1024"`
}

// CommerceConfig configures the external sync feed and the store API.
type CommerceConfig struct {
	SyncEndpoint         string        `envconfig:"COMMERCE_SYNC_ENDPOINT" default:"https://api.mockaroo.com/api/test_data" validate:"required,url"`
	SyncAPIKey           SecretString  `envconfig:"COMMERCE_SYNC_API_KEY"`
	StoreBaseURL         string        `envconfig:"COMMERCE_STORE_URL" validate:"omitempty,url"`
	SyncTimeout          time.Duration `envconfig:"COMMERCE_SYNC_TIMEOUT" default:"15s"`
	ProductsTimeout      time.Duration `envconfig:"COMMERCE_PRODUCTS_TIMEOUT" default:"10s"`
	CacheTTL             time.Duration `envconfig:"COMMERCE_CACHE_TTL" default:"1h"`
	BlockPrivateNetworks bool          `envconfig:"COMMERCE_BLOCK_PRIVATE_NETWORKS" default:"true"`
	SingleFlight         bool          `envconfig:"COMMERCE_SINGLE_FLIGHT" default:"true"`
	UserAgent            string        `envconfig:"COMMERCE_USER_AGENT" default:"CommerceKit/1.0"`
}

// AWSConfig holds AWS resource identifiers.
type AWSConfig struct {
	Region             string `envconfig:"AWS_REGION" default:"us-east-1"`
	QuotaEventQueueURL string `envconfig:"SQS_QUOTA_EVENTS" validate:"omitempty,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"CommerceKit"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv       ConfigErrorType = "MISSING_ENV"
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	ErrValidation       ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing          ConfigErrorType = "PARSING_FAILED"
)
