// Package app assembles the runtime object graph shared by the maintenance
// Lambda and the operator CLI: storage, cache, outbound HTTP, AWS clients and
// the account service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"commercekit/internal/account"
	"commercekit/internal/billing"
	"commercekit/internal/cache"
	"commercekit/internal/config"
	"commercekit/internal/db"
	"commercekit/internal/external"
	"commercekit/internal/queue"
	"commercekit/internal/scheduler"
	"commercekit/internal/security"
	"commercekit/internal/telemetry"
	"commercekit/internal/types"
)

// Backend names accepted by Options.
const (
	BackendAuto     = ""
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// ErrBackendUnavailable is returned when a backend is requested explicitly
// but its connection URL is not configured.
var ErrBackendUnavailable = errors.New("backend not configured")

// Options selects storage backends. BackendAuto picks the durable backend
// when its URL is configured and the in-memory one otherwise.
type Options struct {
	Store string
	Cache string
	// EnsureSchema creates the Postgres tables on startup.
	EnsureSchema bool
}

// App holds the wired components. Pool and ProductMeta are nil when the
// in-memory store is used; Nonces is nil when no nonce secret is configured.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Clock       types.Clock
	Catalog     billing.TierCatalog
	Pool        *pgxpool.Pool
	Accounts    *account.Service
	Cache       cache.Cache
	Commerce    *external.CommerceClient
	ProductMeta *db.ProductMetaRepository
	Nonces      *security.NonceManager
	Refresher   *scheduler.CommerceRefresher
	Resetter    *scheduler.UsageResetter

	redisPing func(ctx context.Context) error
	closers   []func()
}

// NewLogger builds the JSON slog logger used by every entry point.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// New wires the application from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Clock:   types.RealClock{},
		Catalog: billing.NewStaticTierCatalog(),
	}

	store, err := a.openStore(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	c, err := a.openCache(ctx, opts.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cache = c

	var (
		usageMetrics account.UsageMetrics
		fetchMetrics cache.FetchMetrics
		events       account.QuotaEventPublisher
	)
	if cfg.Observability.EnableMetrics || cfg.AWS.QuotaEventQueueURL != "" {
		awsCfg, err := a.loadAWS(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		if cfg.Observability.EnableMetrics {
			cw := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
				if cfg.AWS.EndpointURL != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				}
			})
			m := telemetry.NewCloudWatchMetrics(cw, cfg.Observability.MetricNamespace, logger)
			usageMetrics, fetchMetrics = m, m
		}
		if cfg.AWS.QuotaEventQueueURL != "" {
			sq := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
				if cfg.AWS.EndpointURL != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				}
			})
			events = queue.NewQuotaEventPublisher(sq, cfg.AWS.QuotaEventQueueURL, logger)
		}
	}

	a.Accounts = account.NewService(account.ServiceConfig{
		Store:   store,
		Catalog: a.Catalog,
		Keys:    account.NewMetaKeys(cfg.Account.MetaPrefix),
		Clock:   a.Clock,
		Logger:  logger,
		Metrics: usageMetrics,
		Events:  events,
	})

	var fetcherOpts []cache.FetcherOption
	if cfg.Commerce.SingleFlight {
		fetcherOpts = append(fetcherOpts, cache.WithSingleFlight())
	}
	if fetchMetrics != nil {
		fetcherOpts = append(fetcherOpts, cache.WithMetrics(fetchMetrics))
	}
	fetcher := cache.NewFetcher(c, logger, fetcherOpts...)

	doer := external.NewBaseClient(
		external.NewCommerceHTTPClient(cfg.Commerce.BlockPrivateNetworks),
		external.DefaultBreakerSettings("commerce"),
		external.DefaultRetryPolicy(),
		cfg.Commerce.UserAgent,
		external.WithClientLogger(logger),
	)
	a.Commerce = external.NewCommerceClient(doer, fetcher, c, external.CommerceConfig{
		SyncEndpoint:    cfg.Commerce.SyncEndpoint,
		SyncAPIKey:      cfg.Commerce.SyncAPIKey,
		StoreBaseURL:    cfg.Commerce.StoreBaseURL,
		SyncTimeout:     cfg.Commerce.SyncTimeout,
		ProductsTimeout: cfg.Commerce.ProductsTimeout,
		CacheTTL:        cfg.Commerce.CacheTTL,
	}, logger)

	var marker scheduler.ProductSyncMarker
	if a.ProductMeta != nil {
		marker = a.ProductMeta
	}
	a.Refresher = scheduler.NewCommerceRefresher(a.Commerce, marker, external.ProductPageSizes, a.Clock, logger)
	a.Resetter = scheduler.NewUsageResetter(a.Accounts, logger)

	if cfg.Account.NonceSecret.IsSet() {
		nm, err := security.NewNonceManager(cfg.Account.NonceSecret, a.Clock, cfg.Account.NonceLifetime, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create nonce manager: %w", err)
		}
		a.Nonces = nm
	}

	return a, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context, opts Options) (account.Store, error) {
	dbCfg := a.Config.Database
	backend := opts.Store
	if backend == BackendAuto {
		backend = BackendMemory
		if dbCfg.URL.IsSet() {
			backend = BackendPostgres
		}
	}

	switch backend {
	case BackendMemory:
		a.Logger.WarnContext(ctx, "using in-memory account store; data is not persisted")
		return account.NewMemoryStore(), nil
	case BackendPostgres:
		if !dbCfg.URL.IsSet() {
			return nil, fmt.Errorf("store %s: %w (set DATABASE_URL)", backend, ErrBackendUnavailable)
		}
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:             dbCfg.URL.Unmask(),
			MaxConns:        dbCfg.MaxConns,
			MinConns:        dbCfg.MinConns,
			MaxConnLifetime: dbCfg.MaxConnLifetime,
		})
		if err != nil {
			return nil, err
		}
		a.Pool = pool
		a.closers = append(a.closers, pool.Close)

		if opts.EnsureSchema {
			if err := db.EnsureSchema(ctx, pool); err != nil {
				return nil, err
			}
		}
		a.ProductMeta = db.NewProductMetaRepository(pool)
		return db.NewUserMetaRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func (a *App) openCache(ctx context.Context, backend string) (cache.Cache, error) {
	redisCfg := a.Config.Redis
	if backend == BackendAuto {
		backend = BackendMemory
		if redisCfg.URL.IsSet() {
			backend = BackendRedis
		}
	}

	switch backend {
	case BackendMemory:
		return cache.NewMemoryCache(a.Clock), nil
	case BackendRedis:
		if !redisCfg.URL.IsSet() {
			return nil, fmt.Errorf("cache %s: %w (set REDIS_URL)", backend, ErrBackendUnavailable)
		}
		client, err := cache.NewRedisClient(ctx, redisCfg.URL.Unmask())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.redisPing = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return cache.NewRedisCache(client, cache.RedisConfig{
			KeyPrefix:         redisCfg.KeyPrefix,
			CompressThreshold: redisCfg.CompressThreshold,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

func (a *App) loadAWS(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if a.Config.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(a.Config.AWS.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}
