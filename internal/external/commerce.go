package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"commercekit/internal/cache"
	"commercekit/internal/security"
	"commercekit/internal/types"
)

// Cache keys and defaults for commerce payloads.
const (
	SyncDataKey         = "ict_external_sync_data"
	productsKeyPrefix   = "ict_woo_products_"
	DefaultSyncEndpoint = "https://api.mockaroo.com/api/test_data"
	DefaultProductLimit = 10
)

// ProductPageSizes are the product page sizes that get cached and cleared.
var ProductPageSizes = []int{10, 20, 50}

// ProductsKey returns the cache key for a product page of size limit.
func ProductsKey(limit int) string {
	return productsKeyPrefix + strconv.Itoa(limit)
}

// NormalizeProductLimit reads a user-supplied page size. Signs are dropped
// and zero falls back to DefaultProductLimit.
func NormalizeProductLimit(raw string) int {
	n := security.AbsInt(raw)
	if n == 0 {
		return DefaultProductLimit
	}
	if n > 100 {
		return 100
	}
	return int(n)
}

// Doer sends HTTP requests. *BaseClient satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PayloadFetcher is the cache-or-fetch contract used by CommerceClient.
type PayloadFetcher interface {
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch cache.FetchFunc) any
}

// CommerceConfig configures a CommerceClient.
type CommerceConfig struct {
	SyncEndpoint    string
	SyncAPIKey      types.SecretString
	StoreBaseURL    string
	SyncTimeout     time.Duration
	ProductsTimeout time.Duration
	CacheTTL        time.Duration
}

func (c CommerceConfig) withDefaults() CommerceConfig {
	if c.SyncEndpoint == "" {
		c.SyncEndpoint = DefaultSyncEndpoint
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 15 * time.Second
	}
	if c.ProductsTimeout <= 0 {
		c.ProductsTimeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = cache.DefaultTTL
	}
	return c
}

// CommerceClient fetches the external sync feed and store product pages,
// caching successful responses.
type CommerceClient struct {
	http    Doer
	fetcher PayloadFetcher
	cache   cache.Cache
	cfg     CommerceConfig
	logger  *slog.Logger
}

// NewCommerceClient creates a CommerceClient. c is used directly only by
// ClearAllCaches; reads go through fetcher.
func NewCommerceClient(doer Doer, fetcher PayloadFetcher, c cache.Cache, cfg CommerceConfig, logger *slog.Logger) *CommerceClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommerceClient{
		http:    doer,
		fetcher: fetcher,
		cache:   c,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// NewCommerceHTTPClient returns the http.Client for commerce fetches. When
// blockPrivate is set, connections to internal addresses are refused.
func NewCommerceHTTPClient(blockPrivate bool) *http.Client {
	const overall = 30 * time.Second
	if blockPrivate {
		return security.NewSafeHTTPClient(overall, 3, nil)
	}
	return &http.Client{Timeout: overall}
}

// FetchSyncData returns the external sync feed, or an empty result when it
// cannot be fetched.
func (c *CommerceClient) FetchSyncData(ctx context.Context) any {
	header := http.Header{"Accept": []string{"application/json"}}
	if c.cfg.SyncAPIKey.IsSet() {
		header.Set("Authorization", "Bearer "+c.cfg.SyncAPIKey.Unmask())
	}
	return c.fetcher.GetOrFetch(ctx, SyncDataKey, c.cfg.CacheTTL,
		c.getFunc(c.cfg.SyncEndpoint, header, c.cfg.SyncTimeout))
}

// FetchProducts returns up to limit products from the store's REST API, or
// an empty result when they cannot be fetched. A limit of zero or less uses
// DefaultProductLimit.
func (c *CommerceClient) FetchProducts(ctx context.Context, limit int) any {
	if limit <= 0 {
		limit = DefaultProductLimit
	}

	endpoint, err := c.productsURL(limit)
	if err != nil {
		c.logger.ErrorContext(ctx, "invalid store base url", "error", err)
		return cache.Empty()
	}

	header := http.Header{"Content-Type": []string{"application/json"}}
	return c.fetcher.GetOrFetch(ctx, ProductsKey(limit), c.cfg.CacheTTL,
		c.getFunc(endpoint, header, c.cfg.ProductsTimeout))
}

// ClearAllCaches drops the sync feed and every cached product page size.
func (c *CommerceClient) ClearAllCaches(ctx context.Context) error {
	keys := []string{SyncDataKey}
	for _, n := range ProductPageSizes {
		keys = append(keys, ProductsKey(n))
	}

	var errs []error
	for _, k := range keys {
		if err := c.cache.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return types.NewAppError(types.ErrCodeInternalCache, "failed to clear commerce caches", err)
	}
	c.logger.InfoContext(ctx, "commerce caches cleared", "keys", len(keys))
	return nil
}

func (c *CommerceClient) productsURL(limit int) (string, error) {
	base := security.SecureInput(c.cfg.StoreBaseURL, security.InputURL)
	if base == "" {
		return "", errors.New("store base url is not configured or not an http(s) url")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("wp-json", "wc", "v3", "products")
	u.RawQuery = url.Values{"per_page": []string{strconv.Itoa(limit)}}.Encode()
	return u.String(), nil
}

// getFunc builds the FetchFunc for a GET on endpoint. The timeout covers
// the whole exchange, including the body read done by the caller.
func (c *CommerceClient) getFunc(endpoint string, header http.Header, timeout time.Duration) cache.FetchFunc {
	return func(ctx context.Context) (*http.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			cancel()
			return nil, err
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := c.http.Do(req)
		if err != nil {
			cancel()
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			cancel()
			return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamBadResponse,
				fmt.Sprintf("commerce endpoint returned %d", resp.StatusCode), nil,
				map[string]any{"status": resp.StatusCode})
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
