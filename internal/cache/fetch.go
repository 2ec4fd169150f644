package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// maxBodyBytes caps how much of a response body is decoded.
const maxBodyBytes = 10 << 20

// Failure reasons reported to FetchMetrics.
const (
	ReasonTransport = "transport"
	ReasonStatus    = "status"
	ReasonRead      = "read"
	ReasonDecode    = "decode"
	ReasonEmpty     = "empty"
)

// FetchFunc performs the remote request for a cache miss. The caller of
// GetOrFetch owns timeouts; the Fetcher closes the response body.
type FetchFunc func(ctx context.Context) (*http.Response, error)

// FetchMetrics receives cache and fetch outcomes.
type FetchMetrics interface {
	RecordCacheHit(ctx context.Context, key string) error
	RecordCacheMiss(ctx context.Context, key string) error
	RecordFetchFailure(ctx context.Context, key, reason string) error
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithSingleFlight collapses concurrent misses for the same key into one
// fetch whose result is shared.
func WithSingleFlight() FetcherOption {
	return func(f *Fetcher) {
		f.group = &singleflight.Group{}
	}
}

// WithMetrics records hits, misses and failures.
func WithMetrics(m FetchMetrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// Fetcher implements cache-or-fetch over a Cache. It never returns errors:
// every failure degrades to Empty() and is logged.
type Fetcher struct {
	cache   Cache
	logger  *slog.Logger
	group   *singleflight.Group
	metrics FetchMetrics
}

// NewFetcher creates a Fetcher. If logger is nil, slog.Default() is used.
func NewFetcher(c Cache, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{cache: c, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Empty is the result returned when data is unavailable.
func Empty() any {
	return []any{}
}

// GetOrFetch returns the cached value for key or, on a miss, calls fetch,
// decodes the JSON body, stores it for ttl, and returns it. A ttl of zero
// or less uses DefaultTTL.
func (f *Fetcher) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) any {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if v, ok := f.lookup(ctx, key); ok {
		return v
	}
	f.record(ctx, key, func(m FetchMetrics) error { return m.RecordCacheMiss(ctx, key) })

	if f.group == nil {
		return f.fetchAndStore(ctx, key, ttl, fetch)
	}

	// The shared fetch outlives any single caller's cancellation but keeps
	// the first caller's deadline.
	ch := f.group.DoChan(key, func() (any, error) {
		fctx, cancel := detach(ctx)
		defer cancel()
		return f.fetchAndStore(fctx, key, ttl, fetch), nil
	})
	select {
	case res := <-ch:
		return res.Val
	case <-ctx.Done():
		f.logger.WarnContext(ctx, "caller gave up waiting for shared fetch", "key", key, "error", ctx.Err())
		return Empty()
	}
}

// detach returns a context that ignores ctx's cancellation but carries its
// deadline and values.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	d := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(d, deadline)
	}
	return d, func() {}
}

func (f *Fetcher) lookup(ctx context.Context, key string) (any, bool) {
	v, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.logger.WarnContext(ctx, "cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	f.record(ctx, key, func(m FetchMetrics) error { return m.RecordCacheHit(ctx, key) })
	return v, true
}

func (f *Fetcher) fetchAndStore(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) any {
	data, reason, err := f.fetch(ctx, fetch)
	if err != nil {
		f.logger.ErrorContext(ctx, "remote fetch failed", "key", key, "reason", reason, "error", err)
		f.record(ctx, key, func(m FetchMetrics) error { return m.RecordFetchFailure(ctx, key, reason) })
		return Empty()
	}

	if err := f.cache.Set(ctx, key, data, ttl); err != nil {
		f.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return data
}

// fetch runs fn and decodes its body. On failure it returns the reason.
func (f *Fetcher) fetch(ctx context.Context, fn FetchFunc) (any, string, error) {
	resp, err := fn(ctx)
	if err != nil {
		return nil, ReasonTransport, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ReasonStatus, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, ReasonRead, err
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, ReasonDecode, err
	}
	if IsEmpty(data) {
		return nil, ReasonEmpty, fmt.Errorf("response decoded to empty value")
	}
	return data, "", nil
}

func (f *Fetcher) record(ctx context.Context, key string, fn func(FetchMetrics) error) {
	if f.metrics == nil {
		return
	}
	if err := fn(f.metrics); err != nil {
		f.logger.WarnContext(ctx, "failed to record fetch metric", "key", key, "error", err)
	}
}

// IsEmpty reports whether a decoded JSON value carries no data: null,
// false, 0, "", "0", an empty array, or an empty object.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == "" || t == "0"
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
