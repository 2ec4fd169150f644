package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

// Payload codec markers, stored as the first byte of every value.
const (
	codecJSON byte = 'j'
	codecZstd byte = 'z'
)

// DefaultCompressThreshold is the encoded size above which values are
// zstd-compressed.
const DefaultCompressThreshold = 1024

// RedisClient is the subset of *redis.Client used by RedisCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	KeyPrefix         string
	CompressThreshold int
}

// RedisCache stores JSON-encoded values in Redis, compressing large ones.
type RedisCache struct {
	client    RedisClient
	prefix    string
	threshold int

	encoder  *zstd.Encoder
	decoders sync.Pool
}

// NewRedisCache wraps client. A zero CompressThreshold uses
// DefaultCompressThreshold; a negative one disables compression.
func NewRedisCache(client RedisClient, cfg RedisConfig) (*RedisCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	threshold := cfg.CompressThreshold
	if threshold == 0 {
		threshold = DefaultCompressThreshold
	}

	return &RedisCache{
		client:    client,
		prefix:    cfg.KeyPrefix,
		threshold: threshold,
		encoder:   enc,
		decoders: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
				}
				return d
			},
		},
	}, nil
}

// NewRedisClient parses url, connects, and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (any, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	v, err := c.decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := c.encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if c.threshold < 0 || len(data) < c.threshold {
		return append([]byte{codecJSON}, data...), nil
	}
	return c.encoder.EncodeAll(data, []byte{codecZstd}), nil
}

func (c *RedisCache) decode(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty payload")
	}

	body := raw[1:]
	switch raw[0] {
	case codecJSON:
	case codecZstd:
		dec := c.decoders.Get().(*zstd.Decoder)
		defer c.decoders.Put(dec)
		var err error
		body, err = dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown codec marker %q", raw[0])
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}
